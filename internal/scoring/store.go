package scoring

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/eleven-am/interview-coach/internal/shared"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Resume{})
}

func (s *Store) Create(ctx context.Context, resume *Resume) error {
	if resume.ID == "" {
		resume.ID = shared.NewID("res_")
	}
	return s.db.WithContext(ctx).Create(resume).Error
}

func (s *Store) GetByID(ctx context.Context, id string) (*Resume, error) {
	var resume Resume
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&resume).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &resume, nil
}

// Ping reports whether the underlying database answers.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
