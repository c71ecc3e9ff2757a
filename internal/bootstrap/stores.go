package bootstrap

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/eleven-am/interview-coach/internal/scoring"
)

func ProvideResumeStore(db *gorm.DB) *scoring.Store {
	return scoring.NewStore(db)
}

func RunMigrations(resumeStore *scoring.Store) error {
	return resumeStore.Migrate()
}

var StoresModule = fx.Options(
	fx.Provide(ProvideResumeStore),
	fx.Invoke(RunMigrations),
)
