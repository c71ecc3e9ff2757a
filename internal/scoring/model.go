package scoring

import (
	"time"

	"github.com/eleven-am/interview-coach/internal/shared"
)

// ListSize is the number of entries every report list carries.
const ListSize = 3

// Report is the model's assessment of a resume.
type Report struct {
	Score        int      `json:"score"`
	Summary      string   `json:"summary"`
	Strengths    []string `json:"strengths"`
	Weaknesses   []string `json:"weaknesses"`
	Improvements []string `json:"improvements"`
}

type Resume struct {
	ID           string             `gorm:"primaryKey" json:"id"`
	TextHash     string             `gorm:"not null;index" json:"-"`
	Text         string             `gorm:"type:text;not null" json:"-"`
	Score        int                `gorm:"not null" json:"score"`
	Summary      string             `gorm:"type:text" json:"summary"`
	Strengths    shared.StringSlice `gorm:"type:json" json:"strengths"`
	Weaknesses   shared.StringSlice `gorm:"type:json" json:"weaknesses"`
	Improvements shared.StringSlice `gorm:"type:json" json:"improvements"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func (r *Resume) Report() Report {
	return Report{
		Score:        r.Score,
		Summary:      r.Summary,
		Strengths:    []string(r.Strengths),
		Weaknesses:   []string(r.Weaknesses),
		Improvements: []string(r.Improvements),
	}
}

func (r *Resume) apply(report Report) {
	r.Score = report.Score
	r.Summary = report.Summary
	r.Strengths = shared.StringSlice(report.Strengths)
	r.Weaknesses = shared.StringSlice(report.Weaknesses)
	r.Improvements = shared.StringSlice(report.Improvements)
}
