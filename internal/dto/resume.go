package dto

import "time"

type ScoreResumeRequest struct {
	Text string `json:"text"`
}

type ResumeResponse struct {
	ID           string    `json:"id" example:"res_3f2a9c"`
	Score        int       `json:"score" example:"78"`
	Summary      string    `json:"summary"`
	Strengths    []string  `json:"strengths"`
	Weaknesses   []string  `json:"weaknesses"`
	Improvements []string  `json:"improvements"`
	CreatedAt    time.Time `json:"created_at"`
}
