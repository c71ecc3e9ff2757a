package dto

import "time"

type CreateInterviewRequest struct {
	Difficulty string `json:"difficulty" example:"medium"`
	ResumeID   string `json:"resume_id,omitempty" example:"res_3f2a9c"`
	ResumeText string `json:"resume_text,omitempty"`
}

type MuteRequest struct {
	Muted *bool `json:"muted" example:"true"`
}

type StatusResponse struct {
	Epoch     uint64    `json:"epoch" example:"3"`
	State     string    `json:"state" example:"connected"`
	ErrorKind string    `json:"error_kind,omitempty" example:"network"`
	Message   string    `json:"message,omitempty"`
	Attempt   int       `json:"attempt" example:"0"`
	Retrying  bool      `json:"retrying"`
	CanRetry  bool      `json:"can_retry"`
	UpdatedAt time.Time `json:"updated_at"`
}

type InterviewResponse struct {
	ID         string         `json:"id" example:"7c9e6679-7425-40de-944b-e07fc1f90ae7"`
	Difficulty string         `json:"difficulty" example:"medium"`
	ResumeID   string         `json:"resume_id,omitempty"`
	Muted      bool           `json:"muted"`
	CreatedAt  time.Time      `json:"created_at"`
	Status     StatusResponse `json:"status"`
}

type InterviewListResponse struct {
	Total      int                 `json:"total" example:"1"`
	Interviews []InterviewResponse `json:"interviews"`
}
