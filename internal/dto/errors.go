package dto

type ValidationError struct {
	Field   string `json:"field" example:"difficulty"`
	Message string `json:"message" example:"unknown difficulty \"expert\""`
}
