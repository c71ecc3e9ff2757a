package scoring

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eleven-am/interview-coach/internal/dto"
	"github.com/eleven-am/interview-coach/internal/shared"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: service,
		logger:  logger.With("component", "scoring_handler"),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.Score)
	g.GET("/:id", h.Get)
}

func (h *Handler) Score(c echo.Context) error {
	var req dto.ScoreResumeRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}

	resume, err := h.service.Score(c.Request().Context(), req.Text)
	switch {
	case err == nil:
	case errors.Is(err, ErrEmptyText):
		return shared.NewAPIError("invalid_resume", "resume text is required").
			WithDetails([]dto.ValidationError{{Field: "text", Message: "must not be empty"}}).
			ToHTTP(http.StatusBadRequest)
	case errors.Is(err, shared.ErrMissingCredential):
		return shared.ServiceUnavailable("missing_credential", "resume scoring is not configured")
	default:
		h.logger.Error("failed to score resume", "error", err)
		return shared.InternalError("scoring_failed", "failed to score resume")
	}

	return c.JSON(http.StatusCreated, toResponse(resume))
}

func (h *Handler) Get(c echo.Context) error {
	resume, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NotFound("resume_not_found", "resume not found")
		}
		h.logger.Error("failed to load resume", "error", err)
		return shared.InternalError("resume_lookup_failed", "failed to load resume")
	}
	return c.JSON(http.StatusOK, toResponse(resume))
}

func toResponse(r *Resume) dto.ResumeResponse {
	return dto.ResumeResponse{
		ID:           r.ID,
		Score:        r.Score,
		Summary:      r.Summary,
		Strengths:    []string(r.Strengths),
		Weaknesses:   []string(r.Weaknesses),
		Improvements: []string(r.Improvements),
		CreatedAt:    r.CreatedAt,
	}
}
