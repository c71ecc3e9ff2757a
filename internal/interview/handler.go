package interview

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eleven-am/interview-coach/internal/dto"
	"github.com/eleven-am/interview-coach/internal/live"
	"github.com/eleven-am/interview-coach/internal/shared"
)

// ResumeSource resolves a stored resume to the text used in the prompt.
type ResumeSource interface {
	ResumeText(ctx context.Context, id string) (string, error)
}

type Handler struct {
	manager *Manager
	resumes ResumeSource
	logger  *slog.Logger
}

func NewHandler(manager *Manager, resumes ResumeSource, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		manager: manager,
		resumes: resumes,
		logger:  logger.With("component", "interview_handler"),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("/:id/mute", h.Mute)
	g.POST("/:id/retry", h.Retry)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/events", h.Events)
}

func (h *Handler) Create(c echo.Context) error {
	var req dto.CreateInterviewRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}

	difficulty, err := live.ParseDifficulty(req.Difficulty)
	if err != nil {
		return shared.NewAPIError("invalid_difficulty", "difficulty must be easy, medium or hard").
			WithDetails([]dto.ValidationError{{Field: "difficulty", Message: err.Error()}}).
			ToHTTP(http.StatusBadRequest)
	}

	resume := req.ResumeText
	if req.ResumeID != "" {
		if h.resumes == nil {
			return shared.BadRequest("resumes_unavailable", "resume lookup is not configured")
		}
		text, err := h.resumes.ResumeText(c.Request().Context(), req.ResumeID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NotFound("resume_not_found", "resume not found")
			}
			h.logger.Error("failed to load resume", "error", err, "resume_id", req.ResumeID)
			return shared.InternalError("resume_lookup_failed", "failed to load resume")
		}
		resume = text
	}

	sess := h.manager.Create(Request{Difficulty: difficulty, Resume: resume}, req.ResumeID)
	h.manager.Start(sess)

	return c.JSON(http.StatusAccepted, toResponse(sess))
}

func (h *Handler) List(c echo.Context) error {
	sessions := h.manager.List()
	resp := dto.InterviewListResponse{
		Total:      len(sessions),
		Interviews: make([]dto.InterviewResponse, len(sessions)),
	}
	for i, s := range sessions {
		resp.Interviews[i] = toResponse(s)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Get(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toResponse(sess))
}

func (h *Handler) Mute(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	var req dto.MuteRequest
	if err := c.Bind(&req); err != nil || req.Muted == nil {
		return shared.BadRequest("invalid_request", "muted is required")
	}
	sess.Controller.SetMuted(*req.Muted)

	return c.JSON(http.StatusOK, toResponse(sess))
}

func (h *Handler) Retry(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	if err := h.manager.Retry(sess); err != nil {
		return shared.Conflict("not_retryable", "interview can only be retried after an error")
	}
	return c.JSON(http.StatusAccepted, toResponse(sess))
}

func (h *Handler) Delete(c echo.Context) error {
	if err := h.manager.Remove(c.Param("id")); err != nil {
		return shared.NotFound("interview_not_found", "interview not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Events(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}

	events, unsubscribe := sess.Events.Subscribe(32)
	defer unsubscribe()

	conn, err := newSSEConn(c.Response(), events)
	if err != nil {
		return shared.InternalError("streaming_unsupported", "streaming not supported")
	}
	conn.writeHeaders()

	status := sess.Controller.Status()
	if err := conn.writeEvent(Event{Type: EventStatus, Status: &status}); err != nil {
		return nil
	}

	if err := conn.Run(c.Request().Context()); err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Debug("event stream ended", "session_id", sess.ID, "error", err)
	}
	return nil
}

func (h *Handler) session(c echo.Context) (*Session, error) {
	sess, ok := h.manager.Get(c.Param("id"))
	if !ok {
		return nil, shared.NotFound("interview_not_found", "interview not found")
	}
	return sess, nil
}

func toResponse(s *Session) dto.InterviewResponse {
	st := s.Controller.Status()
	return dto.InterviewResponse{
		ID:         s.ID,
		Difficulty: string(s.Difficulty),
		ResumeID:   s.ResumeID,
		Muted:      s.Controller.Muted(),
		CreatedAt:  s.CreatedAt,
		Status: dto.StatusResponse{
			Epoch:     st.Epoch,
			State:     string(st.State),
			ErrorKind: string(st.ErrorKind),
			Message:   st.Message,
			Attempt:   st.Attempt,
			Retrying:  st.Retrying,
			CanRetry:  st.CanRetry,
			UpdatedAt: st.UpdatedAt,
		},
	}
}
