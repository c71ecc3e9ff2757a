package bootstrap

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"github.com/eleven-am/interview-coach/internal/device"
	"github.com/eleven-am/interview-coach/internal/interview"
	"github.com/eleven-am/interview-coach/internal/metrics"
	"github.com/eleven-am/interview-coach/internal/scoring"
)

func ProvideInterviewManager(lc fx.Lifecycle, cfg *Config, m *metrics.Metrics, logger *slog.Logger) *interview.Manager {
	manager := interview.NewManager(interview.ManagerConfig{
		Controller: interview.Config{
			Live:           cfg.Live(),
			MaxRetries:     cfg.RetryMax,
			RetryBaseDelay: cfg.RetryBaseDelay,
			Microphone:     device.Microphone{},
			Speaker:        device.Speaker{},
		},
		Metrics: m,
		Log:     logger,
	})

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return manager.Close()
		},
	})
	return manager
}

func ProvideResumeSource(service *scoring.Service) interview.ResumeSource {
	return service
}

func ProvideInterviewHandler(manager *interview.Manager, resumes interview.ResumeSource, logger *slog.Logger) *interview.Handler {
	return interview.NewHandler(manager, resumes, logger.With("handler", "interview"))
}

func RegisterInterviewRoutes(e *echo.Echo, h *interview.Handler) {
	h.RegisterRoutes(e.Group("/api/v1/interviews"))
}

var InterviewModule = fx.Options(
	fx.Provide(
		ProvideInterviewManager,
		ProvideResumeSource,
		ProvideInterviewHandler,
	),
	fx.Invoke(RegisterInterviewRoutes),
)
