package bootstrap

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/eleven-am/interview-coach/internal/metrics"
	"github.com/eleven-am/interview-coach/internal/scoring"
)

func ProvideScoreCache(client *redis.Client, cfg *Config) *scoring.Cache {
	return scoring.NewCache(client, cfg.ScoreCacheTTL)
}

func ProvideGenerator(cfg *Config, logger *slog.Logger) scoring.Generator {
	gen := scoring.NewGenaiGenerator(cfg.GeminiAPIKey, cfg.ScoringModel)
	if !gen.Configured() {
		logger.Warn("GEMINI_API_KEY not set, resume scoring and interviews are disabled")
	}
	return gen
}

func ProvideScoringService(store *scoring.Store, cache *scoring.Cache, gen scoring.Generator, m *metrics.Metrics, logger *slog.Logger) *scoring.Service {
	return scoring.NewService(store, cache, gen, m, logger)
}

func ProvideScoringHandler(service *scoring.Service, logger *slog.Logger) *scoring.Handler {
	return scoring.NewHandler(service, logger.With("handler", "scoring"))
}

func RegisterScoringRoutes(e *echo.Echo, h *scoring.Handler) {
	h.RegisterRoutes(e.Group("/api/v1/resumes"))
}

var ScoringModule = fx.Options(
	fx.Provide(
		ProvideScoreCache,
		ProvideGenerator,
		ProvideScoringService,
		ProvideScoringHandler,
	),
	fx.Invoke(RegisterScoringRoutes),
)
