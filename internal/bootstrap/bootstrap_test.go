package bootstrap

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/fx"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestAppGraph(t *testing.T) {
	err := fx.ValidateApp(
		fx.Provide(LoadConfig, ProvideLogger),
		InfrastructureModule,
		StoresModule,
		ServerModule,
		GRPCModule,
		ScoringModule,
		InterviewModule,
		HealthModule,
	)
	if err != nil {
		t.Fatalf("ValidateApp() error = %v", err)
	}
}

func TestFxLogger(t *testing.T) {
	logger := newFxLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if logger == nil {
		t.Fatal("expected fx event logger")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"info":  slog.LevelInfo,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestServingStatus(t *testing.T) {
	if servingStatus(true) != healthpb.HealthCheckResponse_SERVING {
		t.Error("expected SERVING with a credential")
	}
	if servingStatus(false) != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Error("expected NOT_SERVING without a credential")
	}
}

func TestMetricsRoute(t *testing.T) {
	reg := ProvideRegistry()
	m := ProvideMetrics(reg)
	m.ConnectAttempts.Inc()

	e := NewEchoServer(slog.New(slog.NewTextHandler(io.Discard, nil)))
	RegisterMetricsRoute(e, reg)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "interview_connect_attempts_total 1") {
		t.Error("expected interview collectors in exposition")
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("expected runtime collectors in exposition")
	}
}
