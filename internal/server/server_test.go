package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"recall-be/internal/bootstrap"
	"recall-be/internal/config"
	"recall-be/internal/entity"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *bootstrap.Container) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		App: config.AppConfig{
			Port:               "0",
			Environment:        "test",
			LogFilePath:        filepath.Join(dir, "app.log"),
			SessionLogFilePath: filepath.Join(dir, "session.log"),
			CorsAllowedOrigins: "http://localhost:5173",
		},
		Ai: config.AIConfig{LLMProvider: "none"},
		Session: config.SessionConfig{
			HeartbeatInterval:    30 * time.Second,
			PongTimeout:          10 * time.Second,
			MaxConsecutiveErrors: 5,
			IdleTimeout:          5 * time.Minute,
			IdleCheckInterval:    10 * time.Second,
			MaxRabbitholeDepth:   3,
			EvaluationTimeout:    time.Minute,
		},
	}
	container, err := bootstrap.NewContainer(context.Background(), nil, cfg)
	require.NoError(t, err)
	t.Cleanup(container.Close)
	return New(cfg, container), container
}

func TestServer_Routes(t *testing.T) {
	srv, container := newTestServer(t)
	app := srv.GetApp()
	ctx := context.Background()

	uow := container.UowFactory.NewUnitOfWork(ctx)
	set := &entity.RecallSet{Id: uuid.New(), Name: "Cell biology", Status: entity.RecallSetStatusActive}
	require.NoError(t, uow.RecallSetRepository().Create(ctx, set))
	require.NoError(t, uow.RecallPointRepository().Create(ctx, &entity.RecallPoint{
		Id: uuid.New(), RecallSetId: set.Id, Content: "mitochondria produce ATP",
	}))

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := json.Marshal(map[string]string{"recallSetId": set.Id.String()})
	req := httptest.NewRequest(fiber.MethodPost, "/api/sessions/start", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	// Not shadowed by GET /sessions/:id.
	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/api/sessions/ws?sessionId=sess_abc", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/api/sessions/sess_missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
