package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"recall-be/internal/dto"
	"recall-be/internal/entity"
	"recall-be/internal/pkg/logger"
	"recall-be/internal/pkg/serverutils"
	"recall-be/internal/repository/memory"
	"recall-be/internal/repository/unitofwork"
	"recall-be/internal/service"
	"recall-be/pkg/recall/scheduler"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestApp(t *testing.T) (*fiber.App, unitofwork.RepositoryFactory) {
	t.Helper()
	factory := memory.NewRepositoryFactory(memory.NewDatabase())
	svc := service.NewSessionService(factory, scheduler.NewScheduler(factory), nil, nil, logger.NewNopLogger())

	app := fiber.New(fiber.Config{ErrorHandler: serverutils.ErrorHandler})
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewSessionController(svc, nil).RegisterRoutes(app.Group("/api"))
	return app, factory
}

func seedRecallSet(t *testing.T, factory unitofwork.RepositoryFactory, status string, points int) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	uow := factory.NewUnitOfWork(ctx)
	set := &entity.RecallSet{Id: uuid.New(), Name: "Organic chemistry", Status: status}
	require.NoError(t, uow.RecallSetRepository().Create(ctx, set))
	for i := 0; i < points; i++ {
		require.NoError(t, uow.RecallPointRepository().Create(ctx, &entity.RecallPoint{
			Id: uuid.New(), RecallSetId: set.Id, Content: "benzene ring", Context: "aromaticity",
		}))
	}
	return set.Id
}

func do(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestSessionController_StartAndResume(t *testing.T) {
	app, factory := newTestApp(t)
	setID := seedRecallSet(t, factory, entity.RecallSetStatusActive, 2)

	status, env := do(t, app, http.MethodPost, "/api/sessions/start", map[string]string{"recallSetId": setID.String()})
	require.Equal(t, http.StatusCreated, status)
	var created dto.StartSessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.False(t, created.IsResume)
	assert.Equal(t, 2, created.TargetRecallPointCount)

	status, env = do(t, app, http.MethodPost, "/api/sessions/start", map[string]string{"recallSetId": setID.String()})
	require.Equal(t, http.StatusOK, status)
	var resumed dto.StartSessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &resumed))
	assert.True(t, resumed.IsResume)
	assert.Equal(t, created.SessionId, resumed.SessionId)

	status, env = do(t, app, http.MethodGet, "/api/sessions/"+created.SessionId, nil)
	require.Equal(t, http.StatusOK, status)
	var shown dto.SessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &shown))
	assert.Equal(t, entity.SessionStatusInProgress, shown.Status)
	assert.Len(t, shown.TargetRecallPointIds, 2)
}

func TestSessionController_Errors(t *testing.T) {
	app, factory := newTestApp(t)
	archived := seedRecallSet(t, factory, entity.RecallSetStatusArchived, 1)
	empty := seedRecallSet(t, factory, entity.RecallSetStatusActive, 0)

	tests := []struct {
		name       string
		method     string
		path       string
		body       interface{}
		wantStatus int
		wantInMsg  string
	}{
		{name: "archived set", method: http.MethodPost, path: "/api/sessions/start",
			body: map[string]string{"recallSetId": archived.String()}, wantStatus: http.StatusConflict, wantInMsg: "archived"},
		{name: "no due points", method: http.MethodPost, path: "/api/sessions/start",
			body: map[string]string{"recallSetId": empty.String()}, wantStatus: http.StatusUnprocessableEntity},
		{name: "unknown set", method: http.MethodPost, path: "/api/sessions/start",
			body: map[string]string{"recallSetId": uuid.NewString()}, wantStatus: http.StatusNotFound},
		{name: "missing set id", method: http.MethodPost, path: "/api/sessions/start",
			body: map[string]string{}, wantStatus: http.StatusBadRequest},
		{name: "unknown session", method: http.MethodGet, path: "/api/sessions/sess_missing",
			wantStatus: http.StatusNotFound},
		{name: "abandon unknown session", method: http.MethodPost, path: "/api/sessions/sess_missing/abandon",
			wantStatus: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do(t, app, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, status)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantStatus, env.Code)
			if tt.wantInMsg != "" {
				assert.Contains(t, env.Message, tt.wantInMsg)
			}
		})
	}
}

func TestSessionController_AbandonThenStartCreatesNewSession(t *testing.T) {
	app, factory := newTestApp(t)
	setID := seedRecallSet(t, factory, entity.RecallSetStatusActive, 1)

	_, env := do(t, app, http.MethodPost, "/api/sessions/start", map[string]string{"recallSetId": setID.String()})
	var first dto.StartSessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &first))

	status, env := do(t, app, http.MethodPost, "/api/sessions/"+first.SessionId+"/abandon", nil)
	require.Equal(t, http.StatusOK, status)
	var abandoned dto.SessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &abandoned))
	assert.Equal(t, entity.SessionStatusAbandoned, abandoned.Status)
	assert.NotNil(t, abandoned.EndedAt)

	status, _ = do(t, app, http.MethodPost, "/api/sessions/"+first.SessionId+"/abandon", nil)
	assert.Equal(t, http.StatusConflict, status)

	status, env = do(t, app, http.MethodPost, "/api/sessions/start", map[string]string{"recallSetId": setID.String()})
	require.Equal(t, http.StatusCreated, status)
	var second dto.StartSessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &second))
	assert.NotEqual(t, first.SessionId, second.SessionId)

	status, env = do(t, app, http.MethodGet, "/api/sessions/"+first.SessionId+"/transcript", nil)
	require.Equal(t, http.StatusOK, status)
	var transcript dto.TranscriptResponse
	require.NoError(t, json.Unmarshal(env.Data, &transcript))
	assert.Empty(t, transcript.Messages)

	status, env = do(t, app, http.MethodGet, "/api/sessions/"+first.SessionId+"/metrics", nil)
	require.Equal(t, http.StatusOK, status)
	var m dto.SessionMetricsResponse
	require.NoError(t, json.Unmarshal(env.Data, &m))
	assert.Equal(t, 1, m.TotalPoints)
	assert.Zero(t, m.EvaluatedPoints)
}
