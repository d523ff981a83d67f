package api_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/autoview/internal/interface/api"
	"github.com/jinford/autoview/internal/module/tasks/adapter/memory"
	"github.com/jinford/autoview/internal/module/tasks/application"
	"github.com/jinford/autoview/internal/module/tasks/domain"
	testutil "github.com/jinford/autoview/internal/module/tasks/testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestServer はインメモリストアと固定データセットでサーバを組み立てます
func newTestServer(t *testing.T) (*api.Server, *application.TaskService) {
	t.Helper()

	rows := []domain.DatasetRow{
		testutil.TestRow("Ford", "ford pinto", "1973-05-01", 4500),
		testutil.TestRow("Toyota", "toyota corolla", "1974-01-01", 6000),
	}
	dataset := &testutil.MockDatasetAccessor{
		RowsFunc: func(ctx context.Context) ([]domain.DatasetRow, error) {
			return rows, nil
		},
	}

	svc := application.NewTaskService(memory.NewStore(), dataset, testLogger(), application.Config{})
	svc.Start(context.Background())
	t.Cleanup(svc.Stop)

	return api.NewServer(svc, testLogger(), api.Config{}), svc
}

func postTask(t *testing.T, server *api.Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func getTask(t *testing.T, server *api.Server, id string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/"+id, nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestCreateTask(t *testing.T) {
	server, _ := newTestServer(t)

	rec := postTask(t, server, `{"filters": {"companies": "ford"}}`)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Message string       `json:"message"`
		Task    *domain.Task `json:"task"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Task created", resp.Message)
	require.NotNil(t, resp.Task)
	assert.Equal(t, domain.StatusPending, resp.Task.Status)
	assert.NotEqual(t, uuid.Nil, resp.Task.ID)
}

func TestCreateTask_InvalidBody(t *testing.T) {
	server, _ := newTestServer(t)

	rec := postTask(t, server, `not json`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTask_InvalidFilters(t *testing.T) {
	server, _ := newTestServer(t)

	rec := postTask(t, server, `{"filters": {"start_date": "1980-01-01", "end_date": "1975-01-01"}}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Invalid filters", resp.Error)
	assert.Contains(t, resp.Message, "start_date")
}

func TestGetTask_PollUntilCompleted(t *testing.T) {
	server, _ := newTestServer(t)

	rec := postTask(t, server, `{"filters": {"companies": "ford"}}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Task *domain.Task `json:"task"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// 終端状態までポーリング
	deadline := time.Now().Add(5 * time.Second)
	var last domain.Task
	for time.Now().Before(deadline) {
		rec := getTask(t, server, created.Task.ID.String())
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &last))
		if last.Status.Terminal() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	require.Equal(t, domain.StatusCompleted, last.Status)
	require.Len(t, last.Result, 1)
	assert.Equal(t, "ford pinto", last.Result[0].Name)
	require.NotNil(t, last.CompletedAt)
}

func TestGetTask_CompletedWithNoMatchesIncludesEmptyResult(t *testing.T) {
	server, _ := newTestServer(t)

	rec := postTask(t, server, `{"filters": {"companies": "datsun"}}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Task *domain.Task `json:"task"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// 終端状態までポーリング
	deadline := time.Now().Add(5 * time.Second)
	var payload map[string]json.RawMessage
	var status domain.TaskStatus
	for time.Now().Before(deadline) {
		rec := getTask(t, server, created.Task.ID.String())
		require.Equal(t, http.StatusOK, rec.Code)
		payload = map[string]json.RawMessage{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		require.NoError(t, json.Unmarshal(payload["status"], &status))
		if status.Terminal() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	require.Equal(t, domain.StatusCompleted, status)

	// 一致0件でも result キーは空配列として必ず含まれる
	raw, ok := payload["result"]
	require.True(t, ok)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestGetTask_NotFound(t *testing.T) {
	server, _ := newTestServer(t)

	rec := getTask(t, server, uuid.New().String())
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = getTask(t, server, "nonexistent-id")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status  string `json:"status"`
		Workers int    `json:"workers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, 1, resp.Workers)
}

func TestCORSHeaders(t *testing.T) {
	svc := application.NewTaskService(memory.NewStore(), &testutil.MockDatasetAccessor{}, testLogger(), application.Config{})
	server := api.NewServer(svc, testLogger(), api.Config{
		CORSOrigins: []string{"http://localhost:3000"},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	// 許可されていないオリジンにはヘッダを付けない
	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
