package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/projreg/internal/logging"
	"github.com/fyrsmithlabs/projreg/internal/project"
	"github.com/fyrsmithlabs/projreg/internal/registry"
	"github.com/fyrsmithlabs/projreg/internal/telemetry"
)

type testEnv struct {
	server *Server
	svc    *project.Service
	logger *logging.TestLogger
	tel    *telemetry.TestTelemetry
	dir    string
}

func setupTestServer(t *testing.T, cfg *Config) *testEnv {
	t.Helper()
	dir := t.TempDir()
	store, err := registry.NewStore(filepath.Join(dir, "projects.json"))
	require.NoError(t, err)

	logger := logging.NewTestLogger()
	svc, err := project.Open(context.Background(), store, logger.Logger)
	require.NoError(t, err)

	tel := telemetry.NewTestTelemetry()
	server, err := NewServer(svc, logger.Logger, cfg,
		WithMeterProvider(tel.MeterProvider()),
		WithTracerProvider(tel.TracerProvider()),
	)
	require.NoError(t, err)

	return &testEnv{server: server, svc: svc, logger: logger, tel: tel, dir: dir}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postForm(t *testing.T, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/projects", strings.NewReader(values.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestNewServer(t *testing.T) {
	store, err := registry.NewStore(filepath.Join(t.TempDir(), "projects.json"))
	require.NoError(t, err)
	svc, err := project.Open(context.Background(), store, logging.NewNop())
	require.NoError(t, err)

	t.Run("uses defaults when config is nil", func(t *testing.T) {
		server, err := NewServer(svc, logging.NewNop(), nil)
		require.NoError(t, err)
		assert.Equal(t, "localhost", server.config.Host)
		assert.Equal(t, 8501, server.config.Port)
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewServer(svc, nil, nil)
		assert.ErrorContains(t, err, "logger is required")
	})

	t.Run("returns error when service is nil", func(t *testing.T) {
		_, err := NewServer(nil, logging.NewNop(), nil)
		assert.ErrorContains(t, err, "project service cannot be nil")
	})
}

func TestHandleHealth(t *testing.T) {
	env := setupTestServer(t, nil)

	rec := env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, HealthResponse{Status: "ok", Projects: 0}, resp)
}

func TestHandleHealth_TelemetryStatus(t *testing.T) {
	env := setupTestServer(t, nil)

	tests := []struct {
		name   string
		status telemetry.HealthStatus
		want   HealthResponse
	}{
		{
			name:   "exporting",
			status: telemetry.HealthStatus{Healthy: true},
			want:   HealthResponse{Status: "ok", Telemetry: "ok"},
		},
		{
			name:   "degraded",
			status: telemetry.HealthStatus{Degraded: true, Reasons: []string{"tracer provider: connection refused"}},
			want: HealthResponse{
				Status:           "ok",
				Telemetry:        "degraded",
				TelemetryReasons: []string{"tracer provider: connection refused"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := NewServer(env.svc, logging.NewNop(), nil,
				WithTelemetryHealth(func() telemetry.HealthStatus { return tt.status }))
			require.NoError(t, err)

			rec := httptest.NewRecorder()
			server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			require.Equal(t, http.StatusOK, rec.Code)

			var resp HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp)
		})
	}
}

func TestHandleIndex(t *testing.T) {
	env := setupTestServer(t, nil)

	rec := env.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")
	assert.Contains(t, rec.Body.String(), "No projects yet.")
	assert.Contains(t, rec.Body.String(), `action="/projects"`)
}

func TestFormCreate(t *testing.T) {
	t.Run("redirects and lists the new project", func(t *testing.T) {
		env := setupTestServer(t, nil)

		rec := env.postForm(t, url.Values{
			"name":               {" Alpha "},
			"num_source_schemas": {"3"},
			"target_schema":      {"json"},
		})
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/?created=Alpha", rec.Header().Get(echo.HeaderLocation))

		rec = env.do(t, http.MethodGet, "/?created=Alpha", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Alpha (sources: 3, target: json)")
		assert.Contains(t, rec.Body.String(), `Project "Alpha" created.`)
	})

	t.Run("ignores created flag for unknown project", func(t *testing.T) {
		env := setupTestServer(t, nil)
		rec := env.do(t, http.MethodGet, "/?created=Ghost", "")
		assert.NotContains(t, rec.Body.String(), "created.")
	})

	t.Run("rejects non-integer count and keeps input", func(t *testing.T) {
		env := setupTestServer(t, nil)

		rec := env.postForm(t, url.Values{
			"name":               {"Alpha"},
			"num_source_schemas": {"three"},
			"target_schema":      {"json"},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "is not an integer")
		assert.Contains(t, rec.Body.String(), `value="Alpha"`)
		assert.Empty(t, env.svc.List(context.Background()))
	})

	t.Run("rejects duplicate", func(t *testing.T) {
		env := setupTestServer(t, nil)
		_, err := env.svc.Create(context.Background(), "Alpha", 3, "json")
		require.NoError(t, err)

		rec := env.postForm(t, url.Values{
			"name":               {"Alpha"},
			"num_source_schemas": {"1"},
			"target_schema":      {"xml"},
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "project already exists")
		assert.Len(t, env.svc.List(context.Background()), 1)
	})
}

func TestAPICreateAndList(t *testing.T) {
	env := setupTestServer(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/projects",
		`{"name":"Alpha","num_source_schemas":3,"target_schema":"json"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created ProjectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, ProjectResponse{Name: "Alpha", SourceSchemaCount: 3, TargetSchema: "json"}, created)

	rec = env.do(t, http.MethodPost, "/api/v1/projects",
		`{"name":"Beta","num_source_schemas":"0","target_schema":"csv"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/projects", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var list ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, []ProjectResponse{
		{Name: "Alpha", SourceSchemaCount: 3, TargetSchema: "json"},
		{Name: "Beta", SourceSchemaCount: 0, TargetSchema: "csv"},
	}, list.Projects)

	env.tel.AssertSpanExists(t, "POST /api/v1/projects")
}

func TestAPIList_Empty(t *testing.T) {
	env := setupTestServer(t, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/projects", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"projects":[]}`, rec.Body.String())
}

func TestAPICreate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"duplicate", `{"name":"Alpha","num_source_schemas":1,"target_schema":"xml"}`, http.StatusConflict},
		{"duplicate with bad count", `{"name":"Alpha","num_source_schemas":-1,"target_schema":"xml"}`, http.StatusBadRequest},
		{"negative count", `{"name":"Beta","num_source_schemas":-1,"target_schema":"csv"}`, http.StatusBadRequest},
		{"fractional count", `{"name":"Beta","num_source_schemas":2.5,"target_schema":"csv"}`, http.StatusBadRequest},
		{"text count", `{"name":"Beta","num_source_schemas":"three","target_schema":"csv"}`, http.StatusBadRequest},
		{"missing count", `{"name":"Beta","target_schema":"csv"}`, http.StatusBadRequest},
		{"empty name", `{"name":"","num_source_schemas":1,"target_schema":"csv"}`, http.StatusBadRequest},
		{"malformed json", `{"name":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestServer(t, nil)
			_, err := env.svc.Create(context.Background(), "Alpha", 3, "json")
			require.NoError(t, err)

			rec := env.do(t, http.MethodPost, "/api/v1/projects", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.NotEmpty(t, decodeError(t, rec))
			assert.Len(t, env.svc.List(context.Background()), 1)
		})
	}
}

func TestAPICreate_StorageFailure(t *testing.T) {
	env := setupTestServer(t, nil)
	require.NoError(t, os.RemoveAll(env.dir))

	rec := env.do(t, http.MethodPost, "/api/v1/projects",
		`{"name":"Alpha","num_source_schemas":3,"target_schema":"json"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decodeError(t, rec), "could not be saved")

	rec = env.do(t, http.MethodGet, "/health", "")
	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, HealthResponse{Status: "stale", Projects: 1}, health)

	env.logger.AssertLogged(t, zapcore.WarnLevel, "http request failed")
}

func TestAPIGetUpdateDelete(t *testing.T) {
	env := setupTestServer(t, nil)
	ctx := context.Background()
	_, err := env.svc.Create(ctx, "Alpha", 3, "json")
	require.NoError(t, err)
	_, err = env.svc.Create(ctx, "Beta", 0, "csv")
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/v1/projects/Alpha", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name":"Alpha","num_source_schemas":3,"target_schema":"json"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/projects/Gamma", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/v1/projects/Alpha",
		`{"name":"Beta","num_source_schemas":3,"target_schema":"json"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/v1/projects/Alpha",
		`{"name":"Alpha","num_source_schemas":5,"target_schema":"parquet"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	p, err := env.svc.Get(ctx, "Alpha")
	require.NoError(t, err)
	assert.Equal(t, 5, p.SourceSchemaCount)

	rec = env.do(t, http.MethodDelete, "/api/v1/projects/Beta", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/projects/Beta", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Len(t, env.svc.List(ctx), 1)
}

func TestAPIGetUpdateDelete_EscapedNames(t *testing.T) {
	for _, name := range []string{"a/b", "a+b", "a b", "50%", "x/y/z"} {
		t.Run(name, func(t *testing.T) {
			env := setupTestServer(t, nil)
			ctx := context.Background()

			rec := env.do(t, http.MethodPost, "/api/v1/projects",
				`{"name":`+strconv.Quote(name)+`,"num_source_schemas":3,"target_schema":"json"}`)
			require.Equal(t, http.StatusCreated, rec.Code)

			path := "/api/v1/projects/" + url.PathEscape(name)

			rec = env.do(t, http.MethodGet, path, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var got ProjectResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, name, got.Name)

			rec = env.do(t, http.MethodPut, path,
				`{"name":`+strconv.Quote(name)+`,"num_source_schemas":4,"target_schema":"csv"}`)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			p, err := env.svc.Get(ctx, name)
			require.NoError(t, err)
			assert.Equal(t, 4, p.SourceSchemaCount)

			rec = env.do(t, http.MethodDelete, path, "")
			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Empty(t, env.svc.List(ctx))
		})
	}
}

func TestAPIGet_AlternateEscaping(t *testing.T) {
	env := setupTestServer(t, nil)
	_, err := env.svc.Create(context.Background(), "a+b", 1, "json")
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/v1/projects/a%2Bb", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"a+b"`)

	rec = env.do(t, http.MethodGet, "/api/v1/projects/a%2Fb", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPICreate_CountEncodings(t *testing.T) {
	tests := []struct {
		name     string
		count    string
		wantCode int
		want     int
	}{
		{"number", `3`, http.StatusCreated, 3},
		{"numeric string", `"3"`, http.StatusCreated, 3},
		{"escaped string", `"\u0033"`, http.StatusCreated, 3},
		{"padded string", `" 4 "`, http.StatusCreated, 4},
		{"zero", `0`, http.StatusCreated, 0},
		{"null", `null`, http.StatusBadRequest, 0},
		{"boolean", `true`, http.StatusBadRequest, 0},
		{"exponent", `1e3`, http.StatusBadRequest, 0},
		{"unterminated string", `"3}`, http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestServer(t, nil)

			rec := env.do(t, http.MethodPost, "/api/v1/projects",
				`{"name":"Alpha","target_schema":"json","num_source_schemas":`+tt.count+`}`)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusCreated {
				assert.Empty(t, env.svc.List(context.Background()))
				return
			}
			p, err := env.svc.Get(context.Background(), "Alpha")
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.SourceSchemaCount)
		})
	}
}

func TestRateLimit_WritesOnly(t *testing.T) {
	env := setupTestServer(t, &Config{Host: "localhost", Port: 8501, RateLimit: 0.001, RateBurst: 1})

	rec := env.do(t, http.MethodPost, "/api/v1/projects",
		`{"name":"Alpha","num_source_schemas":3,"target_schema":"json"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/projects",
		`{"name":"Beta","num_source_schemas":0,"target_schema":"csv"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "too many requests; slow down", decodeError(t, rec))

	for i := 0; i < 3; i++ {
		rec = env.do(t, http.MethodGet, "/api/v1/projects", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	env := setupTestServer(t, nil)

	rec := env.do(t, http.MethodGet, "/health", "")
	id := rec.Header().Get(echo.HeaderXRequestID)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)

	env.logger.AssertField(t, "http request", "request.id", id)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(echo.HeaderXRequestID, "client-supplied-1")
	rec = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "client-supplied-1", rec.Header().Get(echo.HeaderXRequestID))
}

func TestNoteExternalChange(t *testing.T) {
	env := setupTestServer(t, nil)

	rec := env.do(t, http.MethodGet, "/", "")
	assert.NotContains(t, rec.Body.String(), "another process")

	env.server.NoteExternalChange(registry.Change{Path: "projects.json"})
	rec = env.do(t, http.MethodGet, "/", "")
	assert.Contains(t, rec.Body.String(), "changed by another process")

	env.server.NoteExternalChange(registry.Change{Path: "projects.json", Removed: true})
	rec = env.do(t, http.MethodGet, "/", "")
	assert.Contains(t, rec.Body.String(), "deleted by another process")
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestServer(t, nil)
	_, err := env.svc.Create(context.Background(), "Alpha", 3, "json")
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "projreg_projects")
	assert.Contains(t, rec.Body.String(), "projreg_registry_saves_total")
}

func TestUnknownRoute(t *testing.T) {
	env := setupTestServer(t, nil)

	rec := env.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decodeError(t, rec))
}
