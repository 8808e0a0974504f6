package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	echo "github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/catalog/internal/config"
	"github.com/Additional-Code/catalog/internal/database"
	"github.com/Additional-Code/catalog/internal/testutil"
)

type envelope struct {
	Success bool `json:"success"`
	Error   *struct {
		Kind string `json:"kind"`
	} `json:"error"`
	Meta map[string]any `json:"meta"`
}

func serve(t *testing.T, e *echo.Echo, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestHealth(t *testing.T) {
	db := testutil.NewCatalogDB(t)
	e := NewEcho(config.Config{}, nil, &database.Connections{Writer: db, Reader: db}, zap.NewNop())

	rec, env := serve(t, e, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	assert.Equal(t, rec.Header().Get(echo.HeaderXRequestID), env.Meta["request_id"])

	require.NoError(t, db.Close())
	rec, env = serve(t, e, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "unavailable", env.Error.Kind)
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	e := NewEcho(config.Config{}, nil, nil, zap.NewNop())

	rec, env := serve(t, e, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Kind)
}
