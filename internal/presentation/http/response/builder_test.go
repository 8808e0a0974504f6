package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/catalog/pkg/errorbank"
)

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	return e.NewContext(req, rec), rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestBuildSuccess(t *testing.T) {
	c, rec := newContext()
	c.Response().Header().Set(echo.HeaderXRequestID, "req-1")

	require.NoError(t, New(c).WithStatus(http.StatusCreated).WithData("ok").WithMeta("count", 1).Build())

	assert.Equal(t, http.StatusCreated, rec.Code)
	env := decode(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, "ok", env.Data)
	assert.Equal(t, "req-1", env.Meta["request_id"])
	assert.Nil(t, env.Error)
}

func TestBuildErrorUsesKindStatus(t *testing.T) {
	c, rec := newContext()
	err := errorbank.Constraint("product does not exist", errorbank.WithDetail("product_id", 9))

	require.NoError(t, New(c).WithError(err).Build())

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decode(t, rec)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "constraint", env.Error.Kind)
	assert.EqualValues(t, 9, env.Error.Details["product_id"])
}

func TestBuildErrorHidesInternalDetails(t *testing.T) {
	c, rec := newContext()
	err := errorbank.Internal("save report", errorbank.WithDetail("path", "/srv/orders.odt"))

	require.NoError(t, New(c).WithError(err).Build())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Empty(t, env.Error.Details)
}
