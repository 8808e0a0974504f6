package order

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/catalog/internal/config"
	"github.com/Additional-Code/catalog/internal/entity"
	"github.com/Additional-Code/catalog/internal/ingest"
	repo "github.com/Additional-Code/catalog/internal/repository/catalog"
	service "github.com/Additional-Code/catalog/internal/service/catalog"
	"github.com/Additional-Code/catalog/internal/testutil"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Kind string `json:"kind"`
	} `json:"error"`
	Meta map[string]any `json:"meta"`
}

func newServer(t *testing.T) (*echo.Echo, int64) {
	t.Helper()
	ctx := context.Background()

	r := repo.New(testutil.NewCatalogDB(t))
	supplierID, err := r.InsertSupplier(ctx, &entity.Supplier{Name: "Acme"})
	require.NoError(t, err)
	productID, err := r.InsertProduct(ctx, &entity.Product{Name: "Widget", Price: decimal.RequireFromString("9.99"), SupplierID: supplierID})
	require.NoError(t, err)

	cfg := config.Config{}
	svc := service.NewService(service.Params{
		Repository: r,
		Adapter:    ingest.NewAdapter(cfg, zap.NewNop()),
		Config:     cfg,
		Logger:     zap.NewNop(),
	})

	e := echo.New()
	Register(e, NewHandler(svc))
	return e, productID
}

func do(t *testing.T, e *echo.Echo, method, target, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func TestCreateAndListOrders(t *testing.T) {
	e, productID := newServer(t)

	payload, err := json.Marshal(map[string]any{
		"product_id":    productID,
		"quantity":      2,
		"order_date":    "2023-01-15",
		"customer_name": "J. Doe",
	})
	require.NoError(t, err)

	status, env := do(t, e, http.MethodPost, "/orders", string(payload))
	require.Equal(t, http.StatusCreated, status)
	var created struct {
		ID           int64  `json:"id"`
		ProductName  string `json:"product_name"`
		SupplierName string `json:"supplier_name"`
		OrderDate    string `json:"order_date"`
		Price        string `json:"price"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Positive(t, created.ID)
	assert.Equal(t, "Widget", created.ProductName)
	assert.Equal(t, "Acme", created.SupplierName)
	assert.Equal(t, "2023-01-15", created.OrderDate)
	assert.Equal(t, "9.99", created.Price)

	status, env = do(t, e, http.MethodGet, "/orders", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, env.Meta["count"])

	status, _ = do(t, e, http.MethodGet, "/orders/1", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestCreateOrderErrors(t *testing.T) {
	e, productID := newServer(t)

	cases := []struct {
		name   string
		body   string
		status int
		kind   string
	}{
		{"malformed json", `{"product_id":`, http.StatusBadRequest, "bad_request"},
		{"missing fields", `{"quantity":1}`, http.StatusBadRequest, "bad_request"},
		{"bad date", `{"product_id":1,"quantity":1,"order_date":"15.01.2023","customer_name":"J. Doe"}`, http.StatusBadRequest, "bad_request"},
		{"zero quantity", `{"product_id":1,"quantity":0,"order_date":"2023-01-15","customer_name":"J. Doe"}`, http.StatusUnprocessableEntity, "constraint"},
		{"unknown product", `{"product_id":99,"quantity":1,"order_date":"2023-01-15","customer_name":"J. Doe"}`, http.StatusUnprocessableEntity, "constraint"},
	}
	require.EqualValues(t, 1, productID)

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := do(t, e, http.MethodPost, "/orders", tc.body)
			assert.Equal(t, tc.status, status)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.kind, env.Error.Kind)
		})
	}
}

func TestGetOrderErrors(t *testing.T) {
	e, _ := newServer(t)

	status, env := do(t, e, http.MethodGet, "/orders/abc", "")
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)

	status, env = do(t, e, http.MethodGet, "/orders/42", "")
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Kind)
}

func TestOrdersReport(t *testing.T) {
	e, _ := newServer(t)

	status, env := do(t, e, http.MethodGet, "/reports/orders", "")
	require.Equal(t, http.StatusOK, status)

	var blocks []blockResponse
	require.NoError(t, json.Unmarshal(env.Data, &blocks))
	require.Len(t, blocks, 2)
	assert.Equal(t, "heading", blocks[0].Kind)
	assert.Equal(t, 1, blocks[0].Level)
	assert.Equal(t, "paragraph", blocks[1].Kind)
	assert.Equal(t, "No orders to export.", blocks[1].Text)
}
