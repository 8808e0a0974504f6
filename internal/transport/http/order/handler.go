package order

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/catalog/internal/dto"
	"github.com/Additional-Code/catalog/internal/entity"
	"github.com/Additional-Code/catalog/internal/presentation/http/response"
	"github.com/Additional-Code/catalog/internal/report"
	service "github.com/Additional-Code/catalog/internal/service/catalog"
	"github.com/Additional-Code/catalog/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/catalog/transport/http/order")

// Handler exposes order and report endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/orders")
	g.GET("", h.list)
	g.GET("/:id", h.getByID)
	g.POST("", h.create)

	e.GET("/reports/orders", h.report)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list")
	defer span.End()

	lines, err := h.svc.Orders(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}

	out := make([]dto.OrderLineResponse, 0, len(lines))
	for _, line := range lines {
		out = append(out, dto.NewOrderLineResponse(line))
	}
	return b.WithData(out).WithMeta("count", len(out)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	line, err := h.svc.Order(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.NewOrderLineResponse(line)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload dto.CreateOrderRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if payload.ProductID <= 0 || payload.CustomerName == "" || payload.OrderDate == "" {
		return b.WithError(errorbank.BadRequest("product_id, order_date and customer_name are required")).Build()
	}
	date, err := entity.ParseDate(payload.OrderDate)
	if err != nil {
		return b.WithError(errorbank.BadRequest("order_date must be YYYY-MM-DD", errorbank.WithCause(err))).Build()
	}

	order := &entity.Order{
		ProductID:    payload.ProductID,
		Quantity:     payload.Quantity,
		OrderDate:    date,
		CustomerName: payload.CustomerName,
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create")
	span.SetAttributes(attribute.Int64("order.product_id", order.ProductID))
	defer span.End()

	if err := h.svc.CreateOrder(ctx, order); err != nil {
		return b.WithError(err).Build()
	}

	line, err := h.svc.Order(ctx, order.ID)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(dto.NewOrderLineResponse(line)).Build()
}

type blockResponse struct {
	Kind  string `json:"kind"`
	Level int    `json:"level,omitempty"`
	Text  string `json:"text"`
}

func (h *Handler) report(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "reports.orders")
	defer span.End()

	doc, err := h.svc.BuildReport(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}

	blocks := doc.Blocks()
	out := make([]blockResponse, 0, len(blocks))
	for _, block := range blocks {
		item := blockResponse{Kind: "paragraph", Text: block.Text}
		if block.Kind == report.BlockHeading {
			item.Kind = "heading"
			item.Level = block.Level
		}
		out = append(out, item)
	}
	return b.WithData(out).Build()
}
