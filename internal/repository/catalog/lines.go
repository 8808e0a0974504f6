package catalog

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/catalog/internal/dto"
	"github.com/Additional-Code/catalog/internal/entity"
	"github.com/Additional-Code/catalog/pkg/errorbank"
)

// lineRow is the flat scan target of the orders ⨝ products ⨝ suppliers query.
// Product and supplier columns come from LEFT JOINs and are NULL when the
// foreign key does not resolve.
type lineRow struct {
	OrderID           int64               `bun:"order_id"`
	OrderProductID    int64               `bun:"order_product_id"`
	Quantity          int                 `bun:"quantity"`
	OrderDate         entity.Date         `bun:"order_date"`
	CustomerName      string              `bun:"customer_name"`
	ProductID         sql.NullInt64       `bun:"product_id"`
	ProductName       string              `bun:"product_name"`
	Price             decimal.NullDecimal `bun:"price"`
	Category          string              `bun:"category"`
	ProductSupplierID sql.NullInt64       `bun:"product_supplier_id"`
	SupplierID        sql.NullInt64       `bun:"supplier_id"`
	SupplierName      string              `bun:"supplier_name"`
	Contact           string              `bun:"contact"`
	Website           string              `bun:"website"`
}

func (row lineRow) toLine() (dto.OrderLine, error) {
	if !row.ProductID.Valid {
		return dto.OrderLine{}, errorbank.Integrity("order references a missing product",
			errorbank.WithDetail("order_id", row.OrderID),
			errorbank.WithDetail("product_id", row.OrderProductID))
	}
	if !row.SupplierID.Valid {
		return dto.OrderLine{}, errorbank.Integrity("product references a missing supplier",
			errorbank.WithDetail("order_id", row.OrderID),
			errorbank.WithDetail("product_id", row.ProductID.Int64),
			errorbank.WithDetail("supplier_id", row.ProductSupplierID.Int64))
	}

	return dto.OrderLine{
		Order: entity.Order{
			ID:           row.OrderID,
			ProductID:    row.OrderProductID,
			Quantity:     row.Quantity,
			OrderDate:    row.OrderDate,
			CustomerName: row.CustomerName,
		},
		Product: entity.Product{
			ID:         row.ProductID.Int64,
			Name:       row.ProductName,
			Price:      row.Price.Decimal,
			Category:   row.Category,
			SupplierID: row.ProductSupplierID.Int64,
		},
		Supplier: entity.Supplier{
			ID:      row.SupplierID.Int64,
			Name:    row.SupplierName,
			Contact: row.Contact,
			Website: row.Website,
		},
	}, nil
}

// QueryOrdersJoined returns every order with its product and supplier, in
// order id (insertion) order. An order whose product or supplier is missing
// fails the whole query with an integrity error.
func (r *Repository) QueryOrdersJoined(ctx context.Context) ([]dto.OrderLine, error) {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.QueryOrdersJoined")
	defer span.End()

	lines, err := r.selectLines(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "joined query failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("orders.count", len(lines)))
	return lines, nil
}

// OrderLine returns the joined line of a single order.
func (r *Repository) OrderLine(ctx context.Context, id int64) (dto.OrderLine, error) {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.OrderLine", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	lines, err := r.selectLines(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("o.id = ?", id)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "joined query failed")
		return dto.OrderLine{}, err
	}
	if len(lines) == 0 {
		span.SetStatus(codes.Error, "not found")
		return dto.OrderLine{}, errorbank.NotFound("order not found", errorbank.WithDetail("order_id", id))
	}
	return lines[0], nil
}

func (r *Repository) selectLines(ctx context.Context, filter func(*bun.SelectQuery) *bun.SelectQuery) ([]dto.OrderLine, error) {
	q := r.reader.NewSelect().
		TableExpr("orders AS o").
		ColumnExpr("o.id AS order_id, o.product_id AS order_product_id, o.quantity, o.order_date, o.customer_name").
		ColumnExpr("p.id AS product_id, p.name AS product_name, p.price, p.category, p.supplier_id AS product_supplier_id").
		ColumnExpr("s.id AS supplier_id, s.name AS supplier_name, s.contact, s.website").
		Join("LEFT JOIN products AS p ON p.id = o.product_id").
		Join("LEFT JOIN suppliers AS s ON s.id = p.supplier_id").
		OrderExpr("o.id ASC")
	if filter != nil {
		q = filter(q)
	}

	var rows []lineRow
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, storeError("query orders", err)
	}

	lines := make([]dto.OrderLine, 0, len(rows))
	for _, row := range rows {
		line, err := row.toLine()
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}
