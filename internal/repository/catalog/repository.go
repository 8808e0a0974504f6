package catalog

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/catalog/internal/database"
	"github.com/Additional-Code/catalog/internal/entity"
	"github.com/Additional-Code/catalog/pkg/errorbank"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/catalog/repository/catalog")

// Repository owns the durable representation of suppliers, products and orders.
//
// A Repository returned by NewRepository or New runs every call on its own;
// the one handed to a RunInTx callback runs every call inside that transaction.
type Repository struct {
	root   *bun.DB
	writer bun.IDB
	reader bun.IDB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		root:   conns.Writer,
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// New wires a repository that reads and writes through a single handle.
func New(db *bun.DB) *Repository {
	return &Repository{root: db, writer: db, reader: db}
}

// InTx reports whether the repository is bound to an open transaction.
func (r *Repository) InTx() bool {
	return r.root == nil
}

// RunInTx executes fn inside one transaction. The transaction commits when fn
// returns nil and rolls back otherwise, discarding every write fn made.
// Calling RunInTx on a transactional repository joins the outer transaction.
func (r *Repository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx *Repository) error) error {
	if r.InTx() {
		return fn(ctx, r)
	}

	ctx, span := repoTracer.Start(ctx, "CatalogRepository.RunInTx")
	defer span.End()

	err := r.root.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &Repository{writer: tx, reader: tx})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction rolled back")
		var appErr *errorbank.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return storeError("transaction failed", err)
	}
	return nil
}

// InsertSupplier validates and persists a supplier and returns its new id.
func (r *Repository) InsertSupplier(ctx context.Context, supplier *entity.Supplier) (int64, error) {
	if supplier == nil {
		return 0, errorbank.Constraint("supplier is required")
	}
	if strings.TrimSpace(supplier.Name) == "" {
		return 0, errorbank.Constraint("supplier name must not be empty")
	}

	ctx, span := repoTracer.Start(ctx, "CatalogRepository.InsertSupplier", trace.WithAttributes(attribute.String("supplier.name", supplier.Name)))
	defer span.End()

	supplier.ID = 0
	if _, err := r.writer.NewInsert().Model(supplier).Exec(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return 0, storeError("insert supplier", err)
	}
	return supplier.ID, nil
}

// InsertProduct validates and persists a product. The referenced supplier
// must already exist.
func (r *Repository) InsertProduct(ctx context.Context, product *entity.Product) (int64, error) {
	if product == nil {
		return 0, errorbank.Constraint("product is required")
	}
	if strings.TrimSpace(product.Name) == "" {
		return 0, errorbank.Constraint("product name must not be empty")
	}
	if product.Price.IsNegative() {
		return 0, errorbank.Constraint("product price must not be negative",
			errorbank.WithDetail("price", product.Price.String()))
	}

	ctx, span := repoTracer.Start(ctx, "CatalogRepository.InsertProduct", trace.WithAttributes(
		attribute.String("product.name", product.Name),
		attribute.Int64("product.supplier_id", product.SupplierID),
	))
	defer span.End()

	err := r.RunInTx(ctx, func(ctx context.Context, tx *Repository) error {
		ok, err := tx.exists(ctx, (*entity.Supplier)(nil), product.SupplierID)
		if err != nil {
			return err
		}
		if !ok {
			return errorbank.Constraint("supplier does not exist",
				errorbank.WithDetail("supplier_id", product.SupplierID))
		}

		product.ID = 0
		if _, err := tx.writer.NewInsert().Model(product).Exec(ctx); err != nil {
			return storeError("insert product", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return 0, err
	}
	return product.ID, nil
}

// InsertOrder validates and persists an order. The referenced product must
// already exist.
func (r *Repository) InsertOrder(ctx context.Context, order *entity.Order) (int64, error) {
	if order == nil {
		return 0, errorbank.Constraint("order is required")
	}
	if order.Quantity < 1 {
		return 0, errorbank.Constraint("order quantity must be at least 1",
			errorbank.WithDetail("quantity", order.Quantity))
	}
	if strings.TrimSpace(order.CustomerName) == "" {
		return 0, errorbank.Constraint("order customer name must not be empty")
	}
	if order.OrderDate.IsZero() {
		return 0, errorbank.Constraint("order date is required")
	}

	ctx, span := repoTracer.Start(ctx, "CatalogRepository.InsertOrder", trace.WithAttributes(
		attribute.Int64("order.product_id", order.ProductID),
		attribute.Int("order.quantity", order.Quantity),
	))
	defer span.End()

	err := r.RunInTx(ctx, func(ctx context.Context, tx *Repository) error {
		ok, err := tx.exists(ctx, (*entity.Product)(nil), order.ProductID)
		if err != nil {
			return err
		}
		if !ok {
			return errorbank.Constraint("product does not exist",
				errorbank.WithDetail("product_id", order.ProductID))
		}

		order.ID = 0
		if _, err := tx.writer.NewInsert().Model(order).Exec(ctx); err != nil {
			return storeError("insert order", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return 0, err
	}
	return order.ID, nil
}

// ListProducts returns every product in insertion order.
func (r *Repository) ListProducts(ctx context.Context) ([]entity.Product, error) {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.ListProducts")
	defer span.End()

	var products []entity.Product
	if err := r.reader.NewSelect().Model(&products).OrderExpr("id ASC").Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, storeError("list products", err)
	}
	return products, nil
}

// Counts reports the number of rows per catalog table.
type Counts struct {
	Suppliers int `json:"suppliers"`
	Products  int `json:"products"`
	Orders    int `json:"orders"`
}

// Counts returns the current row count of each table.
func (r *Repository) Counts(ctx context.Context) (Counts, error) {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.Counts")
	defer span.End()

	var out Counts
	targets := []struct {
		model any
		dest  *int
	}{
		{(*entity.Supplier)(nil), &out.Suppliers},
		{(*entity.Product)(nil), &out.Products},
		{(*entity.Order)(nil), &out.Orders},
	}
	for _, target := range targets {
		n, err := r.reader.NewSelect().Model(target.model).Count(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "count failed")
			return Counts{}, storeError("count rows", err)
		}
		*target.dest = n
	}
	return out, nil
}

func (r *Repository) exists(ctx context.Context, model any, id int64) (bool, error) {
	if id <= 0 {
		return false, nil
	}
	ok, err := r.writer.NewSelect().Model(model).Where("id = ?", id).Exists(ctx)
	if err != nil {
		return false, storeError("lookup reference", err)
	}
	return ok, nil
}

func storeError(message string, err error) error {
	if isConnectionErr(err) {
		return errorbank.Unavailable(message, errorbank.WithCause(err))
	}
	return errorbank.Internal(message, errorbank.WithCause(err))
}

func isConnectionErr(err error) bool {
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
