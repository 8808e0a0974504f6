package seeder

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Additional-Code/catalog/internal/entity"
	repo "github.com/Additional-Code/catalog/internal/repository/catalog"
)

// Seeder loads a small demo catalog for local/dev setups.
type Seeder struct {
	repo   *repo.Repository
	logger *zap.Logger
}

// Result reports what a seed run inserted.
type Result struct {
	Skipped   bool
	Suppliers int
	Products  int
	Orders    int
}

type demoProduct struct {
	name     string
	price    string
	category string
}

type demoOrder struct {
	product  int
	quantity int
	day      int
	customer string
}

var (
	demoSupplier = entity.Supplier{Name: "Acme", Contact: "sales@acme.example", Website: "https://acme.example"}
	demoProducts = []demoProduct{
		{name: "Widget", price: "9.99", category: "Hardware"},
		{name: "Gadget", price: "24.50", category: "Hardware"},
	}
	demoOrders = []demoOrder{
		{product: 0, quantity: 2, day: 15, customer: "J. Doe"},
		{product: 1, quantity: 1, day: 16, customer: "R. Roe"},
	}
)

// New constructs a Seeder on top of the catalog repository.
func New(r *repo.Repository, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{repo: r, logger: logger}
}

// Catalog inserts the demo supplier, products and orders in one transaction.
// It does nothing when the store already holds products.
func (s *Seeder) Catalog(ctx context.Context) (Result, error) {
	var res Result
	err := s.repo.RunInTx(ctx, func(ctx context.Context, tx *repo.Repository) error {
		counts, err := tx.Counts(ctx)
		if err != nil {
			return err
		}
		if counts.Products > 0 {
			res.Skipped = true
			return nil
		}

		supplier := demoSupplier
		supplierID, err := tx.InsertSupplier(ctx, &supplier)
		if err != nil {
			return err
		}
		res.Suppliers++

		productIDs := make([]int64, 0, len(demoProducts))
		for _, p := range demoProducts {
			id, err := tx.InsertProduct(ctx, &entity.Product{
				Name:       p.name,
				Price:      decimal.RequireFromString(p.price),
				Category:   p.category,
				SupplierID: supplierID,
			})
			if err != nil {
				return err
			}
			productIDs = append(productIDs, id)
		}
		res.Products = len(productIDs)

		for _, o := range demoOrders {
			_, err := tx.InsertOrder(ctx, &entity.Order{
				ProductID:    productIDs[o.product],
				Quantity:     o.quantity,
				OrderDate:    entity.NewDate(2023, time.January, o.day),
				CustomerName: o.customer,
			})
			if err != nil {
				return err
			}
			res.Orders++
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if res.Skipped {
		s.logger.Info("catalog already populated; seed skipped")
	} else {
		s.logger.Info("seeded catalog",
			zap.Int("suppliers", res.Suppliers),
			zap.Int("products", res.Products),
			zap.Int("orders", res.Orders),
		)
	}
	return res, nil
}
