package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Additional-Code/catalog/internal/config"
	"github.com/Additional-Code/catalog/internal/entity"
	"github.com/Additional-Code/catalog/internal/ingest"
	"github.com/Additional-Code/catalog/internal/messaging"
	"github.com/Additional-Code/catalog/internal/report"
	repo "github.com/Additional-Code/catalog/internal/repository/catalog"
	"github.com/Additional-Code/catalog/internal/testutil"
	"github.com/Additional-Code/catalog/pkg/errorbank"
)

type recordingPublisher struct {
	keys     []string
	payloads [][]byte
}

func (p *recordingPublisher) Publish(_ context.Context, key, value []byte) error {
	p.keys = append(p.keys, string(key))
	p.payloads = append(p.payloads, value)
	return nil
}

func (p *recordingPublisher) Consume(ctx context.Context, _ messaging.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (p *recordingPublisher) Topic() string { return "catalog.orders" }

type fixture struct {
	svc       *Service
	repo      *repo.Repository
	publisher *recordingPublisher
	dir       string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	return newFixtureWith(t, testutil.NewCatalogDB(t), zap.NewNop())
}

func newFixtureWith(t *testing.T, db *bun.DB, logger *zap.Logger) fixture {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Config{
		Messaging: config.Messaging{Enabled: true, Kafka: config.Kafka{Topic: "catalog.orders"}},
		Ingest:    config.Ingest{MaxListings: 5, Category: "Books"},
		Report:    config.Report{Format: report.FormatText, OutputPath: filepath.Join(dir, "orders.txt")},
	}
	r := repo.New(db)
	pub := &recordingPublisher{}
	svc := NewService(Params{
		Repository: r,
		Adapter:    ingest.NewAdapter(cfg, zap.NewNop()),
		Config:     cfg,
		Logger:     logger,
		Publisher:  pub,
	})
	return fixture{svc: svc, repo: r, publisher: pub, dir: dir}
}

func bookFeed(listings ...ingest.Listing) ingest.Feed {
	return ingest.StaticFeed{
		Src:  ingest.Source{Name: "LitRes", Contact: "info@litres.ru", Website: "https://www.litres.ru/"},
		Page: ingest.StaticPage(listings),
	}
}

func book(title, price string) ingest.Listing {
	return ingest.StaticListing{TitleText: title, PriceText: price}
}

func counts(t *testing.T, r *repo.Repository) repo.Counts {
	t.Helper()
	c, err := r.Counts(context.Background())
	require.NoError(t, err)
	return c
}

func TestAcmeScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	supplierID, err := f.repo.InsertSupplier(ctx, &entity.Supplier{Name: "Acme"})
	require.NoError(t, err)
	productID, err := f.repo.InsertProduct(ctx, &entity.Product{Name: "Widget", Price: decimal.RequireFromString("9.99"), SupplierID: supplierID})
	require.NoError(t, err)

	order := &entity.Order{ProductID: productID, Quantity: 2, OrderDate: entity.NewDate(2023, time.January, 15), CustomerName: "J. Doe"}
	require.NoError(t, f.svc.CreateOrder(ctx, order))

	lines, err := f.svc.Orders(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Order.Quantity)
	assert.Equal(t, "Widget", lines[0].Product.Name)
	assert.Equal(t, "9.99", lines[0].Product.Price.StringFixed(2))
	assert.Equal(t, "Acme", lines[0].Supplier.Name)

	doc, err := f.svc.BuildReport(ctx)
	require.NoError(t, err)
	blocks := doc.Blocks()
	require.Len(t, blocks, 3)
	for _, field := range []string{"#1", "Widget", "9.99", "quantity: 2", "2023-01-15", "J. Doe", "Acme"} {
		assert.Contains(t, blocks[2].Text, field)
	}

	require.Len(t, f.publisher.payloads, 1)
	var event OrderCreatedEvent
	require.NoError(t, json.Unmarshal(f.publisher.payloads[0], &event))
	assert.Equal(t, order.ID, event.ID)
	assert.Equal(t, "2023-01-15", event.OrderDate.String())
}

func TestCreateOrderRejectsUnknownProduct(t *testing.T) {
	f := newFixture(t)
	err := f.svc.CreateOrder(context.Background(), &entity.Order{ProductID: 5, Quantity: 1, OrderDate: entity.NewDate(2023, 1, 1), CustomerName: "J. Doe"})
	assert.True(t, errorbank.Is(err, errorbank.KindConstraint))
	assert.Empty(t, f.publisher.payloads)
}

func TestPopulate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.Populate(ctx, bookFeed(
		book("Book A", "349 ₽"),
		book("", "100 ₽"),
		book("Book B", "499 ₽"),
		book("Book C", "199,90 ₽"),
	))
	require.NoError(t, err)

	assert.Positive(t, res.SupplierID)
	assert.Len(t, res.ProductIDs, 3)
	assert.Equal(t, 3, res.Parsed)
	assert.Equal(t, 1, res.Skipped)

	products, err := f.repo.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 3)
	for _, p := range products {
		assert.Equal(t, res.SupplierID, p.SupplierID)
		assert.Equal(t, "Books", p.Category)
	}
	assert.Equal(t, "199.90", products[2].Price.StringFixed(2))
}

func TestPopulateFeedFailurePersistsNothing(t *testing.T) {
	f := newFixture(t)
	feed := ingest.StaticFeed{Src: ingest.Source{Name: "LitRes"}, Err: errors.New("dial tcp: timeout")}

	_, err := f.svc.Populate(context.Background(), feed)
	require.Error(t, err)
	assert.True(t, errorbank.Is(err, errorbank.KindIngest))
	assert.Equal(t, repo.Counts{}, counts(t, f.repo))
}

func TestCreateSampleOrders(t *testing.T) {
	ctx := context.Background()

	t.Run("no products", func(t *testing.T) {
		f := newFixture(t)
		orders, err := f.svc.CreateSampleOrders(ctx)
		require.NoError(t, err)
		assert.Empty(t, orders)
		assert.Empty(t, f.publisher.keys)
	})

	t.Run("fewer products than samples", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Populate(ctx, bookFeed(book("Book A", "10"), book("Book B", "20")))
		require.NoError(t, err)

		orders, err := f.svc.CreateSampleOrders(ctx)
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, "Ivanov I.I.", orders[0].CustomerName)
		assert.Equal(t, 2, orders[0].Quantity)
		assert.Equal(t, "2023-01-16", orders[1].OrderDate.String())
		assert.Len(t, f.publisher.keys, 2)
	})
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.Run(ctx, RunOptions{Feed: bookFeed(
		book("Book A", "349 ₽"),
		book("Book B", "oops"),
		book("Book C", "499 ₽"),
		book("Book D", "599 ₽"),
		book("Book E", "699 ₽"),
		book("Book F", "799 ₽"),
	)})
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 4, res.Populate.Parsed)
	assert.Equal(t, 1, res.Populate.Skipped)
	assert.Len(t, res.Orders, 3)
	assert.Equal(t, 3, res.Report.Orders)
	assert.Equal(t, filepath.Join(f.dir, "orders.txt"), res.Report.Path)

	data, err := os.ReadFile(res.Report.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Total orders: 3")
	assert.Contains(t, string(data), "customer: Sidorov S.S. supplier: LitRes")

	assert.Equal(t, repo.Counts{Suppliers: 1, Products: 4, Orders: 3}, counts(t, f.repo))

	require.Len(t, f.publisher.payloads, 3)
	var event OrderCreatedEvent
	require.NoError(t, json.Unmarshal(f.publisher.payloads[2], &event))
	assert.Equal(t, res.RunID, event.RunID)
}

func TestRunRollsBackOnLateFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Run(ctx, RunOptions{
		Feed:   bookFeed(book("Book A", "349 ₽"), book("Book B", "499 ₽")),
		Format: "pdf",
	})
	require.Error(t, err)
	assert.True(t, errorbank.Is(err, errorbank.KindBadRequest))

	assert.Equal(t, repo.Counts{}, counts(t, f.repo))
	assert.Empty(t, f.publisher.payloads)
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunWithoutValidListingsReportsNoOrders(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Run(context.Background(), RunOptions{Feed: bookFeed(book("", ""), book("Book", "n/a"))})
	require.NoError(t, err)
	assert.Zero(t, res.Populate.Parsed)
	assert.Equal(t, 2, res.Populate.Skipped)
	assert.Empty(t, res.Orders)
	assert.Zero(t, res.Report.Orders)

	data, err := os.ReadFile(res.Report.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), report.NoOrdersText)

	assert.Equal(t, repo.Counts{Suppliers: 1}, counts(t, f.repo))
	assert.Empty(t, f.publisher.payloads)
}

func TestRunFailedCommitKeepsPreviousReport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancelling once the report is staged makes the commit fail.
	core, _ := observer.New(zap.DebugLevel)
	logger := zap.New(zapcore.RegisterHooks(core, func(e zapcore.Entry) error {
		if e.Message == "report staged" {
			cancel()
		}
		return nil
	}))
	f := newFixtureWith(t, testutil.NewCatalogFileDB(t), logger)

	path := filepath.Join(f.dir, "orders.txt")
	require.NoError(t, os.WriteFile(path, []byte("previous run"), 0o600))

	_, err := f.svc.Run(ctx, RunOptions{Feed: bookFeed(book("Book A", "349 ₽"), book("Book B", "499 ₽"))})
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous run", string(data))
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	assert.Equal(t, repo.Counts{}, counts(t, f.repo))
	assert.Empty(t, f.publisher.payloads)
}

func TestRunSkippingSampleOrdersReportsNoOrders(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Run(context.Background(), RunOptions{
		Feed:             bookFeed(book("Book A", "100")),
		SkipSampleOrders: true,
	})
	require.NoError(t, err)
	assert.Zero(t, res.Report.Orders)

	data, err := os.ReadFile(res.Report.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), report.NoOrdersText)
}

func TestExportReportDefaults(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.ExportReport(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, report.FormatText, res.Format)
	assert.FileExists(t, res.Path)

	odtPath := filepath.Join(f.dir, "custom.odt")
	res, err = f.svc.ExportReport(context.Background(), odtPath, report.FormatODT)
	require.NoError(t, err)
	assert.Equal(t, odtPath, res.Path)
	assert.FileExists(t, odtPath)
}
