package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/catalog/internal/config"
	"github.com/Additional-Code/catalog/internal/dto"
	"github.com/Additional-Code/catalog/internal/entity"
	"github.com/Additional-Code/catalog/internal/ingest"
	"github.com/Additional-Code/catalog/internal/messaging"
	"github.com/Additional-Code/catalog/internal/report"
	repo "github.com/Additional-Code/catalog/internal/repository/catalog"
	"github.com/Additional-Code/catalog/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/catalog/service/catalog")

// Service runs the catalog pipeline: ingest, populate, order, query and report.
type Service struct {
	repo      *repo.Repository
	adapter   *ingest.Adapter
	logger    *zap.Logger
	publisher messaging.Client
	messaging messagingConfig
	report    config.Report
}

// messagingConfig contains messaging specific knobs we care about.
type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Adapter    *ingest.Adapter
	Config     config.Config
	Logger     *zap.Logger
	Publisher  messaging.Client `optional:"true"`
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      p.Repository,
		adapter:   p.Adapter,
		logger:    logger.Named("catalog"),
		publisher: p.Publisher,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
		report: p.Config.Report,
	}
}

// PopulateResult summarises one ingest persisted into the catalog.
type PopulateResult struct {
	SupplierID int64            `json:"supplier_id"`
	ProductIDs []int64          `json:"product_ids"`
	Parsed     int              `json:"parsed"`
	Skipped    int              `json:"skipped"`
	Failures   []ingest.Failure `json:"failures,omitempty"`
}

// Populate ingests feed and stores its supplier and products in one
// transaction. Nothing is persisted if any insert fails.
func (s *Service) Populate(ctx context.Context, feed ingest.Feed) (PopulateResult, error) {
	ctx, span := serviceTracer.Start(ctx, "CatalogService.Populate")
	defer span.End()

	var out PopulateResult
	err := s.repo.RunInTx(ctx, func(ctx context.Context, tx *repo.Repository) error {
		res, err := s.populate(ctx, tx, feed)
		out = res
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "populate failed")
		return PopulateResult{}, err
	}
	return out, nil
}

func (s *Service) populate(ctx context.Context, tx *repo.Repository, feed ingest.Feed) (PopulateResult, error) {
	res, err := s.adapter.Ingest(ctx, feed)
	if err != nil {
		return PopulateResult{}, err
	}

	supplier := res.Supplier
	supplierID, err := tx.InsertSupplier(ctx, &supplier)
	if err != nil {
		return PopulateResult{}, err
	}

	out := PopulateResult{
		SupplierID: supplierID,
		ProductIDs: make([]int64, 0, len(res.Products)),
		Parsed:     res.Parsed,
		Skipped:    res.Skipped,
		Failures:   res.Failures,
	}
	for i := range res.Products {
		product := res.Products[i]
		product.SupplierID = supplierID
		id, err := tx.InsertProduct(ctx, &product)
		if err != nil {
			return PopulateResult{}, err
		}
		out.ProductIDs = append(out.ProductIDs, id)
	}

	s.logger.Info("catalog populated",
		zap.Int64("supplier_id", supplierID),
		zap.String("supplier", supplier.Name),
		zap.Int("products", len(out.ProductIDs)),
		zap.Int("skipped", out.Skipped),
	)
	return out, nil
}

type sampleOrder struct {
	quantity int
	date     entity.Date
	customer string
}

var sampleOrders = []sampleOrder{
	{quantity: 2, date: entity.NewDate(2023, time.January, 15), customer: "Ivanov I.I."},
	{quantity: 1, date: entity.NewDate(2023, time.January, 16), customer: "Petrov P.P."},
	{quantity: 3, date: entity.NewDate(2023, time.January, 17), customer: "Sidorov S.S."},
}

// CreateSampleOrders places the demo orders against the first products of
// the catalog, one order per product. An empty catalog yields no orders.
func (s *Service) CreateSampleOrders(ctx context.Context) ([]entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "CatalogService.CreateSampleOrders")
	defer span.End()

	var created []entity.Order
	err := s.repo.RunInTx(ctx, func(ctx context.Context, tx *repo.Repository) error {
		orders, err := s.createSampleOrders(ctx, tx)
		created = orders
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sample orders failed")
		return nil, err
	}

	for i := range created {
		s.publishOrderCreated(ctx, &created[i], "")
	}
	return created, nil
}

func (s *Service) createSampleOrders(ctx context.Context, tx *repo.Repository) ([]entity.Order, error) {
	products, err := tx.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		s.logger.Warn("no products to create sample orders for")
		return nil, nil
	}

	n := min(len(products), len(sampleOrders))
	created := make([]entity.Order, 0, n)
	for i := 0; i < n; i++ {
		order := entity.Order{
			ProductID:    products[i].ID,
			Quantity:     sampleOrders[i].quantity,
			OrderDate:    sampleOrders[i].date,
			CustomerName: sampleOrders[i].customer,
		}
		if _, err := tx.InsertOrder(ctx, &order); err != nil {
			return nil, err
		}
		created = append(created, order)
	}

	s.logger.Info("sample orders created", zap.Int("count", len(created)))
	return created, nil
}

// CreateOrder validates and persists a single order.
func (s *Service) CreateOrder(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errorbank.BadRequest("order payload is required")
	}
	ctx, span := serviceTracer.Start(ctx, "CatalogService.CreateOrder", trace.WithAttributes(
		attribute.Int64("order.product_id", order.ProductID),
	))
	defer span.End()

	if _, err := s.repo.InsertOrder(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return err
	}

	s.publishOrderCreated(ctx, order, "")
	return nil
}

// Orders returns every order joined with its product and supplier.
func (s *Service) Orders(ctx context.Context) ([]dto.OrderLine, error) {
	ctx, span := serviceTracer.Start(ctx, "CatalogService.Orders")
	defer span.End()

	lines, err := s.repo.QueryOrdersJoined(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, err
	}
	return lines, nil
}

// Order returns a single joined order line.
func (s *Service) Order(ctx context.Context, id int64) (dto.OrderLine, error) {
	ctx, span := serviceTracer.Start(ctx, "CatalogService.Order", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	line, err := s.repo.OrderLine(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return dto.OrderLine{}, err
	}
	return line, nil
}

// ReportResult describes a written report.
type ReportResult struct {
	Path   string `json:"path"`
	Format string `json:"format"`
	Orders int    `json:"orders"`
}

// ExportReport writes the order report to path in format. Empty values fall
// back to the configured defaults.
func (s *Service) ExportReport(ctx context.Context, path, format string) (ReportResult, error) {
	ctx, span := serviceTracer.Start(ctx, "CatalogService.ExportReport")
	defer span.End()

	res, staged, err := s.exportReport(ctx, s.repo, path, format)
	if err == nil {
		err = commitReport(staged)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "export failed")
		return ReportResult{}, err
	}
	s.logReport(res)
	return res, nil
}

// BuildReport returns the report document without writing it anywhere.
func (s *Service) BuildReport(ctx context.Context) (*report.Document, error) {
	lines, err := s.Orders(ctx)
	if err != nil {
		return nil, err
	}
	return report.Build(lines), nil
}

// exportReport stages the report next to its destination. The caller commits
// or discards the staged file.
func (s *Service) exportReport(ctx context.Context, r *repo.Repository, path, format string) (ReportResult, *report.Staged, error) {
	format, path, err := s.reportTarget(format, path)
	if err != nil {
		return ReportResult{}, nil, errorbank.BadRequest(err.Error())
	}
	writer, err := report.NewWriter(format)
	if err != nil {
		return ReportResult{}, nil, errorbank.BadRequest(err.Error())
	}

	lines, err := r.QueryOrdersJoined(ctx)
	if err != nil {
		return ReportResult{}, nil, err
	}
	staged, err := report.Build(lines).Stage(writer, path)
	if err != nil {
		return ReportResult{}, nil, errorbank.Internal("save report", errorbank.WithCause(err), errorbank.WithDetail("path", path))
	}
	return ReportResult{Path: path, Format: format, Orders: len(lines)}, staged, nil
}

func commitReport(staged *report.Staged) error {
	if err := staged.Commit(); err != nil {
		return errorbank.Internal("save report", errorbank.WithCause(err), errorbank.WithDetail("path", staged.Path()))
	}
	return nil
}

func (s *Service) logReport(res ReportResult) {
	s.logger.Info("report written", zap.String("path", res.Path), zap.String("format", res.Format), zap.Int("orders", res.Orders))
}

func (s *Service) reportTarget(format, path string) (string, string, error) {
	if format == "" {
		format = s.report.Format
	}
	format, err := report.NormalizeFormat(format)
	if err != nil {
		return "", "", err
	}
	if path == "" {
		path = s.report.OutputPath
	}
	if path == "" {
		path = report.DefaultPath(format)
	}
	return format, path, nil
}

// RunOptions overrides the defaults of a pipeline run.
type RunOptions struct {
	Feed       ingest.Feed
	OutputPath string
	Format     string
	// SkipSampleOrders leaves order creation to another caller.
	SkipSampleOrders bool
}

// RunResult summarises a completed pipeline run.
type RunResult struct {
	RunID    string         `json:"run_id"`
	Populate PopulateResult `json:"populate"`
	Orders   []entity.Order `json:"orders"`
	Report   ReportResult   `json:"report"`
}

// Run executes the whole pipeline inside one transaction: ingest and
// populate, sample orders, joined query and report. The report is staged
// inside the transaction and moved into place only after the commit, so a
// failed run rolls back every insert and leaves any earlier report untouched.
func (s *Service) Run(ctx context.Context, opts RunOptions) (RunResult, error) {
	if opts.Feed == nil {
		return RunResult{}, errorbank.Ingest("feed is required")
	}
	runID := uuid.NewString()
	logger := s.logger.With(zap.String("run_id", runID))

	ctx, span := serviceTracer.Start(ctx, "CatalogService.Run", trace.WithAttributes(attribute.String("run.id", runID)))
	defer span.End()

	out := RunResult{RunID: runID}
	var staged *report.Staged
	err := s.repo.RunInTx(ctx, func(ctx context.Context, tx *repo.Repository) error {
		populated, err := s.populate(ctx, tx, opts.Feed)
		if err != nil {
			return err
		}
		out.Populate = populated

		if !opts.SkipSampleOrders {
			orders, err := s.createSampleOrders(ctx, tx)
			if err != nil {
				return err
			}
			out.Orders = orders
		}

		res, st, err := s.exportReport(ctx, tx, opts.OutputPath, opts.Format)
		if err != nil {
			return err
		}
		staged = st
		out.Report = res
		logger.Debug("report staged", zap.String("path", res.Path))
		return nil
	})
	if err == nil {
		err = commitReport(staged)
	} else if staged != nil {
		staged.Discard()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "run failed")
		logger.Error("pipeline run failed", zap.Error(err))
		return RunResult{}, fmt.Errorf("pipeline run %s: %w", runID, err)
	}
	s.logReport(out.Report)

	for i := range out.Orders {
		s.publishOrderCreated(ctx, &out.Orders[i], runID)
	}
	logger.Info("pipeline run completed",
		zap.Int("products", len(out.Populate.ProductIDs)),
		zap.Int("orders", len(out.Orders)),
		zap.String("report", out.Report.Path),
	)
	return out, nil
}

func (s *Service) publishOrderCreated(ctx context.Context, order *entity.Order, runID string) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	event := OrderCreatedEvent{
		ID:           order.ID,
		ProductID:    order.ProductID,
		Quantity:     order.Quantity,
		OrderDate:    order.OrderDate,
		CustomerName: order.CustomerName,
		RunID:        runID,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal order created", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, []byte(fmt.Sprintf("order-%d", order.ID)), payload); err != nil {
		s.logger.Error("publish order created", zap.Error(err))
	}
}

// OrderCreatedEvent is emitted after an order has been committed.
type OrderCreatedEvent struct {
	ID           int64       `json:"id"`
	ProductID    int64       `json:"product_id"`
	Quantity     int         `json:"quantity"`
	OrderDate    entity.Date `json:"order_date"`
	CustomerName string      `json:"customer_name"`
	RunID        string      `json:"run_id,omitempty"`
}
