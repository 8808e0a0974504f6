package ingest

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Additional-Code/catalog/internal/config"
	"github.com/Additional-Code/catalog/internal/entity"
	"github.com/Additional-Code/catalog/pkg/errorbank"
)

// DefaultMaxListings bounds how many listings a single ingest considers.
const DefaultMaxListings = 5

var (
	ingestTracer = otel.Tracer("github.com/Additional-Code/catalog/ingest")
	ingestMeter  = otel.Meter("github.com/Additional-Code/catalog/ingest")
)

// Failure records a listing that was skipped.
type Failure struct {
	Index  int    `json:"index"`
	Title  string `json:"title,omitempty"`
	Reason string `json:"reason"`
}

// Result is the outcome of one ingest. Products have no SupplierID yet; the
// caller links them once Supplier is persisted.
type Result struct {
	Supplier entity.Supplier
	Products []entity.Product
	Parsed   int
	Skipped  int
	Failures []Failure
}

// Adapter converts feeds into a supplier and its candidate products.
type Adapter struct {
	maxListings int
	category    string
	logger      *zap.Logger
	listings    metric.Int64Counter
}

// NewAdapter builds an Adapter from ingest configuration.
func NewAdapter(cfg config.Config, logger *zap.Logger) *Adapter {
	return newAdapter(cfg.Ingest.MaxListings, cfg.Ingest.Category, logger)
}

func newAdapter(maxListings int, category string, logger *zap.Logger) *Adapter {
	if maxListings <= 0 {
		maxListings = DefaultMaxListings
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	counter, err := ingestMeter.Int64Counter("catalog.ingest.listings",
		metric.WithDescription("Listings seen by the ingest adapter, by outcome"))
	if err != nil {
		logger.Warn("ingest counter unavailable", zap.Error(err))
	}
	return &Adapter{
		maxListings: maxListings,
		category:    category,
		logger:      logger.Named("ingest"),
		listings:    counter,
	}
}

// Ingest fetches feed and parses at most the configured number of listings.
// Listings that lack a title or carry an unparsable price are skipped and
// counted; only a failure of the feed as a whole returns an error.
func (a *Adapter) Ingest(ctx context.Context, feed Feed) (Result, error) {
	if feed == nil {
		return Result{}, errorbank.Ingest("feed is required")
	}

	src := feed.Source()
	ctx, span := ingestTracer.Start(ctx, "Adapter.Ingest", trace.WithAttributes(
		attribute.String("feed.supplier", src.Name),
		attribute.String("feed.website", src.Website),
	))
	defer span.End()

	if strings.TrimSpace(src.Name) == "" {
		err := errorbank.Ingest("feed has no supplier name")
		span.SetStatus(codes.Error, "invalid metadata")
		return Result{}, err
	}

	page, err := feed.Fetch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return Result{}, asIngestErr("fetch feed", err)
	}
	listings, err := page.Listings()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return Result{}, asIngestErr("parse feed", err)
	}
	if len(listings) > a.maxListings {
		listings = listings[:a.maxListings]
	}

	res := Result{
		Supplier: entity.Supplier{
			Name:    strings.TrimSpace(src.Name),
			Contact: strings.TrimSpace(src.Contact),
			Website: strings.TrimSpace(src.Website),
		},
		Products: make([]entity.Product, 0, len(listings)),
	}

	for i, listing := range listings {
		product, reason := a.parseListing(listing)
		if reason != "" {
			title := ""
			if listing != nil {
				title = strings.TrimSpace(listing.Title())
			}
			res.Skipped++
			res.Failures = append(res.Failures, Failure{Index: i, Title: title, Reason: reason})
			a.logger.Warn("skipping listing",
				zap.Int("index", i),
				zap.String("title", title),
				zap.String("reason", reason),
			)
			a.count(ctx, "skipped")
			continue
		}
		res.Parsed++
		res.Products = append(res.Products, product)
		a.count(ctx, "parsed")
	}

	span.SetAttributes(
		attribute.Int("ingest.parsed", res.Parsed),
		attribute.Int("ingest.skipped", res.Skipped),
	)
	a.logger.Info("feed ingested",
		zap.String("supplier", res.Supplier.Name),
		zap.Int("parsed", res.Parsed),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

func (a *Adapter) parseListing(listing Listing) (entity.Product, string) {
	if listing == nil {
		return entity.Product{}, "empty listing"
	}
	title := strings.TrimSpace(listing.Title())
	if title == "" {
		return entity.Product{}, "missing title"
	}
	price, err := ParsePrice(listing.Price())
	if err != nil {
		return entity.Product{}, err.Error()
	}
	return entity.Product{
		Name:     title,
		Price:    price,
		Category: a.category,
	}, ""
}

func (a *Adapter) count(ctx context.Context, outcome string) {
	if a.listings == nil {
		return
	}
	a.listings.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func asIngestErr(message string, err error) error {
	var appErr *errorbank.AppError
	if errors.As(err, &appErr) && appErr.Kind() == errorbank.KindIngest {
		return err
	}
	return errorbank.Ingest(message, errorbank.WithCause(err))
}
