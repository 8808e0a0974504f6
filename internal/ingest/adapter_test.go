package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Additional-Code/catalog/pkg/errorbank"
)

var acme = Source{Name: "Acme", Contact: "sales@acme.test", Website: "https://acme.test"}

func TestIngestSkipsBadListings(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	adapter := newAdapter(5, "Books", zap.New(core))

	feed := StaticFeed{Src: acme, Page: StaticPage{
		StaticListing{TitleText: "Widget", PriceText: "9.99"},
		StaticListing{TitleText: "", PriceText: "1.00"},
		StaticListing{TitleText: "Gadget", PriceText: "call us"},
		StaticListing{TitleText: " Gizmo ", PriceText: "120,50 ₽"},
	}}

	res, err := adapter.Ingest(context.Background(), feed)
	require.NoError(t, err)

	assert.Equal(t, "Acme", res.Supplier.Name)
	assert.Equal(t, "sales@acme.test", res.Supplier.Contact)
	assert.Equal(t, "https://acme.test", res.Supplier.Website)
	assert.Equal(t, 2, res.Parsed)
	assert.Equal(t, 2, res.Skipped)
	require.Len(t, res.Products, 2)
	assert.Equal(t, "Widget", res.Products[0].Name)
	assert.Equal(t, "Gizmo", res.Products[1].Name)
	assert.Equal(t, "120.5", res.Products[1].Price.String())
	assert.Equal(t, "Books", res.Products[0].Category)
	assert.Zero(t, res.Products[0].SupplierID)

	require.Len(t, res.Failures, 2)
	assert.Equal(t, 1, res.Failures[0].Index)
	assert.Equal(t, "missing title", res.Failures[0].Reason)
	assert.Equal(t, "Gadget", res.Failures[1].Title)
	assert.Equal(t, 2, logs.FilterMessage("skipping listing").Len())
}

func TestIngestBoundsListings(t *testing.T) {
	adapter := newAdapter(0, "", nil)

	page := StaticPage{}
	for i := 0; i < 8; i++ {
		page = append(page, StaticListing{TitleText: "Book", PriceText: "100"})
	}
	// Listings past the bound are never inspected.
	page[6] = nil

	res, err := adapter.Ingest(context.Background(), StaticFeed{Src: acme, Page: page})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxListings, res.Parsed)
	assert.Len(t, res.Products, DefaultMaxListings)
	assert.Zero(t, res.Skipped)
}

func TestIngestAllListingsFail(t *testing.T) {
	adapter := newAdapter(5, "", nil)
	feed := StaticFeed{Src: acme, Page: StaticPage{
		StaticListing{TitleText: "", PriceText: ""},
		nil,
	}}

	res, err := adapter.Ingest(context.Background(), feed)
	require.NoError(t, err)
	assert.Equal(t, "Acme", res.Supplier.Name)
	assert.Empty(t, res.Products)
	assert.Equal(t, 2, res.Skipped)
}

func TestIngestWholeFeedFailures(t *testing.T) {
	adapter := newAdapter(5, "", nil)

	t.Run("fetch error", func(t *testing.T) {
		cause := errors.New("connection refused")
		_, err := adapter.Ingest(context.Background(), StaticFeed{Src: acme, Err: cause})
		require.Error(t, err)
		assert.True(t, errorbank.Is(err, errorbank.KindIngest))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("missing supplier name", func(t *testing.T) {
		_, err := adapter.Ingest(context.Background(), StaticFeed{Page: StaticPage{}})
		assert.True(t, errorbank.Is(err, errorbank.KindIngest))
	})

	t.Run("nil feed", func(t *testing.T) {
		_, err := adapter.Ingest(context.Background(), nil)
		assert.True(t, errorbank.Is(err, errorbank.KindIngest))
	})

	t.Run("unlistable page", func(t *testing.T) {
		_, err := adapter.Ingest(context.Background(), StaticFeed{Src: acme, Page: brokenPage{}})
		assert.True(t, errorbank.Is(err, errorbank.KindIngest))
	})
}

type brokenPage struct{}

func (brokenPage) Listings() ([]Listing, error) { return nil, errors.New("unexpected markup") }
