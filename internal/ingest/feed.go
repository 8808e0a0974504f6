// Package ingest turns an external product feed into candidate catalog rows.
package ingest

import (
	"context"
	"net/http"
)

// Source describes who publishes a feed. It becomes the ingested supplier.
type Source struct {
	Name    string
	Contact string
	Website string
}

// Listing is one candidate product node of a fetched page.
type Listing interface {
	Title() string
	Price() string
}

// Page is a fetched feed body that can be split into listings.
type Page interface {
	Listings() ([]Listing, error)
}

// Feed is an opaque handle to an external page of product listings.
type Feed interface {
	Source() Source
	Fetch(ctx context.Context) (Page, error)
}

// Fetcher retrieves raw page bytes.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers http.Header) ([]byte, error)
}

// StaticListing is a Listing backed by plain strings.
type StaticListing struct {
	TitleText string
	PriceText string
}

func (l StaticListing) Title() string { return l.TitleText }
func (l StaticListing) Price() string { return l.PriceText }

// StaticPage is a Page backed by an in-memory slice of listings.
type StaticPage []Listing

func (p StaticPage) Listings() ([]Listing, error) { return p, nil }

// StaticFeed is a Feed that never leaves the process.
type StaticFeed struct {
	Src  Source
	Page Page
	Err  error
}

func (f StaticFeed) Source() Source { return f.Src }

func (f StaticFeed) Fetch(context.Context) (Page, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Page, nil
}
