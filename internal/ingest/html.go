package ingest

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Additional-Code/catalog/internal/config"
	"github.com/Additional-Code/catalog/pkg/errorbank"
)

// Selectors locate listings and their fields in an HTML page.
type Selectors struct {
	Listing string
	Title   string
	Price   string
}

// HTMLFeed is a Feed backed by a web page parsed with CSS selectors.
type HTMLFeed struct {
	url       string
	headers   http.Header
	fetcher   Fetcher
	selectors Selectors
	source    Source
}

// NewHTMLFeed builds a feed for url. Website defaults to url.
func NewHTMLFeed(url string, fetcher Fetcher, selectors Selectors, source Source, headers http.Header) *HTMLFeed {
	if source.Website == "" {
		source.Website = url
	}
	return &HTMLFeed{
		url:       url,
		headers:   headers,
		fetcher:   fetcher,
		selectors: selectors,
		source:    source,
	}
}

// NewConfiguredFeed builds the default feed described by ingest configuration.
func NewConfiguredFeed(cfg config.Config, fetcher Fetcher) Feed {
	headers := http.Header{}
	if cfg.Ingest.UserAgent != "" {
		headers.Set("User-Agent", cfg.Ingest.UserAgent)
	}
	return NewHTMLFeed(cfg.Ingest.FeedURL, fetcher,
		Selectors{
			Listing: cfg.Ingest.ListingSelector,
			Title:   cfg.Ingest.TitleSelector,
			Price:   cfg.Ingest.PriceSelector,
		},
		Source{
			Name:    cfg.Ingest.SupplierName,
			Contact: cfg.Ingest.SupplierContact,
		},
		headers,
	)
}

func (f *HTMLFeed) Source() Source { return f.source }

// Fetch downloads and parses the page.
func (f *HTMLFeed) Fetch(ctx context.Context) (Page, error) {
	body, err := f.fetcher.Fetch(ctx, f.url, f.headers)
	if err != nil {
		return nil, err
	}
	return ParseHTML(body, f.selectors)
}

// ParseHTML parses body into a page split by selectors.
func ParseHTML(body []byte, selectors Selectors) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, errorbank.Ingest("page is not parsable HTML", errorbank.WithCause(err))
	}
	return &htmlPage{doc: doc, selectors: selectors}, nil
}

type htmlPage struct {
	doc       *goquery.Document
	selectors Selectors
}

func (p *htmlPage) Listings() ([]Listing, error) {
	if p.selectors.Listing == "" {
		return nil, errorbank.Ingest("listing selector is empty")
	}
	var out []Listing
	p.doc.Find(p.selectors.Listing).Each(func(_ int, node *goquery.Selection) {
		out = append(out, htmlListing{node: node, selectors: p.selectors})
	})
	return out, nil
}

type htmlListing struct {
	node      *goquery.Selection
	selectors Selectors
}

func (l htmlListing) Title() string {
	return strings.TrimSpace(l.node.Find(l.selectors.Title).First().Text())
}

func (l htmlListing) Price() string {
	return strings.TrimSpace(l.node.Find(l.selectors.Price).First().Text())
}
