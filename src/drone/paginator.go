package drone

import (
	"context"
	"fmt"
)

// PageFetcher fetches one page of the build list.
type PageFetcher interface {
	ListBuilds(ctx context.Context, page int) ([]BuildSummary, error)
}

// Paginator walks a build list one page at a time. A page is only requested
// once every entry of the previous one has been consumed, so a caller that
// stops early never pays for pages it did not need.
//
// Paginator is forward-only; start over with a new Paginator to rewind.
type Paginator struct {
	fetcher PageFetcher
	page    int // next page to request
	buffer  []BuildSummary
	fetched int
}

// NewPaginator returns a cursor positioned at page 1.
func NewPaginator(fetcher PageFetcher) *Paginator {
	return &Paginator{fetcher: fetcher, page: 1}
}

// Next returns the next build. It returns ErrExhausted when the backend
// answers with an empty page. Any fetch error is returned as is; there is no retry.
func (p *Paginator) Next(ctx context.Context) (BuildSummary, error) {
	if len(p.buffer) == 0 {
		builds, err := p.fetcher.ListBuilds(ctx, p.page)
		if err != nil {
			return BuildSummary{}, fmt.Errorf("paginate: %w", err)
		}
		p.page++
		p.fetched++
		p.buffer = builds
		if len(p.buffer) == 0 {
			return BuildSummary{}, ErrExhausted
		}
	}

	next := p.buffer[0]
	p.buffer = p.buffer[1:]
	return next, nil
}

// SkipPages drops any buffered entries and moves the cursor forward n pages
// without fetching.
func (p *Paginator) SkipPages(n int) *Paginator {
	if n > 0 {
		p.buffer = nil
		p.page += n
	}
	return p
}

// Page returns the page number the next fetch will request.
func (p *Paginator) Page() int {
	return p.page
}

// Fetched returns how many pages have been requested so far.
func (p *Paginator) Fetched() int {
	return p.fetched
}
