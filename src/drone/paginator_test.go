package drone

import (
	"context"
	"errors"
	"testing"
)

type fakeFetcher struct {
	pages    map[int][]BuildSummary
	requests []int
	err      error
}

func (f *fakeFetcher) ListBuilds(ctx context.Context, page int) ([]BuildSummary, error) {
	f.requests = append(f.requests, page)
	if f.err != nil {
		return nil, f.err
	}
	return f.pages[page], nil
}

func summaries(numbers ...int) []BuildSummary {
	out := make([]BuildSummary, 0, len(numbers))
	for _, n := range numbers {
		out = append(out, BuildSummary{Number: n})
	}
	return out
}

func TestPaginator_FetchesOnlyWhenBufferEmpty(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[int][]BuildSummary{
		1: summaries(30, 29),
		2: summaries(28),
	}}
	p := NewPaginator(fetcher)
	ctx := context.Background()

	b, err := p.Next(ctx)
	if err != nil || b.Number != 30 {
		t.Fatalf("Next() = %d, %v, want 30", b.Number, err)
	}
	if len(fetcher.requests) != 1 {
		t.Fatalf("requests after first Next = %v, want [1]", fetcher.requests)
	}

	b, _ = p.Next(ctx)
	if b.Number != 29 {
		t.Errorf("Next() = %d, want 29", b.Number)
	}
	if len(fetcher.requests) != 1 {
		t.Errorf("second Next fetched again: %v", fetcher.requests)
	}

	b, _ = p.Next(ctx)
	if b.Number != 28 {
		t.Errorf("Next() = %d, want 28", b.Number)
	}
	if got := fetcher.requests; len(got) != 2 || got[1] != 2 {
		t.Errorf("requests = %v, want [1 2]", got)
	}
	if p.Fetched() != 2 || p.Page() != 3 {
		t.Errorf("Fetched() = %d, Page() = %d, want 2, 3", p.Fetched(), p.Page())
	}
}

func TestPaginator_EmptyPageExhausts(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[int][]BuildSummary{1: summaries(5)}}
	p := NewPaginator(fetcher)
	ctx := context.Background()

	if _, err := p.Next(ctx); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if _, err := p.Next(ctx); !errors.Is(err, ErrExhausted) {
		t.Fatalf("Next() error = %v, want ErrExhausted", err)
	}
}

func TestPaginator_SkipPages(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[int][]BuildSummary{
		1: summaries(9, 8),
		2: summaries(7, 6),
		4: summaries(3),
	}}
	p := NewPaginator(fetcher)
	ctx := context.Background()

	p.Next(ctx) // buffers page 1, 8 left unconsumed
	p.SkipPages(2)

	if len(fetcher.requests) != 1 {
		t.Errorf("SkipPages fetched: %v", fetcher.requests)
	}

	b, err := p.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if b.Number != 3 {
		t.Errorf("Next() after SkipPages(2) = %d, want 3 (buffer discarded, page 4)", b.Number)
	}

	p.SkipPages(0)
	if p.Page() != 5 {
		t.Errorf("SkipPages(0) moved cursor to %d", p.Page())
	}
}

func TestPaginator_FetchErrorIsReturned(t *testing.T) {
	boom := errors.New("connection reset")
	p := NewPaginator(&fakeFetcher{err: boom})

	_, err := p.Next(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Next() error = %v, want %v", err, boom)
	}
	if p.Page() != 1 {
		t.Errorf("Page() = %d after failed fetch, want 1", p.Page())
	}
}
