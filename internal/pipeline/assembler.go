package pipeline

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/customercompass/compass/internal/fetch"
	"github.com/customercompass/compass/models"
)

// ContentAssembler turns raw search results into indexed sources. It
// deduplicates URLs in first-seen order, fetches every unique URL with
// bounded concurrency and a per-fetch timeout, and assigns citation indices
// strictly in the order fetches complete. A fetch that fails, times out or
// yields no text is dropped; it never receives an index, so indices are
// always the contiguous run 1..N over successful fetches.
type ContentAssembler struct {
	fetcher     fetch.Fetcher
	concurrency int
	timeout     time.Duration
	logger      *log.Logger
}

func NewContentAssembler(fetcher fetch.Fetcher, concurrency int, timeout time.Duration, logger *log.Logger) *ContentAssembler {
	if concurrency <= 0 {
		concurrency = 20
	}
	if timeout <= 0 {
		timeout = fetch.DefaultTimeout
	}
	return &ContentAssembler{fetcher: fetcher, concurrency: concurrency, timeout: timeout, logger: logger}
}

// Assemble fetches all unique URLs and returns the indexed source list in
// completion order.
func (a *ContentAssembler) Assemble(ctx context.Context, results []models.SearchResult) []models.Source {
	unique := dedupeByURL(results)
	if len(unique) == 0 {
		return nil
	}

	sem := make(chan struct{}, a.concurrency)
	var wg sync.WaitGroup

	var mu sync.Mutex
	var sources []models.Source

	for _, r := range unique {
		wg.Add(1)
		go func(r models.SearchResult) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			fctx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			res, err := a.fetcher.Fetch(fctx, r.URL)
			if err != nil {
				a.logger.Printf("dropping %s: %v", r.URL, err)
				fetchFailuresTotal.Inc()
				return
			}

			title := r.Title
			if title == "" {
				title = res.Title
			}
			mu.Lock()
			sources = append(sources, models.Source{
				Index: len(sources) + 1,
				Title: title,
				URL:   r.URL,
				Text:  res.Text,
			})
			mu.Unlock()
			sourcesAssembledTotal.Inc()
		}(r)
	}
	wg.Wait()

	return sources
}

// dedupeByURL keeps the first occurrence of each URL, preserving order.
func dedupeByURL(results []models.SearchResult) []models.SearchResult {
	seen := make(map[string]struct{}, len(results))
	var out []models.SearchResult
	for _, r := range results {
		if r.URL == "" {
			continue
		}
		if _, ok := seen[r.URL]; ok {
			continue
		}
		seen[r.URL] = struct{}{}
		out = append(out, r)
	}
	return out
}
