package pipeline

import (
	"context"
	"log"
	"sync"

	"github.com/customercompass/compass/internal/search"
	"github.com/customercompass/compass/models"
)

// SearchGateway fans queries out to the external search engine with bounded
// concurrency. A failed query is logged and dropped; it never aborts the
// batch. Results come back flattened in query-plan order so downstream URL
// deduplication sees a deterministic first-seen sequence.
type SearchGateway struct {
	searcher    search.Searcher
	maxResults  int
	concurrency int
	logger      *log.Logger
}

func NewSearchGateway(searcher search.Searcher, maxResults, concurrency int, logger *log.Logger) *SearchGateway {
	if maxResults <= 0 {
		maxResults = 5
	}
	if concurrency <= 0 {
		concurrency = 10
	}
	return &SearchGateway{searcher: searcher, maxResults: maxResults, concurrency: concurrency, logger: logger}
}

// Run issues every query and returns the surviving results plus the number of
// queries that failed.
func (g *SearchGateway) Run(ctx context.Context, queries []Query) ([]models.SearchResult, int) {
	if len(queries) == 0 {
		return nil, 0
	}

	perQuery := make([][]models.SearchResult, len(queries))
	var failed int64
	var mu sync.Mutex

	sem := make(chan struct{}, g.concurrency)
	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q Query) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			searchQueriesTotal.Inc()
			results, err := g.searcher.Search(ctx, q.String(), g.maxResults, q.RecencyDays)
			if err != nil {
				g.logger.Printf("search failed for %s: %v", q.String(), err)
				searchFailuresTotal.Inc()
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			perQuery[i] = results
		}(i, q)
	}
	wg.Wait()

	var out []models.SearchResult
	for _, results := range perQuery {
		out = append(out, results...)
	}
	return out, int(failed)
}
