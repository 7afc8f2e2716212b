package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/customercompass/compass/models"
)

type stubSearcher struct {
	fn func(query string, k, recencyDays int) ([]models.SearchResult, error)
}

func (s *stubSearcher) Search(ctx context.Context, query string, k, recencyDays int) ([]models.SearchResult, error) {
	return s.fn(query, k, recencyDays)
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestSearchGatewayPreservesPlanOrder(t *testing.T) {
	searcher := &stubSearcher{fn: func(query string, k, recencyDays int) ([]models.SearchResult, error) {
		return []models.SearchResult{
			{Title: query + " A", URL: "https://example.com/" + query + "/a", Query: query},
			{Title: query + " B", URL: "https://example.com/" + query + "/b", Query: query},
		}, nil
	}}
	gw := NewSearchGateway(searcher, 5, 10, discardLogger())

	queries := PlanQueries([]string{"Acme", "Globex", "Initech"}, []string{"funding"}, 0)
	results, failed := gw.Run(context.Background(), queries)
	if failed != 0 {
		t.Fatalf("expected no failed queries, got %d", failed)
	}
	if len(results) != 6 {
		t.Fatalf("expected 6 results, got %d", len(results))
	}
	for i, q := range queries {
		if results[2*i].Query != q.String() || results[2*i+1].Query != q.String() {
			t.Fatalf("results out of plan order at query %d: %+v", i, results[2*i])
		}
	}
}

func TestSearchGatewayCountsFailures(t *testing.T) {
	searcher := &stubSearcher{fn: func(query string, k, recencyDays int) ([]models.SearchResult, error) {
		if strings.Contains(query, "Globex") {
			return nil, fmt.Errorf("upstream 500")
		}
		return []models.SearchResult{{Title: "hit", URL: "https://example.com/" + query}}, nil
	}}
	gw := NewSearchGateway(searcher, 5, 2, discardLogger())

	queries := PlanQueries([]string{"Acme", "Globex"}, []string{"funding", "layoffs"}, 7)
	results, failed := gw.Run(context.Background(), queries)
	if failed != 2 {
		t.Fatalf("expected 2 failed queries, got %d", failed)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 surviving results, got %d", len(results))
	}
}

func TestSearchGatewayAllQueriesFail(t *testing.T) {
	searcher := &stubSearcher{fn: func(query string, k, recencyDays int) ([]models.SearchResult, error) {
		return nil, fmt.Errorf("quota exceeded")
	}}
	gw := NewSearchGateway(searcher, 5, 10, discardLogger())

	queries := PlanQueries([]string{"Acme"}, []string{"funding"}, 0)
	results, failed := gw.Run(context.Background(), queries)
	if failed != 1 {
		t.Fatalf("expected 1 failed query, got %d", failed)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestSearchGatewayEmptyPlan(t *testing.T) {
	gw := NewSearchGateway(&stubSearcher{fn: func(string, int, int) ([]models.SearchResult, error) {
		t.Fatal("searcher must not be called for an empty plan")
		return nil, nil
	}}, 5, 10, discardLogger())

	results, failed := gw.Run(context.Background(), nil)
	if results != nil || failed != 0 {
		t.Fatalf("expected empty run, got %v / %d", results, failed)
	}
}
