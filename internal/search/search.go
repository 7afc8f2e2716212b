package search

import (
	"context"
	"time"

	"github.com/customercompass/compass/internal/search/googlecse"
	"github.com/customercompass/compass/internal/search/serper"
	"github.com/customercompass/compass/models"
)

// Searcher is the external search engine boundary. Implementations translate
// raw provider responses into typed results; nothing loosely-typed crosses
// this line.
type Searcher interface {
	Search(ctx context.Context, query string, k int, recencyDays int) ([]models.SearchResult, error)
}

type Provider string

const (
	GoogleCSEProvider Provider = "googlecse"
	SerperProvider    Provider = "serper"
)

var ErrUnsupportedProvider = &Error{"unsupported provider"}

type Error struct{ Msg string }

func (e *Error) Error() string { return e.Msg }

func NewSearcher(provider Provider, apiKey, engineID string, timeout time.Duration) (Searcher, error) {
	switch provider {
	case GoogleCSEProvider:
		return googlecse.Search{APIKey: apiKey, EngineID: engineID, Timeout: timeout}, nil
	case SerperProvider:
		return serper.Search{APIKey: apiKey, Timeout: timeout}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
