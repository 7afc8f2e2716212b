package fetch

import (
	"context"
	"net/http"
	"time"
)

const (
	DefaultTimeout  = 10 * time.Second
	MaxCharsDefault = 20000
)

// Result is the extracted body of one fetched document.
type Result struct {
	URL   string
	Title string
	Text  string
}

// Fetcher retrieves a URL and extracts plain-text body content. A failed or
// non-text fetch returns an error; callers decide whether that aborts
// anything (in the pipeline it never does).
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Result, error)
}

type FetcherType string

const (
	HTTPFetcherType        FetcherType = "http"
	ReadabilityFetcherType FetcherType = "readability"
	ChromedpFetcherType    FetcherType = "chromedp"
)

type Error struct{ Msg string }

func (e *Error) Error() string { return e.Msg }

// Options are shared across fetcher implementations.
type Options struct {
	Timeout   time.Duration
	MaxChars  int
	UserAgent string
}

// New builds a fetcher of the requested type.
func New(t FetcherType, opts Options) (Fetcher, error) {
	opts = opts.withDefaults()
	switch t {
	case HTTPFetcherType:
		return &HTTPFetcher{opts: opts, client: &http.Client{Timeout: opts.Timeout}}, nil
	case ReadabilityFetcherType:
		return &ReadabilityFetcher{opts: opts, client: &http.Client{Timeout: opts.Timeout}}, nil
	case ChromedpFetcherType:
		return &ChromedpFetcher{opts: opts}, nil
	default:
		return nil, &Error{"unsupported fetcher type"}
	}
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxChars <= 0 {
		o.MaxChars = MaxCharsDefault
	}
	if o.UserAgent == "" {
		o.UserAgent = "CompassMonitor/1.0 (+https://github.com/customercompass/compass)"
	}
	return o
}
