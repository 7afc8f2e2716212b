package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// ReadabilityFetcher runs the fetched document through a readability pass,
// which strips navigation and boilerplate more aggressively than the plain
// paragraph extractor. Useful for cluttered news sites.
type ReadabilityFetcher struct {
	opts   Options
	client *http.Client
}

func (f *ReadabilityFetcher) Fetch(ctx context.Context, rawURL string) (Result, error) {
	if strings.TrimSpace(rawURL) == "" {
		return Result{}, errors.New("invalid url")
	}

	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, mustParseURL(rawURL))
	if err != nil {
		return Result{}, fmt.Errorf("readability %s: %w", rawURL, err)
	}
	text := strings.TrimSpace(article.TextContent)
	if len(text) > f.opts.MaxChars {
		text = text[:f.opts.MaxChars]
	}
	if text == "" {
		return Result{}, fmt.Errorf("fetch %s: no extractable text", rawURL)
	}
	return Result{URL: rawURL, Title: strings.TrimSpace(article.Title), Text: text}, nil
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}
