package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTTPFetcher retrieves a page with a plain GET and extracts the body as the
// concatenation of all paragraph-level text blocks in document order, one per
// line. This matches what most article pages give up without scripting.
type HTTPFetcher struct {
	opts   Options
	client *http.Client
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (Result, error) {
	if strings.TrimSpace(rawURL) == "" {
		return Result{}, errors.New("invalid url")
	}

	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if ct != "" && !strings.Contains(ct, "html") && !strings.Contains(ct, "text") {
		return Result{}, fmt.Errorf("fetch %s: non-text content type %q", rawURL, ct)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("parse %s: %w", rawURL, err)
	}

	var paragraphs []string
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		if txt := strings.TrimSpace(sel.Text()); txt != "" {
			paragraphs = append(paragraphs, txt)
		}
	})
	text := strings.Join(paragraphs, "\n")
	if len(text) > f.opts.MaxChars {
		text = text[:f.opts.MaxChars]
	}
	if text == "" {
		return Result{}, fmt.Errorf("fetch %s: no extractable text", rawURL)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	return Result{URL: rawURL, Title: title, Text: text}, nil
}
