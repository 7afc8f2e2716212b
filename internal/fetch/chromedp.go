package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
	readability "github.com/go-shiori/go-readability"
)

// ChromedpFetcher renders the page in a headless browser before extraction,
// for sources that only produce content after scripting.
type ChromedpFetcher struct {
	opts Options
}

func (f *ChromedpFetcher) Fetch(ctx context.Context, rawURL string) (Result, error) {
	if strings.TrimSpace(rawURL) == "" {
		return Result{}, errors.New("invalid url")
	}

	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	html, err := f.renderHTML(ctx, rawURL)
	if err != nil {
		return Result{}, fmt.Errorf("render %s: %w", rawURL, err)
	}

	article, err := readability.FromReader(strings.NewReader(html), mustParseURL(rawURL))
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

func (f *ChromedpFetcher) renderHTML(ctx context.Context, rawURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent(f.opts.UserAgent),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}
