package serper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/customercompass/compass/models"
)

const endpoint = "https://google.serper.dev/search"

// Search queries the serper.dev Google proxy.
type Search struct {
	APIKey  string
	Timeout time.Duration
	BaseURL string // endpoint override, empty in production
}

type searchRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
	TBS string `json:"tbs,omitempty"`
}

func (s Search) Search(ctx context.Context, query string, k int, recencyDays int) ([]models.SearchResult, error) {
	// https://serper.dev/ docs
	payload := searchRequest{Q: query, Num: k}
	if recencyDays > 0 {
		payload.TBS = fmt.Sprintf("qdr:d%d", recencyDays)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode serper request: %w", err)
	}

	base := s.BaseURL
	if base == "" {
		base = endpoint
	}
	req, err := http.NewRequestWithContext(ctx, "POST", base, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", s.APIKey)
	req.Header.Set("Content-Type", "application/json")
	client := &http.Client{Timeout: s.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serper returned status %d", resp.StatusCode)
	}

	var raw struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	var out []models.SearchResult
	for i, it := range raw.Organic {
		if i >= k {
			break
		}
		out = append(out, models.SearchResult{Title: it.Title, URL: it.Link, Snippet: it.Snippet, Query: query})
	}
	return out, nil
}
