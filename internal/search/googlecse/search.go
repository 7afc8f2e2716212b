package googlecse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/customercompass/compass/models"
)

const endpoint = "https://www.googleapis.com/customsearch/v1"

// Search queries the Google Custom Search JSON API.
type Search struct {
	APIKey   string
	EngineID string
	Timeout  time.Duration
	BaseURL  string // endpoint override, empty in production
}

func (s Search) Search(ctx context.Context, query string, k int, recencyDays int) ([]models.SearchResult, error) {
	// https://developers.google.com/custom-search/v1/reference/rest/v1/cse/list
	params := url.Values{}
	params.Set("key", s.APIKey)
	params.Set("cx", s.EngineID)
	params.Set("q", query)
	params.Set("num", fmt.Sprintf("%d", k))
	if recencyDays > 0 {
		params.Set("sort", fmt.Sprintf("date:r:d:%d", recencyDays))
	}

	base := s.BaseURL
	if base == "" {
		base = endpoint
	}
	req, err := http.NewRequestWithContext(ctx, "GET", base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: s.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("custom search returned status %d", resp.StatusCode)
	}

	var raw struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	var out []models.SearchResult
	for i, it := range raw.Items {
		if i >= k {
			break
		}
		out = append(out, models.SearchResult{Title: it.Title, URL: it.Link, Snippet: it.Snippet, Query: query})
	}
	return out, nil
}
