package serper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSearchRequest(t *testing.T) {
	var apiKey string
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("X-API-KEY")
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"organic":[{"title":"Acme raises","link":"https://example.com/1","snippet":"round"}]}`))
	}))
	defer srv.Close()

	s := Search{APIKey: "serper-key", Timeout: time.Second, BaseURL: srv.URL}
	results, err := s.Search(context.Background(), `"Acme" "funding"`, 5, 7)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if apiKey != "serper-key" {
		t.Fatalf("api key not forwarded: %q", apiKey)
	}
	if payload["q"] != `"Acme" "funding"` || payload["num"] != float64(5) || payload["tbs"] != "qdr:d7" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if len(results) != 1 || results[0].URL != "https://example.com/1" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestSearchNoRecencyOmitsTBS(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"organic":[]}`))
	}))
	defer srv.Close()

	s := Search{APIKey: "k", Timeout: time.Second, BaseURL: srv.URL}
	if _, err := s.Search(context.Background(), "q", 5, 0); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if _, ok := payload["tbs"]; ok {
		t.Fatalf("tbs must be omitted without a recency window: %v", payload)
	}
}
