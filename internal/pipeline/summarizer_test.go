package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/customercompass/compass/models"
)

type stubLLM struct {
	fn func(prompt string) (string, error)
}

func (s *stubLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return s.fn(prompt)
}

func TestBuildPrompt(t *testing.T) {
	sources := []models.Source{
		{Index: 1, URL: "https://example.com/a", Text: "article one"},
		{Index: 2, URL: "https://example.com/b", Text: "article two"},
	}
	prompt := BuildPrompt([]string{"Acme Corp"}, []string{"funding", "layoffs"}, sources)

	if !strings.Contains(prompt, "sales intelligence analyst") {
		t.Fatalf("missing role framing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Acme Corp") {
		t.Fatalf("missing organization:\n%s", prompt)
	}
	if !strings.Contains(prompt, "[Source 1: https://example.com/a]\narticle one") {
		t.Fatalf("missing first source block:\n%s", prompt)
	}
	if !strings.Contains(prompt, "[Source 2: https://example.com/b]\narticle two") {
		t.Fatalf("missing second source block:\n%s", prompt)
	}
	if !strings.Contains(prompt, "\n---\n") {
		t.Fatalf("source blocks not delimited:\n%s", prompt)
	}
	if !strings.HasSuffix(prompt, "SUMMARY:\n") {
		t.Fatalf("prompt must end with the summary cue:\n%s", prompt)
	}
}

func TestSummarizeReturnsCitedIndices(t *testing.T) {
	s := NewSummarizer(&stubLLM{fn: func(string) (string, error) {
		return "  Acme raised a round [Source 2]. They also shipped [Source 1] and again [Source 2]. Bogus [Source 9].  ", nil
	}}, discardLogger())

	sources := []models.Source{
		{Index: 1, URL: "https://example.com/a", Text: "a"},
		{Index: 2, URL: "https://example.com/b", Text: "b"},
	}
	res, err := s.Summarize(context.Background(), []string{"Acme"}, []string{"funding"}, sources)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.HasPrefix(res.Text, " ") || strings.HasSuffix(res.Text, " ") {
		t.Fatalf("summary not trimmed: %q", res.Text)
	}
	if len(res.CitedIndices) != 2 || res.CitedIndices[0] != 1 || res.CitedIndices[1] != 2 {
		t.Fatalf("unexpected cited indices: %v", res.CitedIndices)
	}
}

func TestSummarizeGenerativeFailure(t *testing.T) {
	s := NewSummarizer(&stubLLM{fn: func(string) (string, error) {
		return "", fmt.Errorf("model overloaded")
	}}, discardLogger())

	_, err := s.Summarize(context.Background(), []string{"Acme"}, []string{"funding"}, []models.Source{{Index: 1, Text: "a"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "summarization") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseCitedIndices(t *testing.T) {
	got := parseCitedIndices("x [Source 3] y [Source 1] z [Source 3] [Source 0] [Source 4]", 3)
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("unexpected indices: %v", got)
	}
	if got := parseCitedIndices("no citations here", 5); len(got) != 0 {
		t.Fatalf("expected none, got %v", got)
	}
}
