package pipeline

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/customercompass/compass/models"
	"github.com/customercompass/compass/provider"
)

const sourceDelimiter = "\n---\n"

var citationPattern = regexp.MustCompile(`\[Source (\d+)\]`)

// Summarizer builds the grounding prompt from the indexed source list and
// invokes the generative model. It never renumbers sources; citation N in the
// prompt is always the source that carries index N.
type Summarizer struct {
	llm    provider.Provider
	logger *log.Logger
}

func NewSummarizer(llm provider.Provider, logger *log.Logger) *Summarizer {
	return &Summarizer{llm: llm, logger: logger}
}

// Summarize generates the report text. A generative failure fails the whole
// run; this step is not optional once sources exist.
func (s *Summarizer) Summarize(ctx context.Context, organizations, areas []string, sources []models.Source) (models.SummaryResult, error) {
	prompt := BuildPrompt(organizations, areas, sources)

	text, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return models.SummaryResult{}, fmt.Errorf("summarization: %w", err)
	}
	text = strings.TrimSpace(text)

	cited := parseCitedIndices(text, len(sources))
	if len(cited) == 0 {
		s.logger.Printf("summary cites no sources (%d supplied)", len(sources))
	}
	return models.SummaryResult{Text: text, CitedIndices: cited}, nil
}

// BuildPrompt renders the grounding prompt: role framing, areas of interest,
// the citation contract, then one [Source N: URL] block per source.
func BuildPrompt(organizations, areas []string, sources []models.Source) string {
	blocks := make([]string, 0, len(sources))
	for _, src := range sources {
		blocks = append(blocks, fmt.Sprintf("[Source %d: %s]\n%s", src.Index, src.URL, src.Text))
	}

	var b strings.Builder
	b.WriteString("CONTEXT:\n")
	b.WriteString("You are a sales intelligence analyst. Your task is to summarize the following articles about ")
	b.WriteString(strings.Join(organizations, ", "))
	b.WriteString(" based on the user's areas of interest. For EVERY statement you make, you MUST provide a citation in the format [Source N], where N is the number of the source article. Do not invent any information.\n\n")
	b.WriteString("AREAS OF INTEREST:\n- ")
	b.WriteString(strings.Join(areas, ", "))
	b.WriteString("\n\nSOURCE ARTICLES:\n")
	b.WriteString(strings.Join(blocks, sourceDelimiter))
	b.WriteString("\n\nSUMMARY:\n")
	return b.String()
}

// parseCitedIndices extracts the distinct [Source N] references that fall
// inside the supplied source range, ascending. Advisory metadata only.
func parseCitedIndices(text string, n int) []int {
	matches := citationPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[int]struct{})
	for _, m := range matches {
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 1 || idx > n {
			continue
		}
		seen[idx] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for idx := range seen {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
