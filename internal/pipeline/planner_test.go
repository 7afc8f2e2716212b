package pipeline

import "testing"

func TestPlanQueriesOrganizationMajor(t *testing.T) {
	queries := PlanQueries([]string{"Acme Corp", "Globex"}, []string{"layoffs", "funding"}, 30)
	if len(queries) != 4 {
		t.Fatalf("expected 4 queries, got %d", len(queries))
	}
	want := []Query{
		{Organization: "Acme Corp", Area: "layoffs", RecencyDays: 30},
		{Organization: "Acme Corp", Area: "funding", RecencyDays: 30},
		{Organization: "Globex", Area: "layoffs", RecencyDays: 30},
		{Organization: "Globex", Area: "funding", RecencyDays: 30},
	}
	for i, q := range queries {
		if q != want[i] {
			t.Fatalf("query %d: got %+v want %+v", i, q, want[i])
		}
	}
}

func TestPlanQueriesEmptyInputs(t *testing.T) {
	if q := PlanQueries(nil, []string{"funding"}, 7); q != nil {
		t.Fatalf("expected nil plan for empty organizations, got %v", q)
	}
	if q := PlanQueries([]string{"Acme"}, nil, 7); q != nil {
		t.Fatalf("expected nil plan for empty areas, got %v", q)
	}
}

func TestQueryStringQuotesBothTerms(t *testing.T) {
	q := Query{Organization: "Acme Corp", Area: "series B funding"}
	if got := q.String(); got != `"Acme Corp" "series B funding"` {
		t.Fatalf("unexpected query string: %s", got)
	}
}
