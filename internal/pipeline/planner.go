package pipeline

import "fmt"

// Query is one search to issue: an exact-phrase pairing of organization and
// area of interest, bounded by the monitor's recency window.
type Query struct {
	Organization string
	Area         string
	RecencyDays  int
}

// String renders the query the way the search engines expect it: both terms
// quoted so multi-word names stay intact.
func (q Query) String() string {
	return fmt.Sprintf("%q %q", q.Organization, q.Area)
}

// PlanQueries expands organizations × areas into the full query list, in
// organization-major order. The ordering carries no meaning but is kept
// deterministic so fixtures stay reproducible. Empty inputs produce an empty
// plan, never an error.
func PlanQueries(organizations, areas []string, recencyDays int) []Query {
	if len(organizations) == 0 || len(areas) == 0 {
		return nil
	}
	queries := make([]Query, 0, len(organizations)*len(areas))
	for _, org := range organizations {
		for _, area := range areas {
			queries = append(queries, Query{Organization: org, Area: area, RecencyDays: recencyDays})
		}
	}
	return queries
}
