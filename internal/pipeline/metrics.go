package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "compass_pipeline_runs_total",
		Help: "Pipeline runs by terminal outcome.",
	}, []string{"outcome"})

	searchQueriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "compass_search_queries_total",
		Help: "Search queries issued.",
	})

	searchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "compass_search_query_failures_total",
		Help: "Search queries that failed and were dropped.",
	})

	fetchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "compass_fetch_failures_total",
		Help: "Source fetches that failed, timed out or yielded no text.",
	})

	sourcesAssembledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "compass_sources_assembled_total",
		Help: "Sources successfully fetched and indexed.",
	})

	notifyFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "compass_notify_failures_total",
		Help: "Report notifications that could not be delivered.",
	})
)
