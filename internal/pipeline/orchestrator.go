package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/customercompass/compass/models"
)

// MonitorRepository is the persistence boundary the orchestrator depends on.
type MonitorRepository interface {
	GetMonitorConfig(ctx context.Context, id int64) (models.Monitor, error)
	SaveReport(ctx context.Context, monitorID int64, summary string, sources []models.ReportSource) (int64, error)
	UpdateLastRun(ctx context.Context, monitorID int64, at time.Time) error
}

// NotificationSink delivers a finished report to its recipient. Delivery
// failure never fails a run.
type NotificationSink interface {
	Send(ctx context.Context, recipient string, reportID int64, summary string) error
}

// Orchestrator sequences one pipeline run:
// Loading -> Searching -> Assembling -> Summarizing -> Persisting -> Notifying.
// Zero results or zero sources short-circuit to Skipped; errors at
// Summarizing or Persisting terminate the run as Failed. One trigger message
// is one run; re-triggering starts over from Loading.
type Orchestrator struct {
	repo       MonitorRepository
	gateway    *SearchGateway
	assembler  *ContentAssembler
	summarizer *Summarizer
	notifier   NotificationSink
	logger     *log.Logger
}

func NewOrchestrator(repo MonitorRepository, gateway *SearchGateway, assembler *ContentAssembler, summarizer *Summarizer, notifier NotificationSink, logger *log.Logger) *Orchestrator {
	return &Orchestrator{
		repo:       repo,
		gateway:    gateway,
		assembler:  assembler,
		summarizer: summarizer,
		notifier:   notifier,
		logger:     logger,
	}
}

// Run executes the full pipeline for one monitor and returns its terminal
// outcome. The returned error is non-nil only for Failed outcomes.
func (o *Orchestrator) Run(ctx context.Context, monitorID int64) (models.RunOutcome, error) {
	outcome, err := o.run(ctx, monitorID)
	runsTotal.WithLabelValues(string(outcome)).Inc()
	return outcome, err
}

func (o *Orchestrator) run(ctx context.Context, monitorID int64) (models.RunOutcome, error) {
	// Loading
	monitor, err := o.repo.GetMonitorConfig(ctx, monitorID)
	if err != nil {
		return models.RunFailed, fmt.Errorf("load monitor %d: %w", monitorID, err)
	}

	queries := PlanQueries(monitor.Organizations, monitor.Areas, monitor.RecencyDays)
	if len(queries) == 0 {
		o.logger.Printf("monitor %d: empty query plan, skipping", monitorID)
		return o.skip(ctx, monitorID), nil
	}

	// Searching
	o.logger.Printf("monitor %d: issuing %d queries", monitorID, len(queries))
	results, failedQueries := o.gateway.Run(ctx, queries)
	if failedQueries > 0 {
		o.logger.Printf("monitor %d: %d/%d queries failed", monitorID, failedQueries, len(queries))
	}
	if len(results) == 0 {
		o.logger.Printf("monitor %d: no search results, skipping", monitorID)
		return o.skip(ctx, monitorID), nil
	}

	// Assembling
	sources := o.assembler.Assemble(ctx, results)
	if len(sources) == 0 {
		o.logger.Printf("monitor %d: no sources survived fetching, skipping", monitorID)
		return o.skip(ctx, monitorID), nil
	}
	o.logger.Printf("monitor %d: assembled %d sources from %d results", monitorID, len(sources), len(results))

	if err := ctx.Err(); err != nil {
		return models.RunFailed, fmt.Errorf("run cancelled: %w", err)
	}

	// Summarizing
	summary, err := o.summarizer.Summarize(ctx, monitor.Organizations, monitor.Areas, sources)
	if err != nil {
		return models.RunFailed, fmt.Errorf("monitor %d: %w", monitorID, err)
	}
	o.logger.Printf("monitor %d: summary cites %d of %d sources", monitorID, len(summary.CitedIndices), len(sources))

	// A cancelled run must never reach Persisting.
	if err := ctx.Err(); err != nil {
		return models.RunFailed, fmt.Errorf("run cancelled: %w", err)
	}

	// Persisting
	reportSources := make([]models.ReportSource, len(sources))
	for i, src := range sources {
		reportSources[i] = models.ReportSource{Title: src.Title, URL: src.URL}
	}
	reportID, err := o.repo.SaveReport(ctx, monitorID, summary.Text, reportSources)
	if err != nil {
		return models.RunFailed, fmt.Errorf("persist report for monitor %d: %w", monitorID, err)
	}
	if err := o.repo.UpdateLastRun(ctx, monitorID, time.Now().UTC()); err != nil {
		return models.RunFailed, fmt.Errorf("update last run for monitor %d: %w", monitorID, err)
	}

	// Notifying: only scheduled monitors push mail, and delivery failure
	// leaves the persisted report intact.
	if o.notifier != nil && monitor.Schedule != "" && monitor.OwnerEmail != "" {
		if err := o.notifier.Send(ctx, monitor.OwnerEmail, reportID, summary.Text); err != nil {
			o.logger.Printf("monitor %d: notification failed (report %d kept): %v", monitorID, reportID, err)
			notifyFailuresTotal.Inc()
		}
	}

	o.logger.Printf("monitor %d: report %d persisted", monitorID, reportID)
	return models.RunDone, nil
}

// skip marks a run that produced nothing. The last-run timestamp still
// advances so a monitor that keeps finding zero results is not retried
// forever at the same schedule tick.
func (o *Orchestrator) skip(ctx context.Context, monitorID int64) models.RunOutcome {
	if err := o.repo.UpdateLastRun(ctx, monitorID, time.Now().UTC()); err != nil {
		o.logger.Printf("monitor %d: update last run on skip: %v", monitorID, err)
	}
	return models.RunSkipped
}
