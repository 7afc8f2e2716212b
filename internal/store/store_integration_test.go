package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/customercompass/compass/internal/store"
	"github.com/customercompass/compass/models"
)

func setupStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		tcPostgres.WithDatabase("compass"),
		tcPostgres.WithUsername("compass"),
		tcPostgres.WithPassword("compass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("postgres container: %v", err)
	}
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	m, err := migrate.New("file://../../migrations", dsn)
	if err != nil {
		t.Fatalf("migrate.New: %v", err)
	}
	if err := m.Up(); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		t.Fatalf("store.NewWithDSN: %v", err)
	}
	return st
}

func TestStoreLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	st := setupStore(t)

	userID, err := st.GetOrCreateUser(ctx, "rep@example.com")
	if err != nil {
		t.Fatalf("GetOrCreateUser: %v", err)
	}
	again, err := st.GetOrCreateUser(ctx, "rep@example.com")
	if err != nil || again != userID {
		t.Fatalf("GetOrCreateUser must be stable: %d vs %d (%v)", userID, again, err)
	}

	monitorID, err := st.CreateMonitor(ctx, userID, 30, "@daily", []string{"Acme Corp", "Globex"}, []string{"funding", "layoffs"})
	if err != nil {
		t.Fatalf("CreateMonitor: %v", err)
	}

	m, err := st.GetMonitorConfig(ctx, monitorID)
	if err != nil {
		t.Fatalf("GetMonitorConfig: %v", err)
	}
	if m.OwnerEmail != "rep@example.com" || m.RecencyDays != 30 || m.Schedule != "@daily" {
		t.Fatalf("unexpected monitor: %+v", m)
	}
	if len(m.Organizations) != 2 || m.Organizations[0] != "Acme Corp" || m.Organizations[1] != "Globex" {
		t.Fatalf("organizations out of insertion order: %v", m.Organizations)
	}
	if len(m.Areas) != 2 || m.Areas[0] != "funding" {
		t.Fatalf("areas out of insertion order: %v", m.Areas)
	}
	if m.LastRunAt != nil {
		t.Fatal("fresh monitor must have no last run")
	}

	scheduled, err := st.ListScheduled(ctx)
	if err != nil || len(scheduled) != 1 || scheduled[0].ID != monitorID {
		t.Fatalf("ListScheduled: %v / %+v", err, scheduled)
	}

	now := time.Now().UTC().Truncate(time.Second)
	if err := st.UpdateLastRun(ctx, monitorID, now); err != nil {
		t.Fatalf("UpdateLastRun: %v", err)
	}
	m, err = st.GetMonitorConfig(ctx, monitorID)
	if err != nil || m.LastRunAt == nil || !m.LastRunAt.Equal(now) {
		t.Fatalf("last run not persisted: %+v (%v)", m.LastRunAt, err)
	}

	sources := []models.ReportSource{
		{Title: "hit one", URL: "https://example.com/1"},
		{Title: "hit two", URL: "https://example.com/2"},
	}
	reportID, err := st.SaveReport(ctx, monitorID, "Acme raised a round [Source 1].", sources)
	if err != nil {
		t.Fatalf("SaveReport: %v", err)
	}

	rep, err := st.LatestReport(ctx, monitorID)
	if err != nil {
		t.Fatalf("LatestReport: %v", err)
	}
	if rep.ID != reportID || rep.Summary != "Acme raised a round [Source 1]." {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if len(rep.Sources) != 2 || rep.Sources[1].URL != "https://example.com/2" {
		t.Fatalf("sources lost array order: %+v", rep.Sources)
	}

	// second report becomes the latest
	secondID, err := st.SaveReport(ctx, monitorID, "Newer summary.", sources[:1])
	if err != nil {
		t.Fatalf("SaveReport second: %v", err)
	}
	rep, err = st.LatestReport(ctx, monitorID)
	if err != nil || rep.ID != secondID {
		t.Fatalf("latest must be the newest report: %+v (%v)", rep, err)
	}

	if err := st.ClearSchedule(ctx, monitorID); err != nil {
		t.Fatalf("ClearSchedule: %v", err)
	}
	scheduled, err = st.ListScheduled(ctx)
	if err != nil || len(scheduled) != 0 {
		t.Fatalf("schedule not cleared: %+v (%v)", scheduled, err)
	}

	if err := st.DeleteMonitor(ctx, monitorID, userID); err != nil {
		t.Fatalf("DeleteMonitor: %v", err)
	}
	if _, err := st.GetMonitorConfig(ctx, monitorID); !errors.Is(err, models.ErrMonitorNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if _, err := st.LatestReport(ctx, monitorID); !errors.Is(err, models.ErrMonitorNotFound) {
		t.Fatalf("expected no reports after delete, got %v", err)
	}
}

func TestSaveReportUnknownMonitor(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	st := setupStore(t)
	_, err := st.SaveReport(context.Background(), 9999, "summary", nil)
	if !errors.Is(err, models.ErrMonitorNotFound) {
		t.Fatalf("expected ErrMonitorNotFound, got %v", err)
	}
}
