package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/customercompass/compass/models"
)

// Store wraps the Postgres connection. It is the owner of record for
// monitors, their organizations/areas, users and reports; the pipeline only
// borrows monitor config for the duration of a run.
type Store struct {
	DB *sql.DB
}

// NewWithDSN constructs the Store using an explicit Postgres DSN
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// User operations

// GetOrCreateUser resolves an email to a user id, creating the row on first
// sight. Identity verification happens upstream of this service.
func (s *Store) GetOrCreateUser(ctx context.Context, email string) (int64, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx, `SELECT id FROM users WHERE email=$1`, email).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	err = s.DB.QueryRowContext(ctx,
		`INSERT INTO users (email) VALUES ($1)
		 ON CONFLICT (email) DO UPDATE SET email=EXCLUDED.email
		 RETURNING id`, email).Scan(&id)
	return id, err
}

// Monitor operations

// CreateMonitor inserts the monitor and its organization/area links in one
// transaction. Organization and area rows are shared across monitors and
// created on first use.
func (s *Store) CreateMonitor(ctx context.Context, userID int64, recencyDays int, schedule string, organizations, areas []string) (int64, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var monitorID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO monitors (user_id, recency_days, schedule) VALUES ($1,$2,NULLIF($3,'')) RETURNING id`,
		userID, recencyDays, schedule).Scan(&monitorID)
	if err != nil {
		return 0, err
	}

	for _, name := range organizations {
		var orgID int64
		err = tx.QueryRowContext(ctx,
			`INSERT INTO organizations (name) VALUES ($1)
			 ON CONFLICT (name) DO UPDATE SET name=EXCLUDED.name
			 RETURNING id`, name).Scan(&orgID)
		if err != nil {
			return 0, err
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO monitor_organizations (monitor_id, organization_id) VALUES ($1,$2)`,
			monitorID, orgID); err != nil {
			return 0, err
		}
	}

	for _, name := range areas {
		var areaID int64
		err = tx.QueryRowContext(ctx,
			`INSERT INTO areas_of_interest (name) VALUES ($1)
			 ON CONFLICT (name) DO UPDATE SET name=EXCLUDED.name
			 RETURNING id`, name).Scan(&areaID)
		if err != nil {
			return 0, err
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO monitor_areas_of_interest (monitor_id, area_of_interest_id) VALUES ($1,$2)`,
			monitorID, areaID); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return monitorID, nil
}

// GetMonitorConfig loads the full monitor configuration the pipeline needs.
func (s *Store) GetMonitorConfig(ctx context.Context, id int64) (models.Monitor, error) {
	var m models.Monitor
	var schedule sql.NullString
	var lastRun sql.NullTime
	err := s.DB.QueryRowContext(ctx, `
SELECT m.id, m.user_id, u.email, m.recency_days, COALESCE(m.schedule,''), m.last_run_at, m.created_at
FROM monitors m JOIN users u ON u.id = m.user_id
WHERE m.id = $1`, id).Scan(&m.ID, &m.UserID, &m.OwnerEmail, &m.RecencyDays, &schedule, &lastRun, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Monitor{}, models.ErrMonitorNotFound
	}
	if err != nil {
		return models.Monitor{}, err
	}
	m.Schedule = schedule.String
	if lastRun.Valid {
		t := lastRun.Time
		m.LastRunAt = &t
	}

	if m.Organizations, err = s.monitorNames(ctx, id,
		`SELECT o.name FROM organizations o
		 JOIN monitor_organizations mo ON o.id = mo.organization_id
		 WHERE mo.monitor_id = $1 ORDER BY mo.id`); err != nil {
		return models.Monitor{}, err
	}
	if m.Areas, err = s.monitorNames(ctx, id,
		`SELECT a.name FROM areas_of_interest a
		 JOIN monitor_areas_of_interest ma ON a.id = ma.area_of_interest_id
		 WHERE ma.monitor_id = $1 ORDER BY ma.id`); err != nil {
		return models.Monitor{}, err
	}
	return m, nil
}

func (s *Store) monitorNames(ctx context.Context, monitorID int64, query string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, query, monitorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// ListMonitors returns a user's monitors with their names resolved.
func (s *Store) ListMonitors(ctx context.Context, userID int64) ([]models.Monitor, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id FROM monitors WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]models.Monitor, 0, len(ids))
	for _, id := range ids {
		m, err := s.GetMonitorConfig(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// DeleteMonitor removes a monitor owned by userID together with its link
// rows and reports. Returns ErrMonitorNotFound when no owned row matches.
func (s *Store) DeleteMonitor(ctx context.Context, id, userID int64) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var owner int64
	err = tx.QueryRowContext(ctx, `SELECT user_id FROM monitors WHERE id=$1`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrMonitorNotFound
	}
	if err != nil {
		return err
	}
	if owner != userID {
		return models.ErrMonitorNotFound
	}

	for _, q := range []string{
		`DELETE FROM monitor_organizations WHERE monitor_id=$1`,
		`DELETE FROM monitor_areas_of_interest WHERE monitor_id=$1`,
		`DELETE FROM reports WHERE monitor_id=$1`,
		`DELETE FROM monitors WHERE id=$1`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpdateLastRun advances the monitor's last-run timestamp.
func (s *Store) UpdateLastRun(ctx context.Context, monitorID int64, at time.Time) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE monitors SET last_run_at=$2 WHERE id=$1`, monitorID, at)
	return err
}

// Schedule registry. Create and delete are idempotent; deleting an absent
// schedule is not an error.

func (s *Store) SetSchedule(ctx context.Context, monitorID int64, cron string) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE monitors SET schedule=$2 WHERE id=$1`, monitorID, cron)
	return err
}

func (s *Store) ClearSchedule(ctx context.Context, monitorID int64) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE monitors SET schedule=NULL WHERE id=$1`, monitorID)
	return err
}

// ScheduledMonitor is the slice of monitor state the cron loop needs.
type ScheduledMonitor struct {
	ID        int64
	Schedule  string
	LastRunAt *time.Time
}

// ListScheduled returns all monitors carrying a schedule expression.
func (s *Store) ListScheduled(ctx context.Context) ([]ScheduledMonitor, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, schedule, last_run_at FROM monitors WHERE schedule IS NOT NULL AND schedule <> ''`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ScheduledMonitor
	for rows.Next() {
		var m ScheduledMonitor
		var lastRun sql.NullTime
		if err := rows.Scan(&m.ID, &m.Schedule, &lastRun); err != nil {
			return nil, err
		}
		if lastRun.Valid {
			t := lastRun.Time
			m.LastRunAt = &t
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Report operations

// SaveReport persists a finished report. Reports are immutable; each run
// inserts a fresh row.
func (s *Store) SaveReport(ctx context.Context, monitorID int64, summary string, sources []models.ReportSource) (int64, error) {
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return 0, fmt.Errorf("marshal sources: %w", err)
	}
	var id int64
	err = s.DB.QueryRowContext(ctx,
		`INSERT INTO reports (monitor_id, summary, sources) VALUES ($1,$2,$3) RETURNING id`,
		monitorID, summary, sourcesJSON).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return 0, models.ErrMonitorNotFound
		}
		return 0, err
	}
	return id, nil
}

// LatestReport returns the newest report for a monitor, or
// ErrMonitorNotFound when none exists.
func (s *Store) LatestReport(ctx context.Context, monitorID int64) (models.Report, error) {
	var r models.Report
	var sourcesJSON []byte
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, monitor_id, summary, sources, created_at
		 FROM reports WHERE monitor_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1`,
		monitorID).Scan(&r.ID, &r.MonitorID, &r.Summary, &sourcesJSON, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Report{}, models.ErrMonitorNotFound
	}
	if err != nil {
		return models.Report{}, err
	}
	if err := json.Unmarshal(sourcesJSON, &r.Sources); err != nil {
		return models.Report{}, fmt.Errorf("unmarshal sources: %w", err)
	}
	return r, nil
}
