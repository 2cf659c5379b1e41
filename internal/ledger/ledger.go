// Package ledger records stage runs and skipped items in SQLite so that a
// batch of stages can be audited after the fact.
package ledger

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/KyungWonPark/MovieISC/internal/errors"
)

const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	stage          TEXT NOT NULL,
	bundle_version TEXT NOT NULL,
	started_at     TEXT NOT NULL,
	finished_at    TEXT,
	status         TEXT NOT NULL,
	processed      INTEGER NOT NULL DEFAULT 0,
	skipped        INTEGER NOT NULL DEFAULT 0,
	message        TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS skips (
	run_id TEXT NOT NULL REFERENCES runs(id),
	item   TEXT NOT NULL,
	reason TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_stage ON runs(stage, started_at);
`

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Run is one row of the runs table
type Run struct {
	ID            string         `db:"id"`
	Stage         string         `db:"stage"`
	BundleVersion string         `db:"bundle_version"`
	StartedAt     string         `db:"started_at"`
	FinishedAt    sql.NullString `db:"finished_at"`
	Status        string         `db:"status"`
	Processed     int            `db:"processed"`
	Skipped       int            `db:"skipped"`
	Message       string         `db:"message"`
}

// Skip is one skipped item of a run
type Skip struct {
	RunID  string `db:"run_id"`
	Item   string `db:"item"`
	Reason string `db:"reason"`
}

// Ledger is a handle on the run database. A nil *Ledger records nothing.
type Ledger struct {
	db *sqlx.DB
}

// Open creates the database and its tables if needed. An empty path disables
// the ledger.
func Open(path string) (*Ledger, error) {
	if path == "" {
		return nil, nil
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, errors.IOError("creating ledger directory", err)
		}
	}

	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, errors.IOError("opening ledger "+path, err)
	}
	// one writer per process
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.IOError("creating ledger tables", err)
	}
	return &Ledger{db: db}, nil
}

// Close releases the database
func (l *Ledger) Close() error {
	if l == nil {
		return nil
	}
	return l.db.Close()
}

// fixed width so timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func now() string {
	return time.Now().UTC().Format(timeLayout)
}

// Begin inserts a running row for stage and returns its handle
func (l *Ledger) Begin(ctx context.Context, stage, bundleVersion string) (*Recorder, error) {
	r := &Recorder{ledger: l, run: Run{
		ID:            uuid.NewString(),
		Stage:         stage,
		BundleVersion: bundleVersion,
		StartedAt:     now(),
		Status:        StatusRunning,
	}}
	if l == nil {
		return r, nil
	}

	_, err := l.db.NamedExecContext(ctx, `
		INSERT INTO runs (id, stage, bundle_version, started_at, status, processed, skipped, message)
		VALUES (:id, :stage, :bundle_version, :started_at, :status, :processed, :skipped, :message)
	`, &r.run)
	if err != nil {
		return nil, errors.IOError("recording run start", err)
	}
	return r, nil
}

// Runs lists the most recent runs, newest first; stage filters when non-empty
func (l *Ledger) Runs(ctx context.Context, stage string, limit int) ([]Run, error) {
	if l == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	var runs []Run
	var err error
	if stage == "" {
		err = l.db.SelectContext(ctx, &runs, `SELECT * FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	} else {
		err = l.db.SelectContext(ctx, &runs, `SELECT * FROM runs WHERE stage = ? ORDER BY started_at DESC LIMIT ?`, stage, limit)
	}
	if err != nil {
		return nil, errors.IOError("listing runs", err)
	}
	return runs, nil
}

// Skips lists the skipped items of a run
func (l *Ledger) Skips(ctx context.Context, runID string) ([]Skip, error) {
	if l == nil {
		return nil, nil
	}
	var skips []Skip
	if err := l.db.SelectContext(ctx, &skips, `SELECT * FROM skips WHERE run_id = ? ORDER BY rowid`, runID); err != nil {
		return nil, errors.IOError("listing skips", err)
	}
	return skips, nil
}

// LastSucceeded returns the newest successful run of stage, or nil
func (l *Ledger) LastSucceeded(ctx context.Context, stage string) (*Run, error) {
	if l == nil {
		return nil, nil
	}
	var r Run
	err := l.db.GetContext(ctx, &r, `
		SELECT * FROM runs WHERE stage = ? AND status = ?
		ORDER BY started_at DESC LIMIT 1
	`, stage, StatusSucceeded)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.IOError("reading last run of "+stage, err)
	}
	return &r, nil
}

// CheckUpstream warns for every upstream stage whose last successful run used
// a different reference bundle; it returns the stages that disagree
func (l *Ledger) CheckUpstream(ctx context.Context, bundleVersion string, stages ...string) ([]string, error) {
	var stale []string
	for _, s := range stages {
		r, err := l.LastSucceeded(ctx, s)
		if err != nil {
			return nil, err
		}
		if r == nil || r.BundleVersion == bundleVersion {
			continue
		}
		log.WithFields(log.Fields{
			"upstream": s,
			"run":      r.ID,
			"theirs":   r.BundleVersion,
			"ours":     bundleVersion,
		}).Warn("Upstream stage ran with a different reference bundle")
		stale = append(stale, s)
	}
	return stale, nil
}
