package ledger

import (
	"context"
	"sync"

	"github.com/KyungWonPark/MovieISC/internal/errors"
)

// Recorder tracks one run. It is safe for concurrent use.
type Recorder struct {
	ledger *Ledger

	mu  sync.Mutex
	run Run
}

// ID returns the run id
func (r *Recorder) ID() string {
	return r.run.ID
}

// Processed counts n finished items
func (r *Recorder) Processed(n int) {
	r.mu.Lock()
	r.run.Processed += n
	r.mu.Unlock()
}

// Skip records an item that was left out and why
func (r *Recorder) Skip(ctx context.Context, item, reason string) error {
	r.mu.Lock()
	r.run.Skipped++
	r.mu.Unlock()

	if r.ledger == nil {
		return nil
	}
	_, err := r.ledger.db.ExecContext(ctx, `INSERT INTO skips (run_id, item, reason) VALUES (?, ?, ?)`, r.run.ID, item, reason)
	if err != nil {
		return errors.IOError("recording skip", err)
	}
	return nil
}

// Counts returns processed and skipped so far
func (r *Recorder) Counts() (processed, skipped int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.run.Processed, r.run.Skipped
}

// Finish closes the run as succeeded, or failed when runErr is non-nil
func (r *Recorder) Finish(ctx context.Context, runErr error) error {
	r.mu.Lock()
	r.run.FinishedAt.String, r.run.FinishedAt.Valid = now(), true
	r.run.Status = StatusSucceeded
	if runErr != nil {
		r.run.Status = StatusFailed
		r.run.Message = runErr.Error()
	}
	run := r.run
	r.mu.Unlock()

	if r.ledger == nil {
		return nil
	}
	_, err := r.ledger.db.NamedExecContext(ctx, `
		UPDATE runs
		SET finished_at = :finished_at, status = :status, processed = :processed,
			skipped = :skipped, message = :message
		WHERE id = :id
	`, &run)
	if err != nil {
		return errors.IOError("recording run end", err)
	}
	return nil
}
