// Package jobs contains implementations of scheduled jobs for the learning hub.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/kidlearn/learning-hub/internal/application/command"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPACT SESSIONS JOB
// ══════════════════════════════════════════════════════════════════════════════

// SessionCompactor applies session retention to oversized records.
type SessionCompactor interface {
	Handle(ctx context.Context, cmd command.CompactSessionsCommand) (*command.MaintenanceResult, error)
}

// CompactSessionsJob rolls old watch sessions into the archived counter
// for records whose session list grew past the retention cap.
type CompactSessionsJob struct {
	handler   SessionCompactor
	batchSize int
}

// NewCompactSessionsJob creates the compaction job.
func NewCompactSessionsJob(handler SessionCompactor, batchSize int) *CompactSessionsJob {
	return &CompactSessionsJob{handler: handler, batchSize: batchSize}
}

// Name returns the job name.
func (j *CompactSessionsJob) Name() string { return "compact_sessions" }

// Description returns a human-readable description.
func (j *CompactSessionsJob) Description() string {
	return "Archive watch sessions beyond the per-record retention cap"
}

// Run executes one compaction batch.
func (j *CompactSessionsJob) Run(ctx context.Context) (int, error) {
	res, err := j.handler.Handle(ctx, command.CompactSessionsCommand{BatchSize: j.batchSize})
	return finish(res, err)
}

// ══════════════════════════════════════════════════════════════════════════════
// CLOSE ABANDONED SESSIONS JOB
// ══════════════════════════════════════════════════════════════════════════════

// AbandonedSessionCloser closes watch sessions left open for too long.
type AbandonedSessionCloser interface {
	Handle(ctx context.Context, cmd command.CloseAbandonedSessionsCommand) (*command.MaintenanceResult, error)
}

// CloseAbandonedSessionsJob closes sessions whose client never called EndSession.
type CloseAbandonedSessionsJob struct {
	handler   AbandonedSessionCloser
	maxAge    time.Duration
	batchSize int
}

// NewCloseAbandonedSessionsJob creates the abandoned-session job.
func NewCloseAbandonedSessionsJob(handler AbandonedSessionCloser, maxAge time.Duration, batchSize int) *CloseAbandonedSessionsJob {
	return &CloseAbandonedSessionsJob{handler: handler, maxAge: maxAge, batchSize: batchSize}
}

// Name returns the job name.
func (j *CloseAbandonedSessionsJob) Name() string { return "close_abandoned_sessions" }

// Description returns a human-readable description.
func (j *CloseAbandonedSessionsJob) Description() string {
	return fmt.Sprintf("Close watch sessions open longer than %s", j.maxAge)
}

// Run executes one batch.
func (j *CloseAbandonedSessionsJob) Run(ctx context.Context) (int, error) {
	res, err := j.handler.Handle(ctx, command.CloseAbandonedSessionsCommand{
		MaxAge:    j.maxAge,
		BatchSize: j.batchSize,
	})
	return finish(res, err)
}

// finish turns a batch result into the scheduler contract. A batch where
// every record failed to save counts as a failed run.
func finish(res *command.MaintenanceResult, err error) (int, error) {
	if err != nil {
		return 0, err
	}
	if res.Failed > 0 && res.Updated == 0 {
		return 0, fmt.Errorf("all %d records failed to save", res.Failed)
	}
	return res.Updated, nil
}
