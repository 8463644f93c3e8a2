/*
scheduler.go - Daily follow-up digest job

PURPOSE:
  Once a day, builds the list of clients due for a follow-up call and sends
  it through the configured notifier (SendGrid email or the log).

DESIGN:
  - robfig/cron drives the schedule (6-field spec, seconds first)
  - A panicking job is recovered by the cron chain and logged
  - Each completed run is recorded per day in the run log; a scheduled
    tick skips a day that already completed (restart safety)
  - RunOnce ignores the run log so the office can resend on demand

CONFIGURATION:
  - Spec:      cron spec (default "0 0 8 * * *", 08:00 every day)
  - CutoffDay: day of month after which overdue clients are listed
  - Location:  timezone the cron schedule and "today" are evaluated in

USAGE:
  s := NewFollowUpScheduler(store, notifier, clock)
  s.Runs = sqliteStore
  if err := s.Start(); err != nil { ... }
  defer s.Stop()

SEE ALSO:
  - handlers.go: POST /api/follow-ups/digest (manual run)
  - notify/: Digest rendering and delivery
  - store/sqlite: job_runs table
*/
package api

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/warp/collections-engine/billing"
	"github.com/warp/collections-engine/logger"
	"github.com/warp/collections-engine/notify"
	"github.com/warp/collections-engine/reporting"
	"github.com/warp/collections-engine/store/sqlite"
)

// JobFollowUpDigest names the digest job in the run log.
const JobFollowUpDigest = "follow-up-digest"

// DefaultDigestSpec runs the digest at 08:00 every day.
const DefaultDigestSpec = "0 0 8 * * *"

// RunLog records completed job runs by calendar day.
type RunLog interface {
	JobCompleted(ctx context.Context, job string, day billing.Date) (bool, error)
	CompleteJob(ctx context.Context, job string, day billing.Date, detail string) error
}

// runHistory is implemented by run logs that can list past runs.
type runHistory interface {
	JobRuns(ctx context.Context, job string, limit int) ([]sqlite.JobRun, error)
}

// FollowUpScheduler sends the daily follow-up digest.
type FollowUpScheduler struct {
	Store     billing.ClientStore
	Notifier  notify.Notifier
	Clock     billing.Clock
	Runs      RunLog
	Spec      string
	CutoffDay int
	Location  *time.Location

	log  *slog.Logger
	cron *cron.Cron
	mu   sync.Mutex
}

// NewFollowUpScheduler creates a scheduler with the default spec and cutoff.
func NewFollowUpScheduler(store billing.ClientStore, notifier notify.Notifier, clock billing.Clock) *FollowUpScheduler {
	if clock == nil {
		clock = billing.SystemClock{}
	}
	return &FollowUpScheduler{
		Store:     store,
		Notifier:  notifier,
		Clock:     clock,
		Spec:      DefaultDigestSpec,
		CutoffDay: billing.DefaultCutoffDay,
		Location:  time.UTC,
		log:       logger.WithJob(JobFollowUpDigest),
	}
}

// Start registers the digest job and starts the cron runner.
func (s *FollowUpScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(cronLogger{s.log})),
	)
	if _, err := c.AddFunc(s.Spec, s.tick); err != nil {
		return fmt.Errorf("invalid digest schedule %q: %w", s.Spec, err)
	}
	c.Start()
	s.cron = c

	s.log.Info("scheduler started", "spec", s.Spec, "timezone", loc.String(), "cutoff_day", s.CutoffDay)
	return nil
}

// Stop waits for a running job to finish.
func (s *FollowUpScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
	s.log.Info("scheduler stopped")
}

// Running reports whether the cron runner is active.
func (s *FollowUpScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

// tick is the scheduled entry point.
func (s *FollowUpScheduler) tick() {
	ctx := context.Background()
	today := billing.Today(s.Clock)

	if s.Runs != nil {
		done, err := s.Runs.JobCompleted(ctx, JobFollowUpDigest, today)
		if err != nil {
			s.log.Error("failed to read run log", "error", err)
			return
		}
		if done {
			s.log.Info("digest already sent", "date", today.String())
			return
		}
	}

	if _, err := s.RunOnce(ctx); err != nil {
		s.log.Error("digest failed", "error", err)
	}
}

// RunOnce builds today's digest, sends it and records the run.
func (s *FollowUpScheduler) RunOnce(ctx context.Context) (notify.Digest, error) {
	today := billing.Today(s.Clock)

	clients, err := s.Store.List(ctx)
	if err != nil {
		return notify.Digest{}, fmt.Errorf("list clients: %w", err)
	}
	d := notify.Digest{
		Date: today,
		Rows: reporting.FollowUpList(clients, today, s.CutoffDay),
	}

	if err := s.Notifier.SendDigest(ctx, d); err != nil {
		return d, fmt.Errorf("send digest: %w", err)
	}

	if s.Runs != nil {
		if err := s.Runs.CompleteJob(ctx, JobFollowUpDigest, today, d.Subject()); err != nil {
			return d, fmt.Errorf("record run: %w", err)
		}
	}

	s.log.Info("digest sent", "date", today.String(), "clients", len(d.Rows), "total_due", d.Total().String())
	return d, nil
}

// History lists recent digest runs when the run log keeps them.
func (s *FollowUpScheduler) History(ctx context.Context, limit int) ([]sqlite.JobRun, error) {
	h, ok := s.Runs.(runHistory)
	if !ok {
		return []sqlite.JobRun{}, nil
	}
	runs, err := h.JobRuns(ctx, JobFollowUpDigest, limit)
	if runs == nil {
		runs = []sqlite.JobRun{}
	}
	return runs, err
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
