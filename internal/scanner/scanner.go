// Package scanner periodically finds overdue tasks and emits reminder and
// escalation notifications for them, each at most once per due date.
package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/viridial-group/realestate-sub003/internal/core/ports"
	"github.com/viridial-group/realestate-sub003/internal/domain"
	"github.com/viridial-group/realestate-sub003/internal/metrics"
)

// OverdueFinder is the read the scanner needs from the task store.
type OverdueFinder interface {
	FindOverdue(ctx context.Context, now time.Time) ([]domain.Task, error)
}

type Config struct {
	Interval time.Duration
	// GracePeriod separates a reminder (less overdue) from an escalation.
	GracePeriod time.Duration
	Concurrency int
	// DedupTTL bounds how long the ledger remembers a sent notification.
	DedupTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = 24 * time.Hour
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.DedupTTL <= 0 {
		c.DedupTTL = 7 * 24 * time.Hour
	}
	return c
}

// Report summarizes one sweep.
type Report struct {
	Overdue     int `json:"overdue"`
	Reminders   int `json:"reminders"`
	Escalations int `json:"escalations"`
	Skipped     int `json:"skipped"`
	Failed      int `json:"failed"`
}

type Scanner struct {
	tasks    OverdueFinder
	notifier ports.Notifier
	ledger   ports.NotificationLedger
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

func New(tasks OverdueFinder, notifier ports.Notifier, ledger ports.NotificationLedger, cfg Config, logger *zap.Logger) *Scanner {
	return &Scanner{
		tasks:    tasks,
		notifier: notifier,
		ledger:   ledger,
		cfg:      cfg.withDefaults(),
		logger:   logger.Named("scanner"),
		now:      time.Now,
	}
}

// Kind classifies how overdue a task is at now.
func (s *Scanner) Kind(task domain.Task, now time.Time) domain.NotificationKind {
	if now.Sub(*task.DueDate) < s.cfg.GracePeriod {
		return domain.NotifyReminder
	}
	return domain.NotifyEscalation
}

type result int

const (
	sentReminder result = iota
	sentEscalation
	skipped
	failed
)

// Sweep runs one stateless pass. It never changes task state.
func (s *Scanner) Sweep(ctx context.Context, now time.Time) (Report, error) {
	began := time.Now()
	defer func() { metrics.SweepDuration.Observe(time.Since(began).Seconds()) }()

	overdue, err := s.tasks.FindOverdue(ctx, now)
	if err != nil {
		metrics.Sweeps.WithLabelValues("error").Inc()
		return Report{}, err
	}
	metrics.OverdueTasks.Set(float64(len(overdue)))

	p := pool.NewWithResults[result]().WithMaxGoroutines(s.cfg.Concurrency)
	for _, task := range overdue {
		p.Go(func() result { return s.dispatch(ctx, task, now) })
	}

	report := Report{Overdue: len(overdue)}
	for _, r := range p.Wait() {
		switch r {
		case sentReminder:
			report.Reminders++
		case sentEscalation:
			report.Escalations++
		case skipped:
			report.Skipped++
		case failed:
			report.Failed++
		}
	}
	metrics.Sweeps.WithLabelValues("ok").Inc()
	s.logger.Info("sweep finished",
		zap.Int("overdue", report.Overdue),
		zap.Int("reminders", report.Reminders),
		zap.Int("escalations", report.Escalations),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (s *Scanner) dispatch(ctx context.Context, task domain.Task, now time.Time) result {
	kind := s.Kind(task, now)
	key := dedupKey(task, kind)

	first, err := s.ledger.MarkOnce(ctx, key, s.cfg.DedupTTL)
	if err != nil {
		s.logger.Error("notification ledger unavailable", zap.Stringer("task", task.ID), zap.Error(err))
		return failed
	}
	if !first {
		metrics.DedupSkips.Inc()
		return skipped
	}

	event := domain.NotificationEvent{
		ID:             ulid.Make().String(),
		Kind:           kind,
		TaskID:         task.ID,
		InstanceID:     task.InstanceID,
		OrganizationID: task.OrganizationID,
		Assignee:       task.Assignment.String(),
		Title:          task.Title,
		DueDate:        task.DueDate,
		OverdueBy:      now.Sub(*task.DueDate),
		OccurredAt:     now,
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.Error("failed to send overdue notification",
			zap.Stringer("task", task.ID),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		if err := s.ledger.Release(ctx, key); err != nil {
			s.logger.Warn("failed to release notification key", zap.String("key", key), zap.Error(err))
		}
		return failed
	}
	metrics.Notifications.WithLabelValues(string(kind)).Inc()
	if kind == domain.NotifyEscalation {
		return sentEscalation
	}
	return sentReminder
}

// Run sweeps every Interval until ctx is done. Failed sweeps are logged and
// the loop keeps going.
func (s *Scanner) Run(ctx context.Context) error {
	s.logger.Info("scanner started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("grace_period", s.cfg.GracePeriod),
	)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scanner shutting down")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sweep(ctx, s.now()); err != nil {
				s.logger.Error("sweep failed", zap.Error(err))
			}
		}
	}
}

// dedupKey changes with the due date so a rescheduled task is notified again.
func dedupKey(task domain.Task, kind domain.NotificationKind) string {
	return fmt.Sprintf("%s:%s:%d", task.ID, kind, task.DueDate.Unix())
}
