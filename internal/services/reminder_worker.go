package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"reviewreminder/internal/logger"
	"reviewreminder/internal/reminder"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// CycleRunner runs one reminder cycle
type CycleRunner interface {
	RunCycle(ctx context.Context) (reminder.CycleReport, error)
}

// ReminderWorker triggers reminder cycles on a cron schedule and keeps the
// most recent report for monitoring.
type ReminderWorker struct {
	runner CycleRunner
	cron   *cron.Cron
	log    zerolog.Logger

	mu   sync.RWMutex
	last *reminder.CycleReport
}

func NewReminderWorker(runner CycleRunner, schedule string, log zerolog.Logger) (*ReminderWorker, error) {
	cl := logger.Cron(log)
	w := &ReminderWorker{
		runner: runner,
		log:    log.With().Str("component", "reminder_worker").Logger(),
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}

	if _, err := w.cron.AddFunc(schedule, w.runScheduled); err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", schedule, err)
	}
	return w, nil
}

func (w *ReminderWorker) Start() {
	w.cron.Start()
	w.log.Info().Msg("reminder worker started")
}

// Stop stops scheduling and waits for a running cycle, or until ctx is done
func (w *ReminderWorker) Stop(ctx context.Context) {
	select {
	case <-w.cron.Stop().Done():
		w.log.Info().Msg("reminder worker stopped")
	case <-ctx.Done():
		w.log.Warn().Msg("reminder worker stop timed out with a cycle still running")
	}
}

func (w *ReminderWorker) runScheduled() {
	if _, err := w.RunOnce(context.Background()); err != nil && !errors.Is(err, reminder.ErrCycleInProgress) {
		w.log.Error().Err(err).Msg("scheduled reminder cycle failed")
	}
}

// RunOnce runs a single cycle now. A rejected overlapping trigger does not
// replace the last report.
func (w *ReminderWorker) RunOnce(ctx context.Context) (reminder.CycleReport, error) {
	report, err := w.runner.RunCycle(ctx)
	if errors.Is(err, reminder.ErrCycleInProgress) {
		w.log.Info().Msg("reminder cycle skipped, previous cycle still running")
		return report, err
	}

	w.mu.Lock()
	w.last = &report
	w.mu.Unlock()
	return report, err
}

// LastReport returns the report of the most recent cycle, if any ran
func (w *ReminderWorker) LastReport() (reminder.CycleReport, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.last == nil {
		return reminder.CycleReport{}, false
	}
	return *w.last, true
}
