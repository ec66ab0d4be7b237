package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency = 4
	DefaultSendTimeout = 10 * time.Second
)

// Options tunes a Scheduler. Zero values fall back to the defaults.
type Options struct {
	// Concurrency bounds how many notifications are processed at once.
	Concurrency int
	// SendTimeout bounds a single Notifier call.
	SendTimeout time.Duration
	// Now is the clock; time.Now when nil.
	Now func() time.Time
}

// Scheduler runs reminder cycles against a Store and a Notifier.
type Scheduler struct {
	store    Store
	notifier Notifier
	log      zerolog.Logger
	opts     Options
	running  atomic.Bool
}

func NewScheduler(store Store, notifier Notifier, log zerolog.Logger, opts Options) *Scheduler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{
		store:    store,
		notifier: notifier,
		log:      log.With().Str("component", "reminder_scheduler").Logger(),
		opts:     opts,
	}
}

// RunCycle runs one complete cycle. The returned error is non-nil only for
// cycle-level failures: ErrStoreUnavailable when active assignments cannot be
// listed, ctx.Err() when ctx ended before they were, or ErrCycleInProgress
// when another cycle has not finished.
// Per-assignment failures are recorded in the report.
func (s *Scheduler) RunCycle(ctx context.Context) (CycleReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return CycleReport{}, ErrCycleInProgress
	}
	defer s.running.Store(false)

	report := CycleReport{ID: uuid.NewString(), StartedAt: s.opts.Now()}
	log := s.log.With().Str("cycle_id", report.ID).Logger()

	assignments, err := s.store.ListActive(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		} else {
			err = fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		report = report.finish(s.opts.Now(), err)
		log.Error().Err(err).Msg("reminder cycle aborted")
		return report, err
	}
	report.Evaluated = len(assignments)

	planned := Plan(report.StartedAt, assignments)
	results := make([]ItemResult, len(planned))

	g := new(errgroup.Group)
	g.SetLimit(s.opts.Concurrency)
	for i, n := range planned {
		g.Go(func() error {
			results[i] = s.deliver(ctx, log, n)
			return nil
		})
	}
	_ = g.Wait()

	for _, item := range results {
		report = report.Add(item)
	}
	report = report.finish(s.opts.Now(), nil)

	log.Info().
		Int("evaluated", report.Evaluated).
		Int("attempted", report.Attempted).
		Int("notified", report.Notified).
		Int("failed", report.Failed).
		Int("flag_errors", report.FlagErrors).
		Dur("took", report.Duration()).
		Str("status", string(report.Status)).
		Msg("reminder cycle finished")
	return report, nil
}

// deliver sends one notification and, only after a successful send,
// persists its flag.
func (s *Scheduler) deliver(ctx context.Context, log zerolog.Logger, n Notification) ItemResult {
	item := ItemResult{
		AssignmentID: n.AssignmentID,
		Threshold:    n.Threshold.String(),
		EventType:    n.EventType,
	}
	log = log.With().Str("assignment_id", n.AssignmentID).Str("threshold", item.Threshold).Logger()

	if err := s.send(ctx, n); err != nil {
		item.Outcome = OutcomeSendFailed
		item.Error = err.Error()
		log.Warn().Err(err).Msg("reminder send failed")
		return item
	}

	// The send already happened; a cancelled cycle must not skip the flag write.
	changed, err := s.store.SetFlagIfUnset(context.WithoutCancel(ctx), n)
	switch {
	case err != nil:
		item.Outcome = OutcomeFlagFailed
		item.Error = err.Error()
		log.Error().Err(err).Msg("reminder sent but flag not persisted")
	case !changed:
		item.Outcome = OutcomeAlreadySet
		log.Debug().Msg("reminder flag already set")
	default:
		item.Outcome = OutcomeNotified
		log.Debug().Str("recipient", n.Recipient.Address).Msg("reminder sent")
	}
	return item
}

func (s *Scheduler) send(ctx context.Context, n Notification) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.SendTimeout)
	defer cancel()

	err := s.notifier.Send(ctx, n.Recipient.Address, n.EventType, n.Payload)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("send timed out after %v: %w", s.opts.SendTimeout, err)
	}
	return err
}
