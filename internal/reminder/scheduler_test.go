package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAssignment struct {
	Assignment
	active bool
}

type fakeStore struct {
	mu          sync.Mutex
	assignments map[string]*fakeAssignment
	listErr     error
	flagErr     error
	flagWrites  int
}

func newFakeStore(items ...fakeAssignment) *fakeStore {
	s := &fakeStore{assignments: map[string]*fakeAssignment{}}
	for i := range items {
		item := items[i]
		s.assignments[item.ID] = &item
	}
	return s
}

func (s *fakeStore) ListActive(ctx context.Context) ([]Assignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []Assignment
	for _, a := range s.assignments {
		if a.active {
			out = append(out, a.Assignment)
		}
	}
	return out, nil
}

func (s *fakeStore) SetFlagIfUnset(ctx context.Context, n Notification) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flagErr != nil {
		return false, s.flagErr
	}
	a, ok := s.assignments[n.AssignmentID]
	if !ok || !a.active || a.Flags.IsSet(n.Threshold) {
		return false, nil
	}
	a.Flags = a.Flags.With(n.Threshold)
	s.flagWrites++
	return true, nil
}

func (s *fakeStore) flags(id string) Flags {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assignments[id].Flags
}

type sentNotification struct {
	Address   string
	EventType EventType
	Payload   Payload
}

type fakeNotifier struct {
	mu     sync.Mutex
	sent   []sentNotification
	failTo map[string]error
	block  chan struct{}
	onSend func()
}

func (n *fakeNotifier) Send(ctx context.Context, address string, eventType EventType, payload Payload) error {
	if n.onSend != nil {
		n.onSend()
	}
	if n.block != nil {
		select {
		case <-n.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.failTo[address]; err != nil {
		return err
	}
	n.sent = append(n.sent, sentNotification{Address: address, EventType: eventType, Payload: payload})
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func active(id string, dueIn time.Duration, flags Flags) fakeAssignment {
	return fakeAssignment{
		Assignment: Assignment{
			ID:        id,
			DueAt:     baseNow.Add(dueIn),
			Flags:     flags,
			Recipient: Recipient{Name: "Reviewer " + id, Address: id + "@example.com"},
		},
		active: true,
	}
}

func newTestScheduler(store Store, notifier Notifier, opts Options) *Scheduler {
	if opts.Now == nil {
		opts.Now = func() time.Time { return baseNow }
	}
	return NewScheduler(store, notifier, zerolog.Nop(), opts)
}

func TestRunCycleSends24hReminderOnce(t *testing.T) {
	store := newFakeStore(active("a1", 24*time.Hour, Flags{}))
	notifier := &fakeNotifier{}
	s := newTestScheduler(store, notifier, Options{})

	report, err := s.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusOK, report.Status)
	assert.Equal(t, 1, report.Evaluated)
	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, 1, report.Notified)
	assert.True(t, store.flags("a1").Notified24h)
	require.Equal(t, 1, notifier.count())
	assert.Equal(t, "a1@example.com", notifier.sent[0].Address)
	assert.Equal(t, EventDue24h, notifier.sent[0].EventType)
	assert.Equal(t, "Reviewer a1", notifier.sent[0].Payload[PayloadRecipientName])

	report, err = s.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Evaluated)
	assert.Equal(t, 0, report.Attempted)
	assert.Equal(t, 1, notifier.count())
}

func TestRunCycleFlagsAreMonotone(t *testing.T) {
	store := newFakeStore(active("a1", 30*time.Hour, Flags{}))
	notifier := &fakeNotifier{}
	now := baseNow
	s := newTestScheduler(store, notifier, Options{Now: func() time.Time { return now }})

	var fired []EventType
	for step := 0; step < 4*36; step++ {
		before := store.flags("a1")
		_, err := s.RunCycle(context.Background())
		require.NoError(t, err)
		after := store.flags("a1")

		for _, th := range []Threshold{Threshold24h, Threshold6h, ThresholdOverdue} {
			if before.IsSet(th) {
				assert.True(t, after.IsSet(th), "flag %s reset", th)
			}
		}
		now = now.Add(15 * time.Minute)
	}
	for _, n := range notifier.sent {
		fired = append(fired, n.EventType)
	}
	assert.Equal(t, []EventType{EventDue24h, EventDue6h, EventOverdue}, fired)
	assert.Equal(t, 3, store.flagWrites)
}

func TestRunCycleNotifierFailureLeavesFlagUnset(t *testing.T) {
	store := newFakeStore(active("a1", -3*time.Hour, Flags{}))
	notifier := &fakeNotifier{failTo: map[string]error{"a1@example.com": errors.New("smtp down")}}
	s := newTestScheduler(store, notifier, Options{})

	report, err := s.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, report.Status)
	assert.True(t, report.OK())
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Items, 1)
	assert.Equal(t, OutcomeSendFailed, report.Items[0].Outcome)
	assert.Contains(t, report.Items[0].Error, "smtp down")
	assert.False(t, store.flags("a1").NotifiedOverdue)

	// The next cycle sees the same assignment as eligible again.
	notifier.failTo = nil
	report, err = s.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Notified)
	assert.True(t, store.flags("a1").NotifiedOverdue)
}

func TestRunCycleIsolatesFailures(t *testing.T) {
	store := newFakeStore(
		active("a", 6*time.Hour, Flags{Notified24h: true}),
		active("b", 6*time.Hour, Flags{Notified24h: true}),
	)
	notifier := &fakeNotifier{failTo: map[string]error{"a@example.com": errors.New("bounced")}}
	s := newTestScheduler(store, notifier, Options{Concurrency: 1})

	report, err := s.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Notified)
	assert.False(t, store.flags("a").Notified6h)
	assert.True(t, store.flags("b").Notified6h)
}

func TestRunCycleSkipsInactiveAssignments(t *testing.T) {
	done := active("done", 24*time.Hour, Flags{})
	done.active = false
	store := newFakeStore(done)
	notifier := &fakeNotifier{}
	s := newTestScheduler(store, notifier, Options{})

	report, err := s.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Evaluated)
	assert.Equal(t, 0, notifier.count())
}

func TestRunCycleStoreUnavailable(t *testing.T) {
	store := newFakeStore()
	store.listErr = errors.New("connection refused")
	s := newTestScheduler(store, &fakeNotifier{}, Options{})

	report, err := s.RunCycle(context.Background())
	require.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, StatusFailed, report.Status)
	assert.False(t, report.OK())
	assert.Contains(t, report.Error, "connection refused")
}

func TestRunCycleCancelledBeforeListing(t *testing.T) {
	store := newFakeStore(active("a1", 24*time.Hour, Flags{}))
	notifier := &fakeNotifier{}
	s := newTestScheduler(store, notifier, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := s.RunCycle(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, StatusFailed, report.Status)
	assert.Equal(t, 0, notifier.count())
}

func TestRunCycleFlagWriteFailureAfterSend(t *testing.T) {
	store := newFakeStore(active("a1", 24*time.Hour, Flags{}))
	store.flagErr = errors.New("deadlock detected")
	notifier := &fakeNotifier{}
	s := newTestScheduler(store, notifier, Options{})

	report, err := s.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, notifier.count())
	assert.Equal(t, 1, report.Notified)
	assert.Equal(t, 1, report.FlagErrors)
	assert.Equal(t, StatusPartial, report.Status)
	assert.Equal(t, OutcomeFlagFailed, report.Items[0].Outcome)
}

type staleStore struct {
	*fakeStore
}

// SetFlagIfUnset behaves like a concurrent writer got there first.
func (s staleStore) SetFlagIfUnset(ctx context.Context, n Notification) (bool, error) {
	return false, nil
}

func TestRunCycleZeroRowFlagUpdateIsBenign(t *testing.T) {
	store := staleStore{newFakeStore(active("a1", 24*time.Hour, Flags{}))}
	s := newTestScheduler(store, &fakeNotifier{}, Options{})

	report, err := s.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusOK, report.Status)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, OutcomeAlreadySet, report.Items[0].Outcome)
}

func TestRunCycleSendTimeout(t *testing.T) {
	store := newFakeStore(active("a1", 24*time.Hour, Flags{}))
	notifier := &fakeNotifier{block: make(chan struct{})}
	s := newTestScheduler(store, notifier, Options{SendTimeout: 20 * time.Millisecond})

	report, err := s.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Items[0].Error, "timed out")
	assert.False(t, store.flags("a1").Notified24h)
}

func TestRunCycleRejectsOverlap(t *testing.T) {
	store := newFakeStore(active("a1", 24*time.Hour, Flags{}))
	entered := make(chan struct{})
	var once sync.Once
	notifier := &fakeNotifier{
		block:  make(chan struct{}),
		onSend: func() { once.Do(func() { close(entered) }) },
	}
	s := newTestScheduler(store, notifier, Options{SendTimeout: time.Minute})

	done := make(chan error, 1)
	go func() {
		_, err := s.RunCycle(context.Background())
		done <- err
	}()
	<-entered

	_, err := s.RunCycle(context.Background())
	assert.ErrorIs(t, err, ErrCycleInProgress)

	close(notifier.block)
	require.NoError(t, <-done)
	assert.True(t, store.flags("a1").Notified24h)
}

func TestRunCycleConcurrentDelivery(t *testing.T) {
	var items []fakeAssignment
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		items = append(items, active(id, -time.Hour*2, Flags{}))
	}
	store := newFakeStore(items...)
	notifier := &fakeNotifier{}
	s := newTestScheduler(store, notifier, Options{Concurrency: 3})

	report, err := s.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, report.Notified)
	assert.Equal(t, 8, notifier.count())
	assert.Equal(t, 8, store.flagWrites)
}
