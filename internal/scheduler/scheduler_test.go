package scheduler

import (
	"cgmd/internal/models"
	"cgmd/internal/services"
	"cgmd/internal/structures"
	"cgmd/internal/testutil"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	mu       sync.Mutex
	polls    int
	restored int
	outcome  func() (services.Outcome, error)
	block    chan struct{}
	started  chan struct{}

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (f *fakeService) Poll(_ context.Context) (services.Outcome, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxInFlight.Load()
		if n <= cur || f.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	f.mu.Lock()
	f.polls++
	outcome := f.outcome
	f.mu.Unlock()

	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		<-f.block
	}
	if outcome == nil {
		return services.Outcome{}, nil
	}
	return outcome()
}

func (f *fakeService) Restore() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restored++
}

func (f *fakeService) Session() services.SessionInfo {
	return services.SessionInfo{}
}

func (f *fakeService) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

func testPolling() structures.PollingConfig {
	return structures.PollingConfig{
		SamplingInterval:   30 * time.Second,
		PublishOffset:      5 * time.Second,
		MinDelay:           time.Second,
		FallbackDelay:      60 * time.Second,
		FreshnessThreshold: 24 * time.Minute,
	}
}

func newTestScheduler(t *testing.T, svc *fakeService, polling structures.PollingConfig) (*Scheduler, *testutil.MockMetrics) {
	t.Helper()
	conf := testutil.Config(t.TempDir())
	conf.Polling = polling
	metrics := &testutil.MockMetrics{}
	s := NewScheduler(conf, &testutil.MockLogger{}, svc, metrics).(*Scheduler)
	t.Cleanup(s.Stop)
	return s, metrics
}

func TestNextDelay(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	p := testPolling()

	tests := []struct {
		name string
		last time.Time
		want time.Duration
	}{
		{name: "target in the past clamps to fallback", last: now.Add(-58 * time.Second), want: p.FallbackDelay},
		{name: "anchored to reading", last: now.Add(-10 * time.Second), want: 25 * time.Second},
		{name: "fresh reading waits full period", last: now, want: 35 * time.Second},
		{name: "below safety floor", last: now.Add(-34500 * time.Millisecond), want: p.FallbackDelay},
		{name: "exactly at floor", last: now.Add(-34 * time.Second), want: time.Second},
		{name: "reading ahead of clock", last: now.Add(time.Minute), want: 35 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDelay(now, tt.last, p)
			assert.Equal(t, tt.want, got)
			assert.Positive(t, got)
		})
	}
}

func TestScheduler_InitRunsFirstCycleImmediately(t *testing.T) {
	svc := &fakeService{}
	s, metrics := newTestScheduler(t, svc, testPolling())

	s.Init()

	require.Eventually(t, func() bool { return metrics.CycleCount(OutcomeNoData) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, svc.pollCount())

	status := s.Status()
	assert.Equal(t, OutcomeNoData, status.LastOutcome)
	assert.False(t, status.LastCycleAt.IsZero())
}

func TestScheduler_FailureRetriesOnFallback(t *testing.T) {
	polling := testPolling()
	polling.FallbackDelay = 10 * time.Millisecond
	svc := &fakeService{outcome: func() (services.Outcome, error) {
		return services.Outcome{}, errors.New("upstream down")
	}}
	s, metrics := newTestScheduler(t, svc, polling)

	s.Init()

	require.Eventually(t, func() bool { return metrics.CycleCount(OutcomeError) >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	for _, d := range metrics.Delays()[1:] {
		assert.Equal(t, polling.FallbackDelay, d)
	}
}

func TestScheduler_FreshReadingAnchorsNextPoll(t *testing.T) {
	polling := testPolling()
	polling.FallbackDelay = time.Hour
	svc := &fakeService{outcome: func() (services.Outcome, error) {
		return services.Outcome{Reading: &models.Reading{Timestamp: time.Now().Add(-20 * time.Second)}, Fresh: true}, nil
	}}
	s, metrics := newTestScheduler(t, svc, polling)

	s.Init()

	require.Eventually(t, func() bool { return len(metrics.Delays()) == 2 }, time.Second, 5*time.Millisecond)
	s.Stop()

	delays := metrics.Delays()
	assert.Equal(t, 1, metrics.CycleCount(OutcomeFresh))
	assert.Equal(t, time.Duration(0), delays[0])
	assert.InDelta(t, float64(15*time.Second), float64(delays[1]), float64(time.Second))
	assert.WithinDuration(t, time.Now().Add(15*time.Second), s.Status().NextPoll, 2*time.Second)
}

func TestScheduler_DuplicateUsesFallback(t *testing.T) {
	polling := testPolling()
	svc := &fakeService{outcome: func() (services.Outcome, error) {
		return services.Outcome{Reading: &models.Reading{Timestamp: time.Now()}}, nil
	}}
	s, metrics := newTestScheduler(t, svc, polling)

	s.Init()

	require.Eventually(t, func() bool { return len(metrics.Delays()) == 2 }, time.Second, 5*time.Millisecond)
	s.Stop()

	assert.Equal(t, 1, metrics.CycleCount(OutcomeDuplicate))
	assert.Equal(t, polling.FallbackDelay, metrics.Delays()[1])
}

func TestScheduler_CyclesNeverOverlap(t *testing.T) {
	svc := &fakeService{block: make(chan struct{}), started: make(chan struct{}, 1)}
	s, _ := newTestScheduler(t, svc, testPolling())

	go s.tick()
	<-svc.started
	assert.Equal(t, StateRunning, s.Status().State)

	s.tick()
	close(svc.block)

	require.Eventually(t, func() bool { return s.Status().State == StateIdle }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, svc.pollCount())
	assert.Equal(t, int32(1), svc.maxInFlight.Load())
}

func TestScheduler_StopWaitsForInFlightCycle(t *testing.T) {
	polling := testPolling()
	polling.FallbackDelay = 5 * time.Millisecond
	svc := &fakeService{block: make(chan struct{}), started: make(chan struct{}, 1)}
	s, _ := newTestScheduler(t, svc, polling)

	s.Init()
	<-svc.started

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a cycle was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(svc.block)
	<-stopped

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, svc.pollCount())
	assert.Equal(t, StateStopped, s.Status().State)
}

func TestScheduler_RestoreDelegatesToService(t *testing.T) {
	svc := &fakeService{}
	s, _ := newTestScheduler(t, svc, testPolling())

	s.Restore()

	assert.Equal(t, 1, svc.restored)
}
