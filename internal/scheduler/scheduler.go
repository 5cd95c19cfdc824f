package scheduler

import (
	"cgmd/internal/providers"
	"cgmd/internal/scheduler/interfaces"
	"cgmd/internal/services"
	"cgmd/internal/structures"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	StateIdle    = "idle"
	StateRunning = "running"
	StateStopped = "stopped"

	OutcomeFresh     = "fresh"
	OutcomeDuplicate = "duplicate"
	OutcomeNoData    = "no_data"
	OutcomeError     = "error"
)

// Scheduler drives poll cycles. It is Idle while a timer is armed and Running
// while a cycle is in flight; the timer is re-armed only after a cycle ends,
// so cycles never overlap.
type Scheduler struct {
	config  *structures.Config
	logger  providers.Logger
	service services.GlucoseServiceInterface
	metrics providers.MetricsProviderInterface
	now     func() time.Time

	running atomic.Bool
	wg      sync.WaitGroup

	mu          sync.Mutex
	timer       *time.Timer
	stopped     bool
	nextPoll    time.Time
	lastCycleAt time.Time
	lastOutcome string
}

// NextDelay returns how long to wait after a reading stamped last. The next
// poll targets one sampling interval plus the publish offset after last; a
// target closer than MinDelay, or already past, falls back to FallbackDelay.
func NextDelay(now, last time.Time, p structures.PollingConfig) time.Duration {
	period := p.SamplingInterval + p.PublishOffset
	delay := last.Add(period).Sub(now)
	if delay < p.MinDelay {
		return p.FallbackDelay
	}
	if delay > period {
		// reading stamped ahead of the local clock
		return period
	}
	return delay
}

// Init starts the first cycle immediately.
func (s *Scheduler) Init() {
	s.logger.Infof(providers.TypeScheduler, "Scheduler started, sampling interval %s, fallback %s",
		s.config.Polling.SamplingInterval, s.config.Polling.FallbackDelay)
	s.arm(0)
}

// Stop disarms the timer and waits for an in-flight cycle to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Infof(providers.TypeScheduler, "Scheduler stopped")
}

func (s *Scheduler) Restore() {
	s.service.Restore()
}

func (s *Scheduler) Status() interfaces.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := StateIdle
	switch {
	case s.stopped:
		state = StateStopped
	case s.running.Load():
		state = StateRunning
	}
	return interfaces.Status{
		State:       state,
		NextPoll:    s.nextPoll,
		LastCycleAt: s.lastCycleAt,
		LastOutcome: s.lastOutcome,
	}
}

func (s *Scheduler) arm(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.nextPoll = s.now().Add(delay)
	s.metrics.SetNextPollDelay(delay)
	s.timer = time.AfterFunc(delay, s.tick)
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	if !s.running.CompareAndSwap(false, true) {
		s.mu.Unlock()
		s.logger.Warnf(providers.TypeScheduler, "Previous cycle still running, tick skipped")
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	delay := s.runCycle(context.Background())
	s.running.Store(false)
	s.arm(delay)
}

func (s *Scheduler) runCycle(ctx context.Context) time.Duration {
	cycleID := uuid.NewString()
	start := s.now()
	s.logger.Debugf(providers.TypeScheduler, "Cycle %s started", cycleID)

	out, err := s.service.Poll(ctx)
	outcome := classify(out, err)

	s.mu.Lock()
	s.lastCycleAt = start
	s.lastOutcome = outcome
	s.mu.Unlock()
	s.metrics.IncCyclesTotal(outcome)

	fallback := s.config.Polling.FallbackDelay
	switch outcome {
	case OutcomeError:
		s.logger.Errorf(providers.TypeScheduler, "Cycle %s failed: %s, retrying in %s", cycleID, err, fallback)
		return fallback
	case OutcomeFresh:
		delay := NextDelay(s.now(), out.Reading.Timestamp, s.config.Polling)
		s.logger.Infof(providers.TypeScheduler, "Cycle %s done in %s, next poll in %s", cycleID, s.now().Sub(start), delay)
		return delay
	default:
		s.logger.Infof(providers.TypeScheduler, "Cycle %s found no new reading (%s), next poll in %s", cycleID, outcome, fallback)
		return fallback
	}
}

func classify(out services.Outcome, err error) string {
	switch {
	case err != nil:
		return OutcomeError
	case out.Fresh:
		return OutcomeFresh
	case out.Reading != nil:
		return OutcomeDuplicate
	default:
		return OutcomeNoData
	}
}

func NewScheduler(config *structures.Config, logger providers.Logger, service services.GlucoseServiceInterface, metrics providers.MetricsProviderInterface) interfaces.SchedulerInterface {
	return &Scheduler{
		config:  config,
		logger:  logger,
		service: service,
		metrics: metrics,
		now:     time.Now,
	}
}
