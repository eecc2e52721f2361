package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/artpar/bazaargate/domain/quota"
	"github.com/artpar/bazaargate/ports"
	"github.com/rs/zerolog"
)

// sweepTimeout bounds one reset sweep so a hung store cannot stall the schedule.
const sweepTimeout = 30 * time.Second

// ResetScheduler zeroes every key's usage counter on a fixed interval.
// It is the only component that lowers usage counters.
type ResetScheduler struct {
	keys     ports.KeyLedger
	clock    ports.Clock
	metrics  ports.Metrics
	logger   zerolog.Logger
	interval time.Duration

	mu   sync.RWMutex
	last SweepResult

	stopCh    chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// SweepResult describes the most recent reset sweep.
type SweepResult struct {
	At     time.Time
	Zeroed int64
	Err    error
}

// ResetDeps contains dependencies for ResetScheduler.
type ResetDeps struct {
	Keys    ports.KeyLedger
	Clock   ports.Clock
	Metrics ports.Metrics // optional
	Logger  zerolog.Logger
}

// NewResetScheduler creates a scheduler firing every interval.
// A zero interval uses quota.DefaultResetInterval.
func NewResetScheduler(deps ResetDeps, interval time.Duration) *ResetScheduler {
	if interval <= 0 {
		interval = quota.DefaultResetInterval
	}
	m := deps.Metrics
	if m == nil {
		m = NopMetrics{}
	}
	c := deps.Clock
	if c == nil {
		c = systemClock{}
	}

	return &ResetScheduler{
		keys:     deps.Keys,
		clock:    c,
		metrics:  m,
		logger:   deps.Logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Interval returns the time between sweeps.
func (r *ResetScheduler) Interval() time.Duration {
	return r.interval
}

// Start launches the background loop. Calling Start more than once has no effect.
func (r *ResetScheduler) Start() {
	r.startOnce.Do(func() {
		r.wg.Add(1)
		go r.loop()

		r.logger.Info().
			Dur("interval", r.interval).
			Msg("quota reset scheduler started")
	})
}

func (r *ResetScheduler) loop() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
			r.RunOnce(ctx)
			cancel()
		case <-r.stopCh:
			return
		}
	}
}

// RunOnce performs a single sweep. Errors and panics are recorded and returned,
// never propagated to the loop.
func (r *ResetScheduler) RunOnce(ctx context.Context) (zeroed int64, err error) {
	start := r.clock.Now()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("reset sweep panicked: %v", p)
			zeroed = 0
		}
		r.record(SweepResult{At: start, Zeroed: zeroed, Err: err}, r.clock.Now().Sub(start))
	}()

	return r.keys.ResetUsage(ctx)
}

func (r *ResetScheduler) record(res SweepResult, took time.Duration) {
	r.mu.Lock()
	r.last = res
	r.mu.Unlock()

	r.metrics.ResetSweep(res.Zeroed, res.Err, res.At)

	if res.Err != nil {
		r.logger.Error().
			Err(res.Err).
			Dur("took", took).
			Msg("quota reset sweep failed")
		return
	}
	r.logger.Info().
		Int64("keys_zeroed", res.Zeroed).
		Dur("took", took).
		Msg("quota reset sweep completed")
}

// LastRun returns the most recent sweep result and whether any sweep has run.
func (r *ResetScheduler) LastRun() (SweepResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last, !r.last.At.IsZero()
}

// Stop ends the background loop and waits for an in-flight sweep to finish.
func (r *ResetScheduler) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
		r.wg.Wait()
		r.logger.Info().Msg("quota reset scheduler stopped")
	})
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
