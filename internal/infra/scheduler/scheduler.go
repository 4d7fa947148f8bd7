package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Ticker is the minimal interface the scheduler needs from the queue
// engine: one scheduling pass against a fresh snapshot.
type Ticker interface {
	Tick(ctx context.Context)
}

// Scheduler fires a Ticker on a fixed cadence while running. Start and Stop
// toggle whether new ticks are scheduled; an in-flight tick's network calls
// are never aborted by Stop.
type Scheduler struct {
	interval time.Duration
	ticker   Ticker
	log      *zerolog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	tickInFlight atomic.Bool
}

// NewScheduler constructs a scheduler that runs ticker.Tick every interval.
// If interval <= 0 it defaults to 3 seconds.
func NewScheduler(interval time.Duration, ticker Ticker, logger *zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Scheduler{
		interval: interval,
		ticker:   ticker,
		log:      logger,
	}
}

// Start begins the tick loop in a background goroutine. Calling Start while
// already running has no effect.
func (s *Scheduler) Start(parentCtx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx != nil {
		// already started
		return
	}
	ctx, cancel := context.WithCancel(parentCtx)
	s.ctx = ctx
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx, s.done)
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer func() {
		ticker.Stop()
		close(done)
	}()

	// Ticks run detached from the loop context: Stop prevents further
	// ticks but must not cancel a provider round-trip already in flight.
	tickCtx := context.WithoutCancel(ctx)

	s.log.Info().Dur("interval", s.interval).Msg("queue scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("queue scheduler stopping")
			return
		case <-ticker.C:
			if !s.tickInFlight.CompareAndSwap(false, true) {
				// Previous tick still running, even across a restart.
				continue
			}
			go func() {
				defer s.tickInFlight.Store(false)
				s.ticker.Tick(tickCtx)
			}()
		}
	}
}

// Stop cancels the loop and waits for it to finish. A tick already in
// flight keeps running to completion. Stop is idempotent, and the scheduler
// can be started again afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		// not started
		return
	}
	cancel, done := s.cancel, s.done
	s.ctx = nil
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	cancel()
	<-done
	s.log.Info().Msg("queue scheduler stopped")
}

// Running reports whether ticks are currently being scheduled.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx != nil
}
