package confirm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Sweeper purges expired confirmations on an interval. Redeem already
// treats expired entries as gone; sweeping only bounds store growth.
type Sweeper struct {
	broker   *Broker
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	swept  atomic.Int64
}

// NewSweeper creates a sweeper; a non-positive interval means 30s.
func NewSweeper(broker *Broker, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{broker: broker, interval: interval, logger: logger}
}

// Running reports whether Start is active.
func (s *Sweeper) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Swept is the number of entries purged since construction.
func (s *Sweeper) Swept() int64 {
	return s.swept.Load()
}

// Start sweeps every interval until ctx is done or Stop is called. It
// blocks; a second concurrent Start returns immediately.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		cancel()
		return
	}
	s.cancel = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
		cancel()
		s.logger.Debug("confirmation sweeper stopped", "swept", s.swept.Load())
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.swept.Add(int64(s.SweepOnce(ctx)))
		}
	}
}

// Stop ends a running Start. It is a no-op otherwise.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// SweepOnce runs a single pass and returns how many entries it removed.
// Store errors and panics are logged and count as zero.
func (s *Sweeper) SweepOnce(ctx context.Context) (n int) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in confirmation sweeper", "panic", fmt.Sprint(r))
			n = 0
		}
	}()
	n, err := s.broker.Sweep(ctx)
	if err != nil {
		s.logger.Warn("confirmation sweep failed", "error", err)
		return 0
	}
	if n > 0 {
		s.logger.Debug("swept expired confirmations", "count", n)
	}
	return n
}
