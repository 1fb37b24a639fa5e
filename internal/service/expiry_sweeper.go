package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultSweepInterval = time.Minute

	// Timeout for a single sweep pass
	sweepTimeout = 30 * time.Second
)

// OverdueExpirer retires REQUESTED consultations past their deadline
type OverdueExpirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

// ExpirySweeper periodically expires overdue consultations.
// Call Stop() during graceful shutdown.
type ExpirySweeper struct {
	expirer  OverdueExpirer
	interval time.Duration
	log      *logrus.Logger

	stopChan chan struct{}
	wg       sync.WaitGroup
	started  atomic.Bool
	stopped  atomic.Bool
}

func NewExpirySweeper(expirer OverdueExpirer, interval time.Duration, log *logrus.Logger) *ExpirySweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &ExpirySweeper{
		expirer:  expirer,
		interval: interval,
		log:      log,
		stopChan: make(chan struct{}),
	}
}

// Start launches the background loop. Calling it twice has no effect.
func (s *ExpirySweeper) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.wg.Add(1)
	go s.loop()
}

// Stop gracefully shuts down the sweeper.
// Safe to call multiple times.
func (s *ExpirySweeper) Stop() {
	if s.stopped.CompareAndSwap(false, true) {
		close(s.stopChan)
		s.wg.Wait()
		s.log.Info("ExpirySweeper stopped")
	}
}

// RunOnce performs a single sweep pass
func (s *ExpirySweeper) RunOnce(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	n, err := s.expirer.ExpireOverdue(ctx)
	if err != nil {
		s.log.Warnf("Expiry sweep failed: %+v", err)
	}
	if n > 0 {
		s.log.Infof("Expired %d overdue consultations", n)
	}
	return n
}

func (s *ExpirySweeper) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			s.log.Debug("Expiry sweep goroutine stopping")
			return
		case <-ticker.C:
			s.RunOnce(context.Background())
		}
	}
}
