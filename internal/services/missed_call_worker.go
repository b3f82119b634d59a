package services

import (
	"context"
	"sync"
	"time"

	"echolink/pkg/logger"
)

// MissedCallWorker periodically sweeps calls that have been ringing past the
// configured timeout into MISSED. It is the out-of-band collaborator for the
// missed transition: the lifecycle's validated operations never produce
// MISSED themselves.
type MissedCallWorker struct {
	svc         *CallService
	interval    time.Duration
	ringTimeout time.Duration
	logger      *logger.Logger
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

func NewMissedCallWorker(svc *CallService, ringTimeout time.Duration, l *logger.Logger) *MissedCallWorker {
	interval := ringTimeout / 3
	if interval < time.Second {
		interval = time.Second
	}
	return &MissedCallWorker{
		svc:         svc,
		interval:    interval,
		ringTimeout: ringTimeout,
		logger:      l,
		stopChan:    make(chan struct{}),
	}
}

// Start begins the worker loop
func (w *MissedCallWorker) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop gracefully shuts down
func (w *MissedCallWorker) Stop() {
	close(w.stopChan)
	w.wg.Wait()
}

func (w *MissedCallWorker) run() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *MissedCallWorker) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	n, err := w.svc.SweepStaleRinging(ctx, w.ringTimeout)
	if err != nil {
		w.logger.Errorf("missed-call sweep failed: %s", err)
		return
	}
	if n > 0 {
		w.logger.Infof("marked %d unanswered calls as missed", n)
	}
}
