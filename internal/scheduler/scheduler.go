// Package scheduler serializes refresh runs. At most one run executes at a
// time and triggers arriving during a run collapse into a single rerun.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"pkt.systems/pslog"
)

// State is the scheduler state.
type State int

const (
	// Idle means no run is executing.
	Idle State = iota
	// Refreshing means a run is executing.
	Refreshing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Refreshing:
		return "refreshing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// RunFunc performs one refresh. Its error is logged and otherwise ignored.
type RunFunc func(ctx context.Context) error

// Scheduler runs RunFunc on demand without overlap or unbounded queueing.
type Scheduler struct {
	ctx context.Context
	run RunFunc
	log pslog.Logger

	mu      sync.Mutex
	state   State
	pending bool
	closed  bool
	idle    chan struct{}
}

// New constructs an idle scheduler. Runs receive ctx.
func New(ctx context.Context, run RunFunc) *Scheduler {
	idle := make(chan struct{})
	close(idle)
	return &Scheduler{
		ctx:  ctx,
		run:  run,
		log:  pslog.Ctx(ctx),
		idle: idle,
	}
}

// Trigger requests a refresh. When idle the run starts immediately; while
// refreshing at most one rerun is remembered.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.state == Refreshing {
		if !s.pending {
			s.log.Trace("refresh coalesced")
		}
		s.pending = true
		s.mu.Unlock()
		return
	}
	s.state = Refreshing
	s.idle = make(chan struct{})
	s.mu.Unlock()
	go s.loop()
}

// State reports the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// WaitIdle blocks until the scheduler is idle or ctx is done.
func (s *Scheduler) WaitIdle(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting triggers and drops any pending rerun. A run in
// progress is allowed to finish.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.pending = false
	s.mu.Unlock()
}

func (s *Scheduler) loop() {
	for {
		s.runOnce()
		s.mu.Lock()
		if s.pending && !s.closed {
			s.pending = false
			s.mu.Unlock()
			continue
		}
		s.pending = false
		s.state = Idle
		close(s.idle)
		s.mu.Unlock()
		return
	}
}

func (s *Scheduler) runOnce() {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("refresh panicked", "panic", fmt.Sprint(r))
		}
	}()
	if err := s.run(s.ctx); err != nil {
		s.log.Warn("refresh failed", "err", err)
	}
}
