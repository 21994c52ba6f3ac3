/* Copyright 2025 Parceltrack Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package scheduler runs the sync cycle in the background. A cycle
// authenticates the device, pulls the server's delta, reports the applied
// changes back and pushes the local ones. Cycles never overlap and a failing
// phase never stops the loop.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/parceltrack/parceltrack/pkg/device/database"
	"github.com/parceltrack/parceltrack/pkg/device/syncer"
	"github.com/parceltrack/parceltrack/pkg/log"
	"github.com/pkg/errors"
)

// ErrRunning is returned when starting a scheduler that is already running
var ErrRunning = errors.New("scheduler is already running")

// State is the phase the scheduler is in
type State int

const (
	// Idle is the state between cycles outside of the loop
	Idle State = iota
	// Authenticating refreshes the bearer token
	Authenticating
	// PullingDelta merges the server's changes
	PullingDelta
	// PushingAck reports the applied changes
	PushingAck
	// PushingMutations sends the local changes
	PushingMutations
	// Sleeping waits for the next cycle
	Sleeping
	// Stopped is terminal until the scheduler is started again
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Authenticating:
		return "authenticating"
	case PullingDelta:
		return "pulling delta"
	case PushingAck:
		return "pushing ack"
	case PushingMutations:
		return "pushing mutations"
	case Sleeping:
		return "sleeping"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Engine runs the individual sync phases
type Engine interface {
	Authenticate(ctx context.Context) error
	PullDelta(ctx context.Context) (syncer.Result, error)
	PushAck(ctx context.Context) (syncer.Result, error)
	PushDirty(ctx context.Context) (syncer.Result, error)
}

// PhaseResult is the outcome of one phase
type PhaseResult struct {
	Phase  State
	Result syncer.Result
	Err    error
}

// Report is the outcome of one cycle in the order the phases ran
type Report struct {
	Phases []PhaseResult
}

// Err returns the first phase error, if any
func (r Report) Err() error {
	for _, p := range r.Phases {
		if p.Err != nil {
			return errors.Wrap(p.Err, p.Phase.String())
		}
	}

	return nil
}

// Phase returns the result of the given phase and whether it ran
func (r Report) Phase(s State) (PhaseResult, bool) {
	for _, p := range r.Phases {
		if p.Phase == s {
			return p, true
		}
	}

	return PhaseResult{}, false
}

// Scheduler runs sync cycles until stopped
type Scheduler struct {
	engine Engine
	db     *database.DB

	// interval overrides the device's sync interval when positive
	interval time.Duration

	// cycleMu keeps cycles from overlapping
	cycleMu sync.Mutex

	mu      sync.Mutex
	state   State
	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// New returns a scheduler. The sleep between cycles is read from the device
// row unless a positive interval is given.
func New(engine Engine, db *database.DB, interval time.Duration) *Scheduler {
	return &Scheduler{
		engine:   engine,
		db:       db,
		interval: interval,
		state:    Idle,
	}
}

// State returns the current state
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	log.WithFields(log.Fields{"state": state.String()}).Debug("scheduler transition")
}

func (s *Scheduler) stopRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopCh == nil {
		return false
	}

	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

func (s *Scheduler) sleepInterval() time.Duration {
	if s.interval > 0 {
		return s.interval
	}

	sec := database.DefaultSyncIntervalSec
	if s.db != nil {
		d, err := database.GetDevice(s.db)
		if err == nil && d.SyncIntervalSec > 0 {
			sec = d.SyncIntervalSec
		}
	}

	return time.Duration(sec) * time.Second
}

// Start runs cycles until Stop is called or the context is done. The first
// cycle starts immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrRunning
	}
	s.running = true
	s.state = Idle
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	stopCh, done := s.stopCh, s.done
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.state = Stopped
		s.stopCh = nil
		s.mu.Unlock()

		close(done)
		log.Info("sync scheduler stopped")
	}()

	log.Info("sync scheduler started")

	for {
		s.Tick(ctx)

		if ctx.Err() != nil || s.stopRequested() {
			return nil
		}

		interval := s.sleepInterval()
		s.setState(Sleeping)

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-stopCh:
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Stop asks the running loop to stop at the next phase boundary and waits
// for it. A phase in progress is allowed to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.state = Stopped
		s.mu.Unlock()
		return
	}

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	done := s.done
	s.mu.Unlock()

	<-done
}

type phase struct {
	state State
	run   func(ctx context.Context) (syncer.Result, error)
}

// Tick runs one cycle. A failed authentication ends the cycle early; any
// other failing phase is logged and the cycle moves on.
func (s *Scheduler) Tick(ctx context.Context) Report {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	var report Report
	if ctx.Err() != nil || s.stopRequested() {
		return report
	}

	// network calls in flight are allowed to complete after a cancellation
	netCtx := context.WithoutCancel(ctx)

	auth := s.runPhase(netCtx, phase{
		state: Authenticating,
		run: func(ctx context.Context) (syncer.Result, error) {
			return syncer.Result{}, s.engine.Authenticate(ctx)
		},
	})
	report.Phases = append(report.Phases, auth)
	if auth.Err != nil {
		s.setState(Idle)
		return report
	}

	phases := []phase{
		{state: PullingDelta, run: s.engine.PullDelta},
		{state: PushingAck, run: s.engine.PushAck},
		{state: PushingMutations, run: s.engine.PushDirty},
	}
	for _, p := range phases {
		if ctx.Err() != nil || s.stopRequested() {
			return report
		}

		report.Phases = append(report.Phases, s.runPhase(netCtx, p))
	}

	s.setState(Idle)
	return report
}

func (s *Scheduler) runPhase(ctx context.Context, p phase) (ret PhaseResult) {
	s.setState(p.state)
	ret.Phase = p.state

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			ret.Err = errors.Errorf("panic: %v", r)
		}

		fields := log.Fields{
			"phase":    p.state.String(),
			"duration": time.Since(start).String(),
		}
		if ret.Err != nil {
			log.WithFields(fields).ErrorWrap(ret.Err, "sync phase failed")
		} else {
			log.WithFields(fields).Debug("sync phase done")
		}
	}()

	res, err := p.run(ctx)
	ret.Result = res
	ret.Err = err

	return ret
}
