package server

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/monkeyescape/monkeyescape/internal/core/npc"
	"github.com/monkeyescape/monkeyescape/internal/core/observability/log"
	"github.com/monkeyescape/monkeyescape/internal/core/session"
)

// Sink receives what the runner produces every tick.
type Sink interface {
	BroadcastFrame(payload []byte) bool
	SendTo(clientID string, payload []byte) bool
}

// Runner owns a Session and advances it on a single goroutine at a fixed
// rate. Every other goroutine talks to it through Submit.
type Runner struct {
	inbox          chan any
	session        *session.Session
	sink           Sink
	interval       time.Duration
	broadcastEvery uint64
	logger         log.Log

	// runLogger is logger tagged with the run id it was built for.
	runID     string
	runLogger log.Log

	latestInput npc.Input
	latest      atomic.Pointer[session.Snapshot]
	running     atomic.Bool
	done        chan struct{}
}

// NewRunner creates a runner for s. broadcastEvery < 1 is treated as 1.
func NewRunner(s *session.Session, sink Sink, interval time.Duration, broadcastEvery int, logger log.Log) *Runner {
	if broadcastEvery < 1 {
		broadcastEvery = 1
	}
	r := &Runner{
		inbox:          make(chan any, 256),
		session:        s,
		sink:           sink,
		interval:       interval,
		broadcastEvery: uint64(broadcastEvery),
		logger:         logger.With(log.String("component", "runner")),
		done:           make(chan struct{}),
	}
	r.runLogger = r.logger
	snap := s.Snapshot()
	r.latest.Store(&snap)
	return r
}

// Latest returns the snapshot taken after the most recent tick.
func (r *Runner) Latest() session.Snapshot {
	return *r.latest.Load()
}

// Submit posts a command to the simulation goroutine. It blocks while the
// inbox is full and fails once the runner has stopped.
func (r *Runner) Submit(ctx context.Context, cmd any) error {
	select {
	case <-r.done:
		return ErrRunnerStopped
	default:
	}
	select {
	case r.inbox <- cmd:
		return nil
	case <-r.done:
		return ErrRunnerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run ticks the session until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrServerAlreadyRunning
	}
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("Runner started", log.Duration("interval", r.interval))
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Runner stopped", log.Uint64("ticks", r.session.Tick()))
			return nil
		case cmd := <-r.inbox:
			r.handleCommand(ctx, cmd)
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			r.step(ctx, dt)
		}
	}
}

// runLog returns the runner logger tagged with the session's current run.
func (r *Runner) runLog(ctx context.Context) log.Log {
	if id := r.session.RunID(); id != r.runID {
		r.runID = id
		r.runLogger = r.logger.WithContext(log.ContextWithRunID(ctx, id))
	}
	return r.runLogger
}

func (r *Runner) step(ctx context.Context, dt float64) {
	r.session.Advance(dt, r.latestInput)
	snap := r.session.Snapshot()
	r.latest.Store(&snap)
	if snap.Tick%r.broadcastEvery != 0 {
		return
	}
	payload, err := Encode(MsgSnapshot, snap)
	if err != nil {
		r.runLog(ctx).Error("Failed to encode snapshot", log.Error(err))
		return
	}
	r.sink.BroadcastFrame(payload)
}

func (r *Runner) handleCommand(ctx context.Context, cmd any) {
	var (
		clientID string
		err      error
	)
	switch c := cmd.(type) {
	case InputCommand:
		r.latestInput = c.Input
		return
	case PlayCommand:
		clientID, err = c.ClientID, r.session.RequestPlay()
	case DemoCommand:
		clientID, err = c.ClientID, r.session.RequestDemo()
	case ChooseCommand:
		clientID = c.ClientID
		if err = r.session.ChooseVariantName(c.Variant); err == nil {
			r.latestInput = npc.Input{}
		}
	default:
		err = fmt.Errorf("%w: unsupported command %T", ErrInvalidMessage, cmd)
	}

	snap := r.session.Snapshot()
	r.latest.Store(&snap)
	if err == nil {
		return
	}
	if !errors.Is(err, session.ErrInvalidTransition) && !errors.Is(err, session.ErrUnknownVariant) {
		r.runLog(ctx).Warn("Command failed", log.String("client_id", clientID), log.Error(err))
	}
	if payload, encErr := Encode(MsgError, err.Error()); encErr == nil && clientID != "" {
		r.sink.SendTo(clientID, payload)
	}
}
