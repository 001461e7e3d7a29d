package cycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrSessionActive  = errors.New("a cycle session is already active")
	ErrUnknownSession = errors.New("unknown cycle session")
)

// Handle identifies the active session of an Engine.
type Handle string

// Engine owns at most one active Session and serializes every update to it.
type Engine struct {
	mu      sync.Mutex
	session *Session
	opts    options
}

func NewEngine(opts ...Option) *Engine {
	return &Engine{opts: buildOptions(opts)}
}

// StartSession validates cfg and activates a new session. Invalid
// configuration is rejected synchronously and no session is created.
func (e *Engine) StartSession(cfg Config) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil {
		return "", ErrSessionActive
	}
	id := e.opts.newID()
	session, err := NewSession(id, cfg,
		WithSink(e.opts.sink), WithClock(e.opts.now), WithLogger(e.opts.log))
	if err != nil {
		return "", err
	}
	e.session = session

	e.opts.log.WithFields(logrus.Fields{
		"session_id":   id,
		"machine_type": cfg.MachineType,
		"radius_m":     cfg.ProximityRadiusM,
	}).Info("cycle session started")
	return Handle(id), nil
}

// OnPositionUpdate processes one sample to completion. Without an active
// session the update is ignored.
func (e *Engine) OnPositionUpdate(pos Position) Step {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return Step{Ignored: true}
	}
	return e.session.Update(pos)
}

// OnPositionUpdateFor applies pos only when h is still the active session and
// returns the resulting state from the same critical section. Late samples
// for an ended session are ignored.
func (e *Engine) OnPositionUpdateFor(h Handle, pos Position) (Step, State) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil || Handle(e.session.ID()) != h {
		return Step{Ignored: true}, State{}
	}
	step := e.session.Update(pos)
	return step, e.session.State(e.opts.now())
}

func (e *Engine) EndSession(h Handle) (Summary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil || Handle(e.session.ID()) != h {
		return Summary{}, ErrUnknownSession
	}
	summary := e.session.End()
	e.session = nil

	e.opts.log.WithFields(logrus.Fields{
		"session_id":       string(h),
		"cycles_completed": summary.CyclesCompletedCount,
	}).Info("cycle session ended")
	return summary, nil
}

// CurrentState returns the active session state, or false when idle.
func (e *Engine) CurrentState() (State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return State{}, false
	}
	return e.session.State(e.opts.now()), true
}

// Run consumes positions one at a time until the channel closes or ctx is done.
func (e *Engine) Run(ctx context.Context, positions <-chan Position) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case pos, ok := <-positions:
			if !ok {
				return nil
			}
			e.OnPositionUpdate(pos)
		}
	}
}

// Now exposes the engine clock to collaborators that timestamp around it.
func (e *Engine) Now() time.Time {
	return e.opts.now()
}
