package session

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/monkeyescape/monkeyescape/internal/core/agent"
	"github.com/monkeyescape/monkeyescape/internal/core/events/bus"
	"github.com/monkeyescape/monkeyescape/internal/core/npc"
	"github.com/monkeyescape/monkeyescape/internal/core/observability/log"
	"github.com/monkeyescape/monkeyescape/internal/core/world"
)

// Options are the session rules.
type Options struct {
	// SurvivalGoal is how long the player must survive to win, in seconds.
	SurvivalGoal float64
	// CaptureDistance is the centre distance under which the hunter
	// catches a monkey.
	CaptureDistance float64
	// MenuGrace is how long the menu waits before starting the demo.
	MenuGrace float64
	// MaxTickDelta caps the dt of a single Advance.
	MaxTickDelta float64
}

func DefaultOptions() Options {
	return Options{
		SurvivalGoal:    45,
		CaptureDistance: 32,
		MenuGrace:       2.2,
		MaxTickDelta:    0.05,
	}
}

// Session is the game state machine around a World. It is not safe for
// concurrent use: a single owner calls Advance and the commands.
type Session struct {
	world  *world.World
	bus    bus.EventBus
	logger log.Log
	opts   Options

	state      State
	pickerOpen bool
	selected   agent.Variant
	hasPlayer  bool
	elapsed    float64
	menuTimer  float64
	won        bool
	runID      string
	tick       uint64
	hunterMode npc.Mode
}

// New creates a session in the Menu state. A nil bus or logger is
// replaced by a private bus or a no-op logger.
func New(w *world.World, eb bus.EventBus, logger log.Log, opts Options) *Session {
	if eb == nil {
		eb = bus.New()
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Session{
		world:      w,
		bus:        eb,
		logger:     logger.With(log.String("component", "session")),
		opts:       opts,
		state:      Menu,
		hunterMode: w.Hunter().Mode,
	}
}

func (s *Session) State() State        { return s.state }
func (s *Session) Elapsed() float64    { return s.elapsed }
func (s *Session) Won() bool           { return s.won }
func (s *Session) PickerOpen() bool    { return s.pickerOpen }
func (s *Session) RunID() string       { return s.runID }
func (s *Session) Tick() uint64        { return s.tick }
func (s *Session) World() *world.World { return s.world }
func (s *Session) Options() Options    { return s.opts }
func (s *Session) Bus() bus.EventBus   { return s.bus }

// Selected returns the variant chosen for the current or last run.
func (s *Session) Selected() (agent.Variant, bool) { return s.selected, s.hasPlayer }

// RequestPlay opens the variant picker. Valid in Menu and Demo; the
// demo keeps running underneath.
func (s *Session) RequestPlay() error {
	if s.state != Menu && s.state != Demo {
		return fmt.Errorf("%w: play requested in %s", ErrInvalidTransition, s.state)
	}
	s.pickerOpen = true
	s.logger.Debug("Variant picker opened", log.String("state", s.state.String()))
	return nil
}

// RequestDemo starts (or restarts) the attract-mode demo with every
// monkey on autopilot. Valid in Menu and Demo.
func (s *Session) RequestDemo() error {
	if s.state != Menu && s.state != Demo {
		return fmt.Errorf("%w: demo requested in %s", ErrInvalidTransition, s.state)
	}
	s.pickerOpen = false
	s.enterDemo()
	return nil
}

// ChooseVariantName is ChooseVariant for a display or config name.
func (s *Session) ChooseVariantName(name string) error {
	v, err := agent.ParseVariant(name)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
	return s.ChooseVariant(v)
}

// ChooseVariant resets the run and starts Play with v under player
// control. The picker must be open.
func (s *Session) ChooseVariant(v agent.Variant) error {
	if !v.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownVariant, v)
	}
	if !s.pickerOpen {
		return fmt.Errorf("%w: variant chosen with the picker closed in %s", ErrInvalidTransition, s.state)
	}

	s.world.Reset()
	if err := s.world.SetPlayer(v); err != nil {
		return fmt.Errorf("%w: %w", ErrUnknownVariant, err)
	}
	s.selected, s.hasPlayer = v, true
	s.pickerOpen = false
	s.elapsed = 0
	s.won = false
	s.runID = uuid.NewString()
	s.hunterMode = s.world.Hunter().Mode

	s.logger.Info("Run started", log.String("run_id", s.runID), log.String("variant", v.String()))
	s.publish(EventRunStarted, RunStarted{RunID: s.runID, Variant: v.String()})
	s.setState(Play)
	return nil
}

// Advance runs one tick. dt is clamped to [0, MaxTickDelta]; in is the
// player's control snapshot and is ignored outside Play.
func (s *Session) Advance(dt float64, in npc.Input) {
	dt = s.clampDelta(dt)
	s.tick++

	if s.state == Menu {
		s.menuTimer += dt
		if s.menuTimer >= s.opts.MenuGrace {
			s.enterDemo()
		}
		return
	}
	if !s.state.Simulating() {
		// frozen until a variant is chosen
		return
	}

	if s.state == Demo {
		in = npc.Input{}
	}
	s.world.Step(dt, in.Sanitize())
	s.trackHunterMode()

	m, caught := s.world.Caught(s.opts.CaptureDistance)
	if s.state == Demo {
		if caught {
			s.captured(m)
			s.world.Reset()
			s.hunterMode = s.world.Hunter().Mode
		}
		return
	}
	if caught {
		s.captured(m)
		s.endRun(false)
		return
	}
	s.elapsed += dt
	if s.elapsed >= s.opts.SurvivalGoal {
		s.endRun(true)
	}
}

func (s *Session) clampDelta(dt float64) float64 {
	if math.IsNaN(dt) || dt < 0 {
		return 0
	}
	return math.Min(dt, s.opts.MaxTickDelta)
}

func (s *Session) enterDemo() {
	s.world.ClearPlayer()
	s.elapsed = 0
	s.won = false
	s.setState(Demo)
}

func (s *Session) endRun(won bool) {
	s.won = won
	s.pickerOpen = true
	s.logger.Info("Run ended",
		log.String("run_id", s.runID),
		log.Bool("won", won),
		log.Float64("elapsed", s.elapsed))
	s.publish(EventRunEnded, RunEnded{
		RunID:   s.runID,
		Variant: s.selected.String(),
		Won:     won,
		Elapsed: s.elapsed,
	})
	s.setState(GameOver)
}

func (s *Session) captured(m *npc.Monkey) {
	s.logger.Info("Monkey captured",
		log.String("monkey", m.Name),
		log.String("state", s.state.String()),
		log.Float64("elapsed", s.elapsed))
	s.publish(EventMonkeyCaptured, MonkeyCaptured{Monkey: m.Name, State: s.state, Elapsed: s.elapsed})
}

func (s *Session) trackHunterMode() {
	h := s.world.Hunter()
	if h.Mode == s.hunterMode {
		return
	}
	s.hunterMode = h.Mode
	ev := HunterModeChanged{Mode: h.Mode.String()}
	if ms := s.world.Monkeys(); h.Target >= 0 && h.Target < len(ms) {
		ev.Target = ms[h.Target].Name
	}
	s.logger.Debug("Hunter mode changed", log.String("mode", ev.Mode), log.String("target", ev.Target))
	s.publish(EventHunterMode, ev)
}

func (s *Session) setState(to State) {
	from := s.state
	s.state = to
	if from == to {
		return
	}
	s.logger.Info("Session state changed", log.String("from", from.String()), log.String("to", to.String()))
	s.publish(EventStateChanged, StateChanged{From: from, To: to})
}

func (s *Session) publish(typ string, data any) {
	if err := s.bus.Publish(bus.NewEvent(typ, s.runID, data)); err != nil {
		s.logger.Warn("Event handler failed", log.String("event", typ), log.Error(err))
	}
}
