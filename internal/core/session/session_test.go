package session

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monkeyescape/monkeyescape/internal/core/agent"
	"github.com/monkeyescape/monkeyescape/internal/core/events/bus"
	"github.com/monkeyescape/monkeyescape/internal/core/npc"
	"github.com/monkeyescape/monkeyescape/internal/core/observability/log"
	"github.com/monkeyescape/monkeyescape/internal/core/systems/physics"
	"github.com/monkeyescape/monkeyescape/internal/core/world"
)

type recorder struct {
	events []bus.Event
}

func (r *recorder) types() []string {
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *recorder) only(typ string) []bus.Event {
	var out []bus.Event
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func newSession(t *testing.T, layout world.Layout, roster world.Roster) (*Session, *recorder) {
	t.Helper()
	w, err := world.New(layout, roster, rand.New(rand.NewPCG(3, 5)))
	require.NoError(t, err)

	eb := bus.New()
	rec := &recorder{}
	_, err = eb.Subscribe(bus.Wildcard, func(e bus.Event) error {
		rec.events = append(rec.events, e)
		return nil
	})
	require.NoError(t, err)
	return New(w, eb, log.NewNop(), DefaultOptions()), rec
}

func defaultSession(t *testing.T) (*Session, *recorder) {
	return newSession(t, world.DefaultLayout(), world.DefaultRoster())
}

func startPlay(t *testing.T, s *Session, v agent.Variant) {
	t.Helper()
	require.NoError(t, s.RequestPlay())
	require.NoError(t, s.ChooseVariant(v))
	require.Equal(t, Play, s.State())
}

func TestMenuStartsDemoAfterGrace(t *testing.T) {
	s, rec := defaultSession(t)
	require.Equal(t, Menu, s.State())
	hunterStart := s.World().Hunter().Pos

	for i := 0; i < 43; i++ {
		s.Advance(1.0, npc.Input{}) // clamped to 0.05
	}
	s.Advance(math.NaN(), npc.Input{})
	s.Advance(-3, npc.Input{})
	assert.Equal(t, Menu, s.State(), "2.15s accumulated")
	assert.Equal(t, hunterStart, s.World().Hunter().Pos, "nothing moves in the menu")

	s.Advance(0.05, npc.Input{})
	s.Advance(0.05, npc.Input{})
	assert.Equal(t, Demo, s.State())
	require.Len(t, rec.only(EventStateChanged), 1)
	assert.Equal(t, StateChanged{From: Menu, To: Demo}, rec.only(EventStateChanged)[0].Data)
	assert.Equal(t, uint64(47), s.Tick())
}

func TestOnlyDemoAndPlaySimulate(t *testing.T) {
	assert.False(t, Menu.Simulating())
	assert.True(t, Demo.Simulating())
	assert.True(t, Play.Simulating())
	assert.False(t, GameOver.Simulating())
}

func TestTransitions(t *testing.T) {
	s, rec := defaultSession(t)

	err := s.ChooseVariant(agent.Jimi)
	require.ErrorIs(t, err, ErrInvalidTransition, "picker is closed")
	assert.Equal(t, Menu, s.State())

	require.NoError(t, s.RequestPlay())
	assert.True(t, s.PickerOpen())
	assert.Equal(t, Menu, s.State())

	require.ErrorIs(t, s.ChooseVariant(agent.Variant(9)), ErrUnknownVariant)
	require.ErrorIs(t, s.ChooseVariantName("bonobo"), ErrUnknownVariant)
	assert.Equal(t, Menu, s.State())
	assert.True(t, s.PickerOpen())

	require.NoError(t, s.ChooseVariantName("el grande"))
	assert.Equal(t, Play, s.State())
	assert.False(t, s.PickerOpen())
	assert.NotEmpty(t, s.RunID())
	v, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, agent.ElGrande, v)
	p, ok := s.World().Player()
	require.True(t, ok)
	assert.Equal(t, agent.ElGrande, p.Variant)

	assert.Equal(t, []string{EventRunStarted, EventStateChanged}, rec.types())
	assert.Equal(t, s.RunID(), rec.events[0].Source)

	require.ErrorIs(t, s.RequestPlay(), ErrInvalidTransition)
	require.ErrorIs(t, s.RequestDemo(), ErrInvalidTransition)
	require.ErrorIs(t, s.ChooseVariant(agent.Jimi), ErrInvalidTransition)
	assert.Equal(t, Play, s.State())
}

func TestDemoPickerThenPlay(t *testing.T) {
	s, _ := defaultSession(t)
	require.NoError(t, s.RequestDemo())
	require.Equal(t, Demo, s.State())
	for i := 0; i < 20; i++ {
		s.Advance(0.05, npc.Input{Move: physics.V(1, 0)})
	}
	_, ok := s.World().Player()
	assert.False(t, ok, "demo ignores input")

	require.NoError(t, s.RequestPlay())
	s.Advance(0.05, npc.Input{})
	assert.Equal(t, Demo, s.State(), "demo keeps running under the picker")
	require.NoError(t, s.ChooseVariant(agent.Jimi))

	jimi, err := s.World().Monkey(agent.Jimi)
	require.NoError(t, err)
	assert.Equal(t, physics.V(860, 440), jimi.Pos, "play starts from a reset run")
	assert.Equal(t, 0.0, s.Elapsed())
}

func TestCaptureInPlayEndsRun(t *testing.T) {
	s, rec := defaultSession(t)
	startPlay(t, s, agent.Jimi)

	for i := 0; i < 10; i++ {
		s.Advance(0.016, npc.Input{})
	}
	elapsed := s.Elapsed()
	require.InDelta(t, 0.16, elapsed, 1e-9)

	// an autopiloted monkey caught ends the run too
	adamo := s.World().Monkeys()[0]
	adamo.Pos = s.World().Hunter().Pos
	s.Advance(0.016, npc.Input{})

	assert.Equal(t, GameOver, s.State())
	assert.False(t, s.Won())
	assert.True(t, s.PickerOpen())
	assert.Equal(t, elapsed, s.Elapsed(), "timer stops on the capture tick")

	captures := rec.only(EventMonkeyCaptured)
	require.Len(t, captures, 1)
	assert.Equal(t, "Adamo", captures[0].Data.(MonkeyCaptured).Monkey)
	ended := rec.only(EventRunEnded)
	require.Len(t, ended, 1)
	assert.False(t, ended[0].Data.(RunEnded).Won)
	assert.Equal(t, "Jimi", ended[0].Data.(RunEnded).Variant)

	// frozen until a new variant is chosen
	frozen := s.Snapshot()
	s.Advance(0.05, npc.Input{Move: physics.V(1, 0)})
	after := s.Snapshot()
	assert.Equal(t, frozen.Hunter.Pos, after.Hunter.Pos)
	assert.Equal(t, frozen.Monkeys, after.Monkeys)
	require.ErrorIs(t, s.RequestDemo(), ErrInvalidTransition)

	first := s.RunID()
	require.NoError(t, s.ChooseVariant(agent.Adamo))
	assert.Equal(t, Play, s.State())
	assert.NotEqual(t, first, s.RunID())
	assert.Equal(t, physics.V(160, 440), adamo.Pos)
}

func TestCaptureInDemoResetsRun(t *testing.T) {
	s, rec := defaultSession(t)
	require.NoError(t, s.RequestDemo())
	for i := 0; i < 5; i++ {
		s.Advance(0.016, npc.Input{})
	}

	grande := s.World().Monkeys()[1]
	grande.Pos = s.World().Hunter().Pos
	grande.Stamina = 0
	s.Advance(0.016, npc.Input{})

	assert.Equal(t, Demo, s.State())
	assert.Equal(t, physics.V(480, 440), grande.Pos)
	assert.Equal(t, grande.Stats.StaminaMax, grande.Stamina)
	assert.Equal(t, physics.V(480, 100), s.World().Hunter().Pos)
	assert.Equal(t, physics.Vec2{}, s.World().Hunter().Vel)
	require.Len(t, rec.only(EventMonkeyCaptured), 1)
	assert.Empty(t, rec.only(EventRunEnded))
}

// With a hunter that cannot move and monkeys that only ever wander away
// from it, the player survives the full goal.
func TestSurvivalWin(t *testing.T) {
	layout := world.Layout{
		Width: 960, Height: 540,
		Spawns: world.DefaultSpawns(960, 540),
		// no bounce back towards the hunter
		Restitution: 0,
	}
	roster := world.DefaultRoster()
	roster.Hunter = agent.Stats{}
	s, rec := newSession(t, layout, roster)
	startPlay(t, s, agent.ElGrande)

	for i := 0; i < 1000 && s.State() == Play; i++ {
		s.Advance(0.05, npc.Input{})
	}

	require.Equal(t, GameOver, s.State())
	assert.True(t, s.Won())
	assert.GreaterOrEqual(t, s.Elapsed(), 45.0)
	assert.Less(t, s.Elapsed(), 45.1)
	assert.Empty(t, rec.only(EventMonkeyCaptured))
	ended := rec.only(EventRunEnded)
	require.Len(t, ended, 1)
	assert.True(t, ended[0].Data.(RunEnded).Won)
}

func TestHunterModeEvents(t *testing.T) {
	s, rec := defaultSession(t)
	require.NoError(t, s.RequestDemo())
	for i := 0; i < 600; i++ {
		s.Advance(1.0/60, npc.Input{})
	}
	modes := rec.only(EventHunterMode)
	require.NotEmpty(t, modes)
	sawPursue := false
	for _, e := range modes {
		ev := e.Data.(HunterModeChanged)
		assert.Contains(t, []string{"pursue", "wander"}, ev.Mode)
		if ev.Mode == "pursue" {
			sawPursue = true
			assert.NotEmpty(t, ev.Target)
		}
	}
	assert.True(t, sawPursue)
}

func TestFailingSubscriberDoesNotStopTheTick(t *testing.T) {
	s, _ := defaultSession(t)
	_, err := s.Bus().Subscribe(EventStateChanged, func(bus.Event) error { return errors.New("viewer gone") })
	require.NoError(t, err)

	require.NoError(t, s.RequestDemo())
	assert.Equal(t, Demo, s.State())
	s.Advance(0.016, npc.Input{})
	assert.Equal(t, uint64(1), s.Tick())
}

func TestSnapshot(t *testing.T) {
	s, _ := defaultSession(t)
	startPlay(t, s, agent.Jimi)
	s.Advance(0.05, npc.Input{Move: physics.V(-1, 0), Sprint: true})

	snap := s.Snapshot()
	assert.Equal(t, Play, snap.State)
	assert.Equal(t, "Jimi", snap.Selected)
	assert.Equal(t, 45.0, snap.SurvivalGoal)
	assert.Equal(t, s.RunID(), snap.RunID)
	require.Len(t, snap.Monkeys, 3)
	assert.Equal(t, "player", snap.Monkeys[2].Role)
	assert.Equal(t, "autopilot", snap.Monkeys[0].Role)
	assert.Less(t, snap.Monkeys[2].Stamina, 1.0)
	assert.Less(t, snap.Monkeys[2].Vel.X, 0.0)
	assert.Less(t, snap.Monkeys[2].Pos.X, 860.0, "the player moved the way it was steered")
	for i, o := range s.World().Obstacles() {
		assert.False(t, o.OverlapsCircle(snap.Monkeys[2].Pos, snap.Monkeys[2].Radius), "player overlaps obstacle %d", i)
	}
	assert.Equal(t, "hunter", snap.Hunter.Role)
	assert.Equal(t, agent.HunterRadius, snap.Hunter.Radius)

	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"state":"play"`)
	assert.Contains(t, string(raw), `"picker_open":false`)
}
