package world

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/monkeyescape/monkeyescape/internal/core/agent"
	"github.com/monkeyescape/monkeyescape/internal/core/npc"
	"github.com/monkeyescape/monkeyescape/internal/core/systems/physics"
)

// Avoidance tunables.
const (
	// ProbeDistance is how far ahead of an agent the avoidance probe looks.
	ProbeDistance = 28.0
	// AvoidWeight scales the push away from a probed obstacle's centre.
	AvoidWeight = 0.8
)

// World owns the arena and the canonical agent list: one hunter and the
// three monkeys in variant order. It is not safe for concurrent use; the
// session that owns it drives every mutation.
type World struct {
	layout Layout
	arena  *physics.Arena
	rng    *rand.Rand

	hunter  *npc.Hunter
	monkeys []*npc.Monkey
}

var _ npc.Environment = (*World)(nil)

// New validates layout and builds a world with every agent at its spawn.
// rng drives all behavior randomness; a nil rng gets a random seed.
func New(layout Layout, roster Roster, rng *rand.Rand) (*World, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	layout.Obstacles = slices.Clone(layout.Obstacles)

	w := &World{
		layout: layout,
		arena:  physics.NewArena(layout.Bounds(), layout.Obstacles, layout.Restitution),
		rng:    rng,
		hunter: npc.NewHunterWithStats(layout.Spawns.Hunter, roster.Hunter),
	}
	for _, v := range agent.Variants {
		stats, ok := roster.Profiles[v]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoSuchMonkey, v)
		}
		w.monkeys = append(w.monkeys, npc.NewMonkeyWithStats(v, layout.MonkeySpawn(v), stats))
	}
	// arena handles: the hunter is 0, monkeys follow in arena order
	w.arena.AddAgent(w.hunter.Pos, w.hunter.Radius)
	for _, m := range w.monkeys {
		w.arena.AddAgent(m.Pos, m.Radius)
	}
	return w, nil
}

// Avoid nudges desired away from the first obstacle containing the probe
// point ahead of pos. The result is unit length or zero.
func (w *World) Avoid(pos, desired physics.Vec2) physics.Vec2 {
	probe := pos.Add(desired.Scale(ProbeDistance))
	for _, o := range w.layout.Obstacles {
		if o.Contains(probe) {
			away := pos.Sub(o.Center()).Norm()
			return desired.Add(away.Scale(AvoidWeight)).Norm()
		}
	}
	return desired.Norm()
}

// LineOfSight reports whether a-b crosses no obstacle edge.
func (w *World) LineOfSight(a, b physics.Vec2) bool {
	return physics.LineOfSight(a, b, w.layout.Obstacles)
}

func (w *World) Bounds() physics.Rect { return w.layout.Bounds() }

// Obstacles returns a copy of the obstacle list in declaration order.
func (w *World) Obstacles() []physics.Rect { return slices.Clone(w.layout.Obstacles) }

func (w *World) Layout() Layout { return w.layout }

func (w *World) Hunter() *npc.Hunter { return w.hunter }

// Monkeys returns the monkeys in arena order (Adamo, El Grande, Jimi).
func (w *World) Monkeys() []*npc.Monkey { return w.monkeys }

// Monkey returns the monkey of variant v.
func (w *World) Monkey(v agent.Variant) (*npc.Monkey, error) {
	for _, m := range w.monkeys {
		if m.Variant == v {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoSuchMonkey, v)
}

// Reset is the run reset: every agent back to its spawn, stopped, with
// full stamina and fresh wander state. All monkeys return to autopilot.
func (w *World) Reset() {
	w.hunter.Reset(w.layout.Spawns.Hunter)
	for _, m := range w.monkeys {
		m.Reset(w.layout.MonkeySpawn(m.Variant))
	}
}

// SetPlayer hands control of variant v to the player input and puts every
// other monkey on autopilot.
func (w *World) SetPlayer(v agent.Variant) error {
	if _, err := w.Monkey(v); err != nil {
		return err
	}
	for _, m := range w.monkeys {
		m.Autopilot = m.Variant != v
	}
	return nil
}

// ClearPlayer puts every monkey back on autopilot.
func (w *World) ClearPlayer() {
	for _, m := range w.monkeys {
		m.Autopilot = true
	}
}

// Player returns the player-controlled monkey, if any.
func (w *World) Player() (*npc.Monkey, bool) {
	for _, m := range w.monkeys {
		if !m.Autopilot {
			return m, true
		}
	}
	return nil, false
}

// Step advances every agent by dt: the hunter first, then each monkey in
// arena order. Each agent steers and is then moved through the physics
// arena, so later agents see earlier agents' new positions. input drives
// the player monkey, if one is set.
func (w *World) Step(dt float64, input npc.Input) {
	tc := npc.TickContext{Env: w, Dt: dt, Rand: w.rng}

	w.hunter.Update(tc, w.monkeys)
	w.move(0, &w.hunter.Body, dt)

	for i, m := range w.monkeys {
		m.Update(tc, w.hunter, input)
		w.move(i+1, &m.Body, dt)
	}
}

// move hands the steered velocity to the arena. Positions are pushed on
// every move, so Reset and direct edits need no resync.
func (w *World) move(id int, b *agent.Body, dt float64) {
	b.Pos, b.Vel = w.arena.Move(id, b.Pos, b.Vel, dt)
}

// Caught returns the first monkey, in arena order, whose centre is closer
// than distance to the hunter.
func (w *World) Caught(distance float64) (*npc.Monkey, bool) {
	for _, m := range w.monkeys {
		if m.Pos.Dist(w.hunter.Pos) < distance {
			return m, true
		}
	}
	return nil, false
}
