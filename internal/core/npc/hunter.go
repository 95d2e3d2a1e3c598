package npc

import (
	"github.com/monkeyescape/monkeyescape/internal/core/agent"
	"github.com/monkeyescape/monkeyescape/internal/core/systems/physics"
)

// Hunter tunables.
const (
	// LoseSightDelay is how long the hunter keeps pursuing without line
	// of sight before it gives up and wanders.
	LoseSightDelay = 1.0
	// WanderInterval is how often a wandering hunter picks a new point.
	WanderInterval = 2.0
	// WanderInset keeps hunter wander points away from the arena edges.
	WanderInset = 80.0
)

// Mode is the hunter's high level state.
type Mode uint8

const (
	Wander Mode = iota
	Pursue
)

func (m Mode) String() string {
	switch m {
	case Wander:
		return "wander"
	case Pursue:
		return "pursue"
	default:
		return "unknown"
	}
}

// Hunter is the single pursuer. It never sprints and has no stamina.
type Hunter struct {
	agent.Body

	Mode         Mode
	StateTimer   float64
	WanderTarget physics.Vec2
	// Target is the index of the monkey selected on the last update, or
	// -1 before the first one.
	Target int
}

// NewHunter creates a wandering hunter at pos.
func NewHunter(pos physics.Vec2) *Hunter {
	return NewHunterWithStats(pos, agent.HunterStats)
}

// NewHunterWithStats is NewHunter with an explicit movement profile.
func NewHunterWithStats(pos physics.Vec2, stats agent.Stats) *Hunter {
	h := &Hunter{Body: agent.NewBody(pos, agent.HunterRadius, stats)}
	h.Reset(pos)
	return h
}

// Reset puts the hunter back at pos, wandering towards its own spawn.
func (h *Hunter) Reset(pos physics.Vec2) {
	h.Body.Reset(pos)
	h.Mode = Wander
	h.StateTimer = 0
	h.WanderTarget = pos
	h.Target = -1
}

// Role implements the same accessor as Monkey for presentation code.
func (h *Hunter) Role() Role { return RoleHunter }

// Update picks a target, runs the pursue/wander state machine and steers
// the body. It returns the intent handed to the steering core.
func (h *Hunter) Update(tc TickContext, monkeys []*Monkey) Intent {
	it := h.Decide(tc, monkeys)
	h.Steer(it.Direction, false, false, tc.Dt)
	return it
}

// Decide is the hunter's policy for one tick.
func (h *Hunter) Decide(tc TickContext, monkeys []*Monkey) Intent {
	h.StateTimer += tc.Dt

	var (
		target  *Monkey
		visible bool
		dist    float64
	)
	if best, ok := SelectTarget(Survey(tc.Env, h.Pos, monkeys)); ok {
		h.Target = best.Index
		target = monkeys[best.Index]
		visible = best.Visible
		dist = best.Distance
	}

	switch {
	case visible:
		h.Mode = Pursue
		h.StateTimer = 0
	case h.Mode == Pursue && (target == nil || h.StateTimer > LoseSightDelay):
		h.Mode = Wander
		h.StateTimer = 0
		h.WanderTarget = h.randomPoint(tc)
	}

	var desired physics.Vec2
	if h.Mode == Pursue && target != nil {
		predicted := Predict(target.Pos, target.Vel, dist)
		desired = predicted.Sub(h.Pos).Norm()
	} else {
		if h.StateTimer > WanderInterval {
			h.StateTimer = 0
			h.WanderTarget = h.randomPoint(tc)
		}
		desired = h.WanderTarget.Sub(h.Pos).Norm()
	}

	return Intent{Direction: tc.Env.Avoid(h.Pos, desired)}
}

// randomPoint draws a uniform point from the inset arena. Axes too narrow
// for the inset collapse to the arena centre line.
func (h *Hunter) randomPoint(tc TickContext) physics.Vec2 {
	r := tc.Env.Bounds().Inset(WanderInset)
	p := r.Center()
	if r.W > 0 {
		p.X = uniform(tc.Rand, r.X, r.Right())
	}
	if r.H > 0 {
		p.Y = uniform(tc.Rand, r.Y, r.Bottom())
	}
	return p
}
