package npc

import (
	"github.com/monkeyescape/monkeyescape/internal/core/agent"
	"github.com/monkeyescape/monkeyescape/internal/core/systems/physics"
)

// Autopilot tunables.
const (
	WanderIntervalMin = 0.5
	WanderIntervalMax = 1.2
	WanderDistanceMin = 120.0
	WanderDistanceMax = 240.0
	// WanderNoise bounds the per-axis jitter added to the flee direction.
	WanderNoise = 0.7
	// AwayWeight biases the wander direction away from the hunter.
	AwayWeight = 1.5
	// FleeRadius is the hunter distance under which a monkey jukes away
	// from the hunter's predicted position.
	FleeRadius = 240.0
	// FleeBlend is the weight kept on the wander direction while juking.
	FleeBlend = 0.4
	// SprintRadius is the hunter distance under which an autopilot sprints.
	SprintRadius = 260.0
	// SprintStamina is the stamina an autopilot keeps in reserve.
	SprintStamina = 0.1
)

// Monkey is an evader. It is either driven by the autopilot or, for the
// chosen variant during play, by the player's input.
type Monkey struct {
	agent.Body

	Name         string
	Variant      agent.Variant
	Autopilot    bool
	WanderTarget physics.Vec2
	WanderTimer  float64
}

// NewMonkey creates an autopiloted monkey of the given variant at pos.
func NewMonkey(v agent.Variant, pos physics.Vec2) *Monkey {
	return NewMonkeyWithStats(v, pos, agent.Profiles[v])
}

// NewMonkeyWithStats is NewMonkey with an explicit movement profile.
func NewMonkeyWithStats(v agent.Variant, pos physics.Vec2, stats agent.Stats) *Monkey {
	return &Monkey{
		Body:         agent.NewBody(pos, agent.MonkeyRadius, stats),
		Name:         v.String(),
		Variant:      v,
		Autopilot:    true,
		WanderTarget: pos,
	}
}

// Reset puts the monkey back at pos with a fresh autopilot state.
func (m *Monkey) Reset(pos physics.Vec2) {
	m.Body.Reset(pos)
	m.Autopilot = true
	m.WanderTarget = pos
	m.WanderTimer = 0
}

// Role reports which policy currently drives the monkey.
func (m *Monkey) Role() Role {
	if m.Autopilot {
		return RoleAutopilot
	}
	return RolePlayer
}

// Update runs one tick of the active policy and steers the body. The
// returned intent is what the steering core was given.
func (m *Monkey) Update(tc TickContext, hunter *Hunter, in Input) Intent {
	var it Intent
	if m.Autopilot {
		it = m.DecideAI(tc, hunter)
	} else {
		it = m.DecidePlayer(tc, in)
	}
	m.Steer(it.Direction, it.Sprint, it.Drain, tc.Dt)
	return it
}

// DecideAI is the autopilot: wander away from the hunter, juke away from
// where the hunter is heading once it gets close, sprint when it is near.
func (m *Monkey) DecideAI(tc TickContext, hunter *Hunter) Intent {
	m.WanderTimer -= tc.Dt
	if m.WanderTimer <= 0 {
		m.WanderTimer = uniform(tc.Rand, WanderIntervalMin, WanderIntervalMax)
		away := m.Pos.Sub(hunter.Pos).Norm()
		noise := physics.V(
			uniform(tc.Rand, -WanderNoise, WanderNoise),
			uniform(tc.Rand, -WanderNoise, WanderNoise),
		)
		dir := away.Scale(AwayWeight).Add(noise).Norm()
		m.WanderTarget = m.Pos.Add(dir.Scale(uniform(tc.Rand, WanderDistanceMin, WanderDistanceMax)))
	}

	desired := m.WanderTarget.Sub(m.Pos).Norm()
	d := m.Pos.Dist(hunter.Pos)
	if d < FleeRadius {
		predicted := Predict(hunter.Pos, hunter.Vel, d)
		desired = desired.Scale(FleeBlend).Add(m.Pos.Sub(predicted).Norm()).Norm()
	}

	sprint := d < SprintRadius && m.Stamina > SprintStamina
	return Intent{
		Direction: tc.Env.Avoid(m.Pos, desired),
		Sprint:    sprint,
		Drain:     sprint,
	}
}

// DecidePlayer maps the input snapshot onto a steering intent. Any
// non-zero stick steers, however small; only a released stick keeps the
// current heading. Sprint needs the stick past the deadzone.
func (m *Monkey) DecidePlayer(tc TickContext, in Input) Intent {
	in = in.Sanitize()
	desired := in.Move.Norm()
	if desired.Len() < InputDeadzone {
		desired = physics.Vec2{}
		if m.Vel.Len() > InputDeadzone {
			desired = m.Vel.Norm()
		}
	}
	sprint := in.Sprint && in.Active()
	return Intent{
		Direction: tc.Env.Avoid(m.Pos, desired),
		Sprint:    sprint,
		Drain:     sprint,
	}
}
