package agent

import (
	"github.com/monkeyescape/monkeyescape/internal/core/systems/physics"
)

// Steering tunables shared by every agent.
const (
	// SprintThreshold is the stamina an agent needs for the sprint boost.
	SprintThreshold = 0.05
	// FatigueThreshold is the stamina at or below which fatigue applies.
	FatigueThreshold = 0.01
	// FatigueFactor scales the speed cap of an exhausted agent.
	FatigueFactor = 0.8
	// HeadingEpsilon is the speed under which an agent has no heading.
	HeadingEpsilon = 1e-3
	// turnBlendScale maps TurnResponsiveness onto the lerp factor.
	turnBlendScale = 0.5
)

// Body is the physical state of an agent plus its movement profile.
type Body struct {
	Pos     physics.Vec2
	Vel     physics.Vec2
	Radius  float64
	Stamina float64
	Stats   Stats
}

// NewBody creates a body at rest with a full stamina pool.
func NewBody(pos physics.Vec2, radius float64, stats Stats) Body {
	return Body{Pos: pos, Radius: radius, Stamina: stats.StaminaMax, Stats: stats}
}

// Reset puts the body back at pos, stopped, with full stamina.
func (b *Body) Reset(pos physics.Vec2) {
	b.Pos = pos
	b.Vel = physics.Vec2{}
	b.Stamina = b.Stats.StaminaMax
}

// StaminaRatio returns Stamina/StaminaMax, or 0 for agents without stamina.
func (b *Body) StaminaRatio() float64 {
	if !b.Stats.HasStamina() {
		return 0
	}
	return physics.Clamp(b.Stamina/b.Stats.StaminaMax, 0, 1)
}

// Heading returns the unit direction of travel, or fallback when the
// body is (nearly) stopped.
func (b *Body) Heading(fallback physics.Vec2) physics.Vec2 {
	if b.Vel.Len() > HeadingEpsilon {
		return b.Vel.Norm()
	}
	return fallback
}

// Steer is the steering core shared by monkeys and the hunter. desired
// must be unit length or zero; a zero vector keeps the current heading.
// sprinting asks for the sprint speed boost, draining spends stamina this
// tick. The returned value is the speed cap that was applied.
func (b *Body) Steer(desired physics.Vec2, sprinting, draining bool, dt float64) float64 {
	s := b.Stats
	maxSpeed := s.MaxSpeed

	if s.HasStamina() {
		if sprinting && b.Stamina > SprintThreshold {
			maxSpeed *= s.SprintMultiplier
		}
		if draining {
			b.Stamina = max(0, b.Stamina-dt)
		} else {
			b.Stamina = min(s.StaminaMax, b.Stamina+s.StaminaRegen*dt)
		}
		if b.Stamina <= FatigueThreshold {
			maxSpeed *= FatigueFactor
		}
	}

	current := b.Heading(desired)
	blended := current.Lerp(desired, s.TurnResponsiveness*turnBlendScale).Norm()

	candidate := b.Vel.Add(blended.Scale(s.Acceleration * dt))
	b.Vel = candidate.Norm().Scale(min(maxSpeed, candidate.Len()))
	return maxSpeed
}
