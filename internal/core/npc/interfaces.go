package npc

import (
	"math/rand/v2"

	"github.com/monkeyescape/monkeyescape/internal/core/systems/physics"
)

// Environment is the slice of the world an agent may consult while
// deciding where to go. It is read-only for agents.
type Environment interface {
	// Avoid nudges a desired direction away from an obstacle probed ahead
	// of pos and returns a unit (or zero) direction.
	Avoid(pos, desired physics.Vec2) physics.Vec2
	// LineOfSight reports whether the segment a-b is unobstructed.
	LineOfSight(a, b physics.Vec2) bool
	// Bounds returns the arena rectangle.
	Bounds() physics.Rect
}

// TickContext is passed into every behavior update.
// Rand is the simulation's random source; behaviors must not use the
// global one so runs can be seeded.
type TickContext struct {
	Env  Environment
	Dt   float64
	Rand *rand.Rand
}

// Intent is a behavior's decision for one tick: the direction handed to
// the steering core and the sprint flags.
type Intent struct {
	Direction physics.Vec2
	Sprint    bool
	Drain     bool
}

// Role tags which policy drives an agent.
type Role uint8

const (
	RoleAutopilot Role = iota
	RolePlayer
	RoleHunter
)

func (r Role) String() string {
	switch r {
	case RoleAutopilot:
		return "autopilot"
	case RolePlayer:
		return "player"
	case RoleHunter:
		return "hunter"
	default:
		return "unknown"
	}
}

func uniform(r *rand.Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}
