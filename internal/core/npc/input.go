package npc

import "github.com/monkeyescape/monkeyescape/internal/core/systems/physics"

// InputDeadzone is the stick magnitude under which input counts as released.
const InputDeadzone = 0.1

// Input is the per-tick control snapshot for the player monkey. The zero
// value means no stick and no sprint; releasing a control is simply the
// next snapshot reporting zero/false.
type Input struct {
	Move   physics.Vec2 `json:"move"`
	Sprint bool         `json:"sprint"`
}

// Active reports whether the stick is pushed past the deadzone.
func (in Input) Active() bool { return in.Move.Len() > InputDeadzone }

// Sanitize returns a copy safe for the steering core: non-finite axes are
// dropped and vectors longer than one are normalised.
func (in Input) Sanitize() Input {
	if !in.Move.IsFinite() {
		return Input{Sprint: in.Sprint}
	}
	if in.Move.Len() > 1 {
		in.Move = in.Move.Norm()
	}
	return in
}
