package session

import (
	"github.com/monkeyescape/monkeyescape/internal/core/agent"
	"github.com/monkeyescape/monkeyescape/internal/core/systems/physics"
)

// AgentView is the presentation state of one agent.
type AgentView struct {
	Name   string       `json:"name"`
	Role   string       `json:"role"`
	Pos    physics.Vec2 `json:"pos"`
	Vel    physics.Vec2 `json:"vel"`
	Radius float64      `json:"radius"`
	// Stamina is the fill ratio in [0, 1]; always 0 for the hunter.
	Stamina float64 `json:"stamina"`
	Mode    string  `json:"mode,omitempty"`
}

// Snapshot is everything a renderer needs for one frame. Tick is
// process-local and not serialised, so a paused session encodes to
// identical frames.
type Snapshot struct {
	Tick         uint64      `json:"-"`
	State        State       `json:"state"`
	RunID        string      `json:"run_id,omitempty"`
	Elapsed      float64     `json:"elapsed"`
	SurvivalGoal float64     `json:"survival_goal"`
	Won          bool        `json:"won"`
	PickerOpen   bool        `json:"picker_open"`
	Selected     string      `json:"selected,omitempty"`
	Hunter       AgentView   `json:"hunter"`
	Monkeys      []AgentView `json:"monkeys"`
}

// Snapshot copies the current presentation state.
func (s *Session) Snapshot() Snapshot {
	h := s.world.Hunter()
	snap := Snapshot{
		Tick:         s.tick,
		State:        s.state,
		RunID:        s.runID,
		Elapsed:      s.elapsed,
		SurvivalGoal: s.opts.SurvivalGoal,
		Won:          s.won,
		PickerOpen:   s.pickerOpen,
		Hunter: AgentView{
			Name:   "Hunter",
			Role:   h.Role().String(),
			Pos:    h.Pos,
			Vel:    h.Vel,
			Radius: h.Radius,
			Mode:   h.Mode.String(),
		},
	}
	if s.hasPlayer {
		snap.Selected = s.selected.String()
	}
	for _, m := range s.world.Monkeys() {
		snap.Monkeys = append(snap.Monkeys, monkeyView(m.Name, m.Role().String(), &m.Body))
	}
	return snap
}

func monkeyView(name, role string, b *agent.Body) AgentView {
	return AgentView{
		Name:    name,
		Role:    role,
		Pos:     b.Pos,
		Vel:     b.Vel,
		Radius:  b.Radius,
		Stamina: b.StaminaRatio(),
	}
}
