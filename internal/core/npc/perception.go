package npc

import "github.com/monkeyescape/monkeyescape/internal/core/systems/physics"

// Prediction and targeting constants.
const (
	// LeadDistanceScale converts distance into seconds of lead time.
	LeadDistanceScale = 250.0
	MinLeadTime       = 0.2
	MaxLeadTime       = 1.0
	// SightBonus is added to a target's score when it is in line of sight.
	SightBonus = 200.0
)

// LeadTime is the look-ahead used for predictive interception at the
// given distance: clamp(distance/250, 0.2, 1.0) seconds.
func LeadTime(distance float64) float64 {
	return physics.Clamp(distance/LeadDistanceScale, MinLeadTime, MaxLeadTime)
}

// Predict extrapolates pos along vel by the lead time for distance.
func Predict(pos, vel physics.Vec2, distance float64) physics.Vec2 {
	return pos.Add(vel.Scale(LeadTime(distance)))
}

// Sighting is what the hunter perceives about one monkey this tick.
type Sighting struct {
	Index    int
	Distance float64
	Visible  bool
	Score    float64
}

// Survey scores every monkey as seen from pos: closer is better and a
// clear line of sight is worth SightBonus units of distance.
func Survey(env Environment, pos physics.Vec2, monkeys []*Monkey) []Sighting {
	out := make([]Sighting, len(monkeys))
	for i, m := range monkeys {
		d := pos.Dist(m.Pos)
		visible := env.LineOfSight(pos, m.Pos)
		score := -d
		if visible {
			score += SightBonus
		}
		out[i] = Sighting{Index: i, Distance: d, Visible: visible, Score: score}
	}
	return out
}

// SelectTarget returns the highest scoring sighting. On equal scores the
// first one in iteration order wins, so the arena order of monkeys is the
// tie-break.
func SelectTarget(sightings []Sighting) (Sighting, bool) {
	if len(sightings) == 0 {
		return Sighting{}, false
	}
	best := sightings[0]
	for _, s := range sightings[1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	return best, true
}
