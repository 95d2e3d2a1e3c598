package world

import (
	"fmt"

	"github.com/monkeyescape/monkeyescape/internal/core/agent"
	"github.com/monkeyescape/monkeyescape/internal/core/systems/physics"
)

const (
	DefaultWidth  = 960.0
	DefaultHeight = 540.0
	// DefaultRestitution is a full bounce off walls and obstacles.
	DefaultRestitution = 1.0
)

// Layout describes a static arena: its size, obstacles, spawn points and
// how bouncy contacts are.
type Layout struct {
	Width       float64
	Height      float64
	Obstacles   []physics.Rect
	Spawns      Spawns
	Restitution float64
}

// Spawns are the run-reset positions. Missing monkey entries fall back to
// DefaultSpawns.
type Spawns struct {
	Hunter  physics.Vec2
	Monkeys map[agent.Variant]physics.Vec2
}

// Roster holds the movement profiles the agents are built with.
type Roster struct {
	Profiles map[agent.Variant]agent.Stats
	Hunter   agent.Stats
}

// DefaultRoster returns the built-in profile table.
func DefaultRoster() Roster {
	profiles := make(map[agent.Variant]agent.Stats, len(agent.Profiles))
	for v, s := range agent.Profiles {
		profiles[v] = s
	}
	return Roster{Profiles: profiles, Hunter: agent.HunterStats}
}

// DefaultSpawns places the monkeys along the bottom edge and the hunter
// near the top centre of a w×h arena. Jimi sits further right than
// Adamo sits left so it clears the lower-right block of DefaultLayout.
func DefaultSpawns(w, h float64) Spawns {
	return Spawns{
		Hunter: physics.V(w/2, 100),
		Monkeys: map[agent.Variant]physics.Vec2{
			agent.Adamo:    physics.V(160, h-100),
			agent.ElGrande: physics.V(w/2, h-100),
			agent.Jimi:     physics.V(w-100, h-100),
		},
	}
}

// DefaultLayout is the stock 960×540 arena with five obstacles.
func DefaultLayout() Layout {
	return Layout{
		Width:  DefaultWidth,
		Height: DefaultHeight,
		Obstacles: []physics.Rect{
			{X: 200, Y: 120, W: 160, H: 70},
			{X: 540, Y: 100, W: 220, H: 60},
			{X: 390, Y: 210, W: 180, H: 120},
			{X: 240, Y: 360, W: 200, H: 60},
			{X: 640, Y: 340, W: 160, H: 110},
		},
		Spawns:      DefaultSpawns(DefaultWidth, DefaultHeight),
		Restitution: DefaultRestitution,
	}
}

// Bounds is the arena rectangle anchored at the origin.
func (l Layout) Bounds() physics.Rect {
	return physics.Rect{W: l.Width, H: l.Height}
}

// MonkeySpawn returns the configured spawn for v or its default.
func (l Layout) MonkeySpawn(v agent.Variant) physics.Vec2 {
	if p, ok := l.Spawns.Monkeys[v]; ok {
		return p
	}
	return DefaultSpawns(l.Width, l.Height).Monkeys[v]
}

// Validate checks the layout is usable as an arena.
func (l Layout) Validate() error {
	if !(l.Width > 0) || !(l.Height > 0) {
		return fmt.Errorf("%w: arena size %vx%v", ErrInvalidLayout, l.Width, l.Height)
	}
	if l.Restitution < 0 || l.Restitution > 1 {
		return fmt.Errorf("%w: restitution %v outside [0, 1]", ErrInvalidLayout, l.Restitution)
	}
	bounds := l.Bounds()
	for i, o := range l.Obstacles {
		if !(o.W > 0) || !(o.H > 0) {
			return fmt.Errorf("%w: obstacle %d has size %vx%v", ErrInvalidLayout, i, o.W, o.H)
		}
		if !o.Overlaps(bounds) {
			return fmt.Errorf("%w: obstacle %d lies outside the arena", ErrInvalidLayout, i)
		}
	}
	if err := l.checkSpawn("hunter", l.Spawns.Hunter, agent.HunterRadius); err != nil {
		return err
	}
	for _, v := range agent.Variants {
		if err := l.checkSpawn(v.String(), l.MonkeySpawn(v), agent.MonkeyRadius); err != nil {
			return err
		}
	}
	return nil
}

// checkSpawn rejects a spawn outside the arena or one whose body disc
// would start overlapping an obstacle.
func (l Layout) checkSpawn(who string, p physics.Vec2, radius float64) error {
	if !p.IsFinite() || !l.Bounds().Contains(p) {
		return fmt.Errorf("%w: %s spawn (%v, %v) is outside the arena", ErrInvalidLayout, who, p.X, p.Y)
	}
	for i, o := range l.Obstacles {
		if o.OverlapsCircle(p, radius) {
			return fmt.Errorf("%w: %s spawn (%v, %v) overlaps obstacle %d", ErrInvalidLayout, who, p.X, p.Y, i)
		}
	}
	return nil
}
