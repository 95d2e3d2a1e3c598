package physics

import (
	"github.com/ByteArena/box2d"
)

// PixelsPerMeter maps arena pixels onto box2d metres. The solver's
// tolerances are tuned for bodies between 0.1 and 10 metres.
const PixelsPerMeter = 32.0

const (
	velocityIterations = 8
	positionIterations = 3

	// wallThickness is the depth of the static boxes fencing the arena.
	wallThickness = 64.0
)

type bodyKind uint8

const (
	staticBody bodyKind = iota
	agentBody
)

type bodyTag struct {
	kind bodyKind
	id   int
}

// Arena is a zero-gravity box2d world: static boxes for the obstacles and
// the four walls, one dynamic circle per agent. Agents collide with
// static geometry only, never with each other. Arena is not safe for
// concurrent use.
type Arena struct {
	world       *box2d.B2World
	restitution float64
	agents      []*box2d.B2Body
}

// NewArena builds the static geometry for bounds and obstacles. Every
// contact uses restitution and zero friction.
func NewArena(bounds Rect, obstacles []Rect, restitution float64) *Arena {
	world := box2d.MakeB2World(box2d.MakeB2Vec2(0, 0))
	a := &Arena{world: &world, restitution: restitution}
	a.world.SetContactFilter(staticOnlyFilter{})

	for _, o := range obstacles {
		a.addBox(o)
	}
	t := wallThickness
	a.addBox(Rect{X: bounds.X - t, Y: bounds.Y - t, W: bounds.W + 2*t, H: t})
	a.addBox(Rect{X: bounds.X - t, Y: bounds.Bottom(), W: bounds.W + 2*t, H: t})
	a.addBox(Rect{X: bounds.X - t, Y: bounds.Y, W: t, H: bounds.H})
	a.addBox(Rect{X: bounds.Right(), Y: bounds.Y, W: t, H: bounds.H})
	return a
}

func (a *Arena) addBox(r Rect) {
	bodydef := box2d.MakeB2BodyDef()
	bodydef.Type = box2d.B2BodyType.B2_staticBody
	bodydef.Position = toMeters(r.Center())
	body := a.world.CreateBody(&bodydef)

	shape := box2d.MakeB2PolygonShape()
	shape.SetAsBox(r.W/2/PixelsPerMeter, r.H/2/PixelsPerMeter)

	fixturedef := box2d.MakeB2FixtureDef()
	fixturedef.Shape = &shape
	fixturedef.Friction = 0
	fixturedef.Restitution = a.restitution
	body.CreateFixtureFromDef(&fixturedef)
	body.SetUserData(bodyTag{kind: staticBody})
}

// AddAgent creates a dynamic circle of radius pixels at pos and returns
// the handle Move expects.
func (a *Arena) AddAgent(pos Vec2, radius float64) int {
	bodydef := box2d.MakeB2BodyDef()
	bodydef.Type = box2d.B2BodyType.B2_dynamicBody
	bodydef.Position = toMeters(pos)
	bodydef.AllowSleep = false
	bodydef.FixedRotation = true
	body := a.world.CreateBody(&bodydef)

	shape := box2d.MakeB2CircleShape()
	shape.SetRadius(radius / PixelsPerMeter)

	fixturedef := box2d.MakeB2FixtureDef()
	fixturedef.Shape = &shape
	fixturedef.Density = 1
	fixturedef.Friction = 0
	fixturedef.Restitution = a.restitution
	body.CreateFixtureFromDef(&fixturedef)

	id := len(a.agents)
	body.SetUserData(bodyTag{kind: agentBody, id: id})
	a.agents = append(a.agents, body)
	return id
}

// Move places agent id at pos with velocity vel, steps the world by dt
// and returns the resolved position and velocity. The other agents sleep
// through the step, so agents move one at a time.
func (a *Arena) Move(id int, pos, vel Vec2, dt float64) (Vec2, Vec2) {
	body := a.agents[id]
	for i, other := range a.agents {
		if i != id {
			other.SetAwake(false)
		}
	}
	body.SetTransform(toMeters(pos), 0)
	body.SetLinearVelocity(toMeters(vel))
	body.SetAwake(true)
	if dt > 0 {
		a.world.Step(dt, velocityIterations, positionIterations)
	}
	return fromMeters(body.GetPosition()), fromMeters(body.GetLinearVelocity())
}

type staticOnlyFilter struct{}

// ShouldCollide rejects agent-agent pairs.
func (staticOnlyFilter) ShouldCollide(fixtureA *box2d.B2Fixture, fixtureB *box2d.B2Fixture) bool {
	a, _ := fixtureA.GetBody().GetUserData().(bodyTag)
	b, _ := fixtureB.GetBody().GetUserData().(bodyTag)
	return a.kind != agentBody || b.kind != agentBody
}

func toMeters(v Vec2) box2d.B2Vec2 {
	return box2d.MakeB2Vec2(v.X/PixelsPerMeter, v.Y/PixelsPerMeter)
}

func fromMeters(v box2d.B2Vec2) Vec2 {
	return Vec2{X: v.X * PixelsPerMeter, Y: v.Y * PixelsPerMeter}
}
