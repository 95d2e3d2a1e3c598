package physics

// Rect is an axis-aligned rectangle anchored at its top-left corner.
// Obstacles and arena bounds are both expressed as Rect.
type Rect struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	W float64 `json:"width" yaml:"width"`
	H float64 `json:"height" yaml:"height"`
}

func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Vec2 { return Vec2{X: r.X + r.W/2, Y: r.Y + r.H/2} }

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}

// Overlaps reports whether r and o share any area.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.Right() && o.X < r.Right() && r.Y < o.Bottom() && o.Y < r.Bottom()
}

// Closest returns the point of r nearest to p.
func (r Rect) Closest(p Vec2) Vec2 {
	return Vec2{X: Clamp(p.X, r.X, r.Right()), Y: Clamp(p.Y, r.Y, r.Bottom())}
}

// OverlapsCircle reports whether a circle of the given radius centred at
// c shares any area with r. Tangent circles do not overlap.
func (r Rect) OverlapsCircle(c Vec2, radius float64) bool {
	return r.Closest(c).Dist(c) < radius
}

// Inset shrinks the rectangle by d on every side.
func (r Rect) Inset(d float64) Rect {
	return Rect{X: r.X + d, Y: r.Y + d, W: r.W - 2*d, H: r.H - 2*d}
}

// Edges returns the four boundary segments in clockwise order
// starting from the top edge.
func (r Rect) Edges() [4][2]Vec2 {
	tl := Vec2{X: r.X, Y: r.Y}
	tr := Vec2{X: r.Right(), Y: r.Y}
	br := Vec2{X: r.Right(), Y: r.Bottom()}
	bl := Vec2{X: r.X, Y: r.Bottom()}
	return [4][2]Vec2{{tl, tr}, {tr, br}, {br, bl}, {bl, tl}}
}
