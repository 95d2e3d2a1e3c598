package physics

// SegmentsIntersect reports whether segment p1-p2 crosses segment p3-p4.
// Touching endpoints count as an intersection; parallel and colinear
// segments never intersect.
func SegmentsIntersect(p1, p2, p3, p4 Vec2) bool {
	denom := (p4.Y-p3.Y)*(p2.X-p1.X) - (p4.X-p3.X)*(p2.Y-p1.Y)
	if denom == 0 {
		return false
	}
	ua := ((p4.X-p3.X)*(p1.Y-p3.Y) - (p4.Y-p3.Y)*(p1.X-p3.X)) / denom
	ub := ((p2.X-p1.X)*(p1.Y-p3.Y) - (p2.Y-p1.Y)*(p1.X-p3.X)) / denom
	return ua >= 0 && ua <= 1 && ub >= 0 && ub <= 1
}

// SegmentHitsRect reports whether a-b crosses any of the four edges of r.
// A segment lying entirely inside r does not cross an edge.
func SegmentHitsRect(a, b Vec2, r Rect) bool {
	for _, e := range r.Edges() {
		if SegmentsIntersect(a, b, e[0], e[1]) {
			return true
		}
	}
	return false
}

// LineOfSight reports whether the segment a-b is unobstructed by every
// obstacle in obstacles.
func LineOfSight(a, b Vec2, obstacles []Rect) bool {
	for _, o := range obstacles {
		if SegmentHitsRect(a, b, o) {
			return false
		}
	}
	return true
}
