package geometry

import "github.com/twpayne/go-geos"

// BoundsIntersect is the cheap rejection test run before any exact
// intersection. Boxes that merely touch still intersect.
func BoundsIntersect(a, b *geos.Geom) bool {
	if a == nil || b == nil {
		return false
	}
	return BoxesIntersect(a.Bounds(), b.Bounds())
}

// BoxesIntersect is false only when one box ends strictly before the other
// starts on some axis.
func BoxesIntersect(a, b *geos.Box2D) bool {
	if a == nil || b == nil {
		return false
	}
	if a.MaxX < b.MinX || b.MaxX < a.MinX {
		return false
	}
	if a.MaxY < b.MinY || b.MaxY < a.MinY {
		return false
	}
	return true
}
