package geometry

import "math"

// degenerateEps is the signed-area threshold below which a polygon is
// treated as collinear/degenerate and mean-based fallbacks apply.
const degenerateEps = 1e-10

// SignedArea returns the signed shoelace area of the polygon.
// Positive for counter-clockwise winding, negative for clockwise.
// Returns 0 for fewer than 3 vertices.
func SignedArea(vertices []Point2D) float64 {
	n := len(vertices)
	if n < 3 {
		return 0
	}
	area := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += vertices[i].X * vertices[j].Y
		area -= vertices[j].X * vertices[i].Y
	}
	return area / 2
}

// PolygonArea returns the unsigned area of the polygon via the shoelace
// formula. Returns 0 for fewer than 3 vertices.
func PolygonArea(vertices []Point2D) float64 {
	return math.Abs(SignedArea(vertices))
}

// PolygonCentroid returns the area-weighted centroid of the polygon.
// For fewer than 3 vertices, or for a degenerate (collinear) polygon,
// the arithmetic mean of the vertices is returned instead.
func PolygonCentroid(vertices []Point2D) Point2D {
	n := len(vertices)
	if n < 3 {
		return Centroid(vertices)
	}

	var signedArea, cx, cy float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		cross := vertices[i].X*vertices[j].Y - vertices[j].X*vertices[i].Y
		signedArea += cross
		cx += (vertices[i].X + vertices[j].X) * cross
		cy += (vertices[i].Y + vertices[j].Y) * cross
	}
	signedArea /= 2

	if math.Abs(signedArea) < degenerateEps {
		return Centroid(vertices)
	}
	return Point2D{
		X: cx / (6 * signedArea),
		Y: cy / (6 * signedArea),
	}
}

// PolygonPerimeter returns the sum of the polygon's edge lengths, with the
// last vertex wrapping back to the first. Returns 0 for fewer than 2 vertices.
func PolygonPerimeter(vertices []Point2D) float64 {
	n := len(vertices)
	if n < 2 {
		return 0
	}
	perimeter := 0.0
	for i := 0; i < n; i++ {
		perimeter += vertices[i].Distance(vertices[(i+1)%n])
	}
	return perimeter
}

// PerpendicularWidth returns the polygon's extent transverse to the radial
// axis from imageCenter (the vacancy source) to the polygon's centroid.
// Each vertex is projected onto the axis perpendicular to that direction;
// the width is the spread of the projections. This approximates the hole's
// capture cross-section against the radial vacancy flux.
// Returns 0 when the centroid coincides with imageCenter (no defined flux
// direction) or when there are no vertices.
func PerpendicularWidth(vertices []Point2D, centroid, imageCenter Point2D) float64 {
	if len(vertices) == 0 {
		return 0
	}

	radial := centroid.Sub(imageCenter)
	if radial.Norm() < degenerateEps {
		return 0
	}
	perp := radial.Normalize().Perp()

	minProj := math.Inf(1)
	maxProj := math.Inf(-1)
	for _, v := range vertices {
		proj := v.Sub(centroid).Dot(perp)
		if proj < minProj {
			minProj = proj
		}
		if proj > maxProj {
			maxProj = proj
		}
	}
	return maxProj - minProj
}

// PointInPolygon tests if a point is inside a polygon using ray casting.
func PointInPolygon(p Point2D, polygon []Point2D) bool {
	if len(polygon) < 3 {
		return false
	}

	inside := false
	n := len(polygon)

	for i := 0; i < n; i++ {
		j := (i + 1) % n
		pi, pj := polygon[i], polygon[j]

		// Check if ray from p going right intersects edge pi-pj
		if ((pi.Y > p.Y) != (pj.Y > p.Y)) &&
			(p.X < (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y)+pi.X) {
			inside = !inside
		}
	}

	return inside
}
