package hole

import (
	"math"

	"vacancy-tracker/pkg/geometry"
)

// CalculateMetrics fills in the derived metrics of a pairing from its holes
// and the panel calibration. It must be re-invoked whenever BeforeHole,
// AfterHole, or the image center change.
//
// Derivations:
//   - distance to center: from the before-hole centroid when present,
//     otherwise the after-hole centroid; pixels times scale gives nm.
//   - area change: after minus before when both holes are present;
//     -before when only the before hole exists (vanished hole attributed
//     as fully consumed).
//   - sqrt(A0)/r: sqrt of the before area over the distance to center,
//     only when that distance is positive; left at 0 otherwise.
func CalculateMetrics(p *SinkPairing, imageCenter geometry.Point2D, scale float64) {
	anchor := p.BeforeHole
	if anchor == nil {
		anchor = p.AfterHole
	}
	if anchor == nil {
		return
	}

	p.DistanceToCenterPx = anchor.Centroid.Distance(imageCenter)
	p.DistanceToCenterNm = p.DistanceToCenterPx * scale

	switch {
	case p.BeforeHole != nil && p.AfterHole != nil:
		p.AreaChangeNm2 = p.AfterHole.AreaNm2 - p.BeforeHole.AreaNm2
	case p.BeforeHole != nil:
		p.AreaChangeNm2 = -p.BeforeHole.AreaNm2
	default:
		p.AreaChangeNm2 = 0
	}

	p.SqrtA0OverR = 0
	if p.BeforeHole != nil && p.DistanceToCenterNm > 0 {
		p.SqrtA0OverR = math.Sqrt(p.BeforeHole.AreaNm2) / p.DistanceToCenterNm
	}
}
