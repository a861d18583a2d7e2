package hole

import (
	"sort"

	"vacancy-tracker/pkg/geometry"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// AnalysisConfig parameterizes a batch ripening analysis.
type AnalysisConfig struct {
	SinkThresholdNm2 float64          // holes above this are sinks
	MatchToleranceNm float64          // maximum centroid distance for a sink match
	ImageCenterPx    geometry.Point2D // vacancy source position
	CalibrationScale float64          // nm per pixel
}

// Capture attributes a small before-hole to the matched sink nearest to it.
type Capture struct {
	Hole       HoleReference
	PairingID  string  // pairing whose before-sink captured the hole
	DistanceNm float64 // centroid distance from hole to capturing sink
}

// RipeningStats is the result of a batch before/after ripening analysis.
// It uses the same matching rule as the interactive workflow and adds the
// unmatched sets and aggregate capture statistics.
type RipeningStats struct {
	Pairings        []SinkPairing   // matched sinks with computed metrics
	UnmatchedBefore []HoleReference // before-sinks with no after partner
	UnmatchedAfter  []HoleReference // after-sinks no before-sink claimed
	SmallBefore     []HoleReference // before-holes at or below the threshold
	SmallAfter      []HoleReference // after-holes at or below the threshold

	Captures   []Capture       // small before-holes attributed to a sink
	Unassigned []HoleReference // small before-holes with no matched sink

	MeanCaptureDistanceNm   float64
	MedianCaptureDistanceNm float64
	MinCaptureDistanceNm    float64
	MaxCaptureDistanceNm    float64
	TotalCapturedAreaNm2    float64
}

// AnalyzeRipening runs the standalone ripening analysis over two panels'
// hole sets. Sinks are matched with Match (no exclusions; nothing is
// pre-confirmed in batch mode); each small before-hole is then attributed
// to the nearest matched sink's before-centroid, and the capture distances
// and areas are aggregated.
func AnalyzeRipening(beforeHoles, afterHoles []HoleReference, cfg AnalysisConfig) RipeningStats {
	stats := RipeningStats{}

	var beforeSinks, afterSinks []HoleReference
	beforeSinks, stats.SmallBefore = PartitionByThreshold(beforeHoles, cfg.SinkThresholdNm2)
	afterSinks, stats.SmallAfter = PartitionByThreshold(afterHoles, cfg.SinkThresholdNm2)

	matches := Match(beforeSinks, afterSinks, cfg.MatchToleranceNm, cfg.CalibrationScale, nil, nil)

	matchedBefore := make(map[int]bool, len(matches))
	matchedAfter := make(map[int]bool, len(matches))
	for _, m := range matches {
		before := m.Before
		after := m.After
		p := SinkPairing{
			PairingID:  NewPairingID(),
			BeforeHole: &before,
			AfterHole:  &after,
		}
		CalculateMetrics(&p, cfg.ImageCenterPx, cfg.CalibrationScale)
		stats.Pairings = append(stats.Pairings, p)
		matchedBefore[before.PolygonID] = true
		matchedAfter[after.PolygonID] = true
	}

	for _, h := range beforeSinks {
		if !matchedBefore[h.PolygonID] {
			stats.UnmatchedBefore = append(stats.UnmatchedBefore, h)
		}
	}
	for _, h := range afterSinks {
		if !matchedAfter[h.PolygonID] {
			stats.UnmatchedAfter = append(stats.UnmatchedAfter, h)
		}
	}

	stats.attributeCaptures(cfg.CalibrationScale)
	return stats
}

// attributeCaptures assigns each small before-hole to the nearest matched
// sink and computes the aggregate capture statistics.
func (s *RipeningStats) attributeCaptures(scale float64) {
	if len(s.SmallBefore) == 0 {
		return
	}
	if len(s.Pairings) == 0 {
		s.Unassigned = append(s.Unassigned, s.SmallBefore...)
		return
	}

	var distances []float64
	for _, h := range s.SmallBefore {
		bestIdx := -1
		bestDist := 0.0
		for i, p := range s.Pairings {
			if p.BeforeHole == nil {
				continue
			}
			dist := h.Centroid.Distance(p.BeforeHole.Centroid) * scale
			if bestIdx < 0 || dist < bestDist {
				bestIdx = i
				bestDist = dist
			}
		}
		if bestIdx < 0 {
			s.Unassigned = append(s.Unassigned, h)
			continue
		}
		s.Captures = append(s.Captures, Capture{
			Hole:       h,
			PairingID:  s.Pairings[bestIdx].PairingID,
			DistanceNm: bestDist,
		})
		s.TotalCapturedAreaNm2 += h.AreaNm2
		distances = append(distances, bestDist)
	}

	if len(distances) == 0 {
		return
	}
	s.MeanCaptureDistanceNm = stat.Mean(distances, nil)
	s.MinCaptureDistanceNm = floats.Min(distances)
	s.MaxCaptureDistanceNm = floats.Max(distances)

	sorted := make([]float64, len(distances))
	copy(sorted, distances)
	sort.Float64s(sorted)
	s.MedianCaptureDistanceNm = stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
