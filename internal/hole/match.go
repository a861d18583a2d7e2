package hole

import "sort"

// MatchCandidate is one proposed before/after sink correspondence produced
// by Match, with the centroid distance between the two holes.
type MatchCandidate struct {
	Before     HoleReference
	After      HoleReference
	DistanceNm float64
}

// Match pairs before-image sinks with after-image sinks by centroid
// proximity. Inputs must already be filtered to sinks (area above the sink
// threshold); holes in the exclusion sets are skipped, which lets callers
// protect holes consumed by confirmed pairings.
//
// The matching is greedy: before-sinks are visited in ascending polygon-id
// order, and each takes the nearest still-free after-sink within
// toleranceNm, consuming it for the rest of the pass. Two before-sinks
// competing for the same after-sink are therefore resolved by polygon-id
// order, not by a globally optimal assignment. The ordering makes the
// heuristic deterministic; it is intentionally not a minimum-weight
// bipartite matching, since that would change pairings users have already
// reviewed.
//
// Distances are centroid distances in pixels times scale (nm per pixel).
// Proposed candidates are unconfirmed by construction; the caller decides
// whether to confirm them.
func Match(beforeSinks, afterSinks []HoleReference, toleranceNm, scale float64,
	excludedBefore, excludedAfter map[int]bool) []MatchCandidate {

	ordered := make([]HoleReference, len(beforeSinks))
	copy(ordered, beforeSinks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].PolygonID < ordered[j].PolygonID
	})

	consumed := make([]bool, len(afterSinks))
	var matches []MatchCandidate

	for _, before := range ordered {
		if excludedBefore[before.PolygonID] {
			continue
		}

		bestIdx := -1
		bestDist := toleranceNm
		for j, after := range afterSinks {
			if consumed[j] || excludedAfter[after.PolygonID] {
				continue
			}
			dist := before.Centroid.Distance(after.Centroid) * scale
			if dist < bestDist {
				bestIdx = j
				bestDist = dist
			}
		}

		if bestIdx >= 0 {
			consumed[bestIdx] = true
			matches = append(matches, MatchCandidate{
				Before:     before,
				After:      afterSinks[bestIdx],
				DistanceNm: bestDist,
			})
		}
	}

	return matches
}

// PartitionByThreshold splits holes into sinks (area above thresholdNm2)
// and small holes (at or below). Input order is preserved in both outputs.
func PartitionByThreshold(holes []HoleReference, thresholdNm2 float64) (sinks, small []HoleReference) {
	for _, h := range holes {
		if h.IsSink(thresholdNm2) {
			sinks = append(sinks, h)
		} else {
			small = append(small, h)
		}
	}
	return sinks, small
}
