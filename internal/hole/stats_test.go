package hole

import (
	"testing"

	"vacancy-tracker/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeRipening(t *testing.T) {
	cfg := AnalysisConfig{
		SinkThresholdNm2: 4.0,
		MatchToleranceNm: 5.0,
		ImageCenterPx:    geometry.Point2D{X: 0, Y: 0},
		CalibrationScale: 1.0,
	}

	before := []HoleReference{
		sinkAt(1, 10, 0, 10),  // sink, matches after id 11
		sinkAt(2, 100, 0, 12), // sink, unmatched
		sinkAt(3, 12, 0, 2),   // small, near sink 1
		sinkAt(4, 104, 0, 1),  // small, nearer sink... only matched sinks count
	}
	after := []HoleReference{
		sinkAt(11, 11, 0, 16), // matches before id 1
		sinkAt(12, 50, 0, 20), // unmatched
		sinkAt(13, 60, 0, 3),  // small
	}

	stats := AnalyzeRipening(before, after, cfg)

	require.Len(t, stats.Pairings, 1)
	p := stats.Pairings[0]
	require.NotNil(t, p.BeforeHole)
	require.NotNil(t, p.AfterHole)
	assert.Equal(t, 1, p.BeforeHole.PolygonID)
	assert.Equal(t, 11, p.AfterHole.PolygonID)
	assert.InDelta(t, 6.0, p.AreaChangeNm2, 1e-9)
	assert.False(t, p.Confirmed)

	require.Len(t, stats.UnmatchedBefore, 1)
	assert.Equal(t, 2, stats.UnmatchedBefore[0].PolygonID)
	require.Len(t, stats.UnmatchedAfter, 1)
	assert.Equal(t, 12, stats.UnmatchedAfter[0].PolygonID)

	require.Len(t, stats.SmallBefore, 2)
	require.Len(t, stats.SmallAfter, 1)

	// Both small before-holes attribute to the only matched sink (id 1 at x=10).
	require.Len(t, stats.Captures, 2)
	assert.Empty(t, stats.Unassigned)
	for _, c := range stats.Captures {
		assert.Equal(t, p.PairingID, c.PairingID)
	}
	assert.InDelta(t, 2.0, stats.Captures[0].DistanceNm, 1e-9)  // hole 3 at x=12
	assert.InDelta(t, 94.0, stats.Captures[1].DistanceNm, 1e-9) // hole 4 at x=104

	assert.InDelta(t, 3.0, stats.TotalCapturedAreaNm2, 1e-9)
	assert.InDelta(t, 48.0, stats.MeanCaptureDistanceNm, 1e-9)
	assert.InDelta(t, 2.0, stats.MinCaptureDistanceNm, 1e-9)
	assert.InDelta(t, 94.0, stats.MaxCaptureDistanceNm, 1e-9)
	assert.InDelta(t, 2.0, stats.MedianCaptureDistanceNm, 1e-9)
}

func TestAnalyzeRipeningNoMatchedSinks(t *testing.T) {
	cfg := AnalysisConfig{
		SinkThresholdNm2: 4.0,
		MatchToleranceNm: 3.0,
		CalibrationScale: 1.0,
	}
	before := []HoleReference{
		sinkAt(1, 0, 0, 10),
		sinkAt(2, 5, 5, 1), // small
	}
	// Nothing within tolerance of the before sink.
	after := []HoleReference{sinkAt(11, 50, 50, 10)}

	stats := AnalyzeRipening(before, after, cfg)

	assert.Empty(t, stats.Pairings)
	assert.Len(t, stats.UnmatchedBefore, 1)
	assert.Len(t, stats.UnmatchedAfter, 1)
	assert.Empty(t, stats.Captures)
	require.Len(t, stats.Unassigned, 1)
	assert.Equal(t, 2, stats.Unassigned[0].PolygonID)
	assert.Zero(t, stats.TotalCapturedAreaNm2)
	assert.Zero(t, stats.MeanCaptureDistanceNm)
}

func TestAnalyzeRipeningEmptyInputs(t *testing.T) {
	stats := AnalyzeRipening(nil, nil, AnalysisConfig{
		SinkThresholdNm2: 4.0,
		MatchToleranceNm: 3.0,
		CalibrationScale: 1.0,
	})
	assert.Empty(t, stats.Pairings)
	assert.Empty(t, stats.SmallBefore)
	assert.Empty(t, stats.Captures)
}
