package session

import (
	"bytes"
	"strings"
	"testing"

	"vacancy-tracker/internal/hole"
	"vacancy-tracker/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildExportSession creates a session with one confirmed pairing (with
// vertices, so widths export non-zero), one unconfirmed pairing, and one
// tracked fate.
func buildExportSession(t *testing.T) *PairingSession {
	t.Helper()
	s := New("b1", "a1")
	s.ImageCenterPx = geometry.Point2D{X: 0, Y: 0}
	s.CalibrationScale = 1.0

	before := hole.NewHoleReference("b1", 1, geometry.GenerateCirclePoints(50, 0, 3, 32), 1.0)
	after := hole.NewHoleReference("a1", 2, geometry.GenerateCirclePoints(51, 0, 3.5, 32), 1.0)
	p := hole.SinkPairing{PairingID: "Pabc123", BeforeHole: &before, AfterHole: &after}
	s.ComputeMetrics(&p)
	require.NoError(t, s.AddPairing(p))
	require.True(t, s.ConfirmPairing("Pabc123"))

	// Unconfirmed suggestion: must not be exported.
	b2 := holeRef("b1", 3, 80, 0, 9)
	require.NoError(t, s.AddPairing(pairingOf(&b2, nil)))

	s.SetSmallHoleFate(holeRef("b1", 7, 48, 1, 2.5), hole.FateAbsorbed, "Pabc123")
	return s
}

func TestExportCSVStructure(t *testing.T) {
	s := buildExportSession(t)

	var buf bytes.Buffer
	require.NoError(t, s.ExportCSV(&buf))
	out := buf.String()

	assert.Contains(t, out, "# Sink Pairings")
	assert.Contains(t, out, "# Small Hole Fates")
	assert.NotContains(t, out, "# fluence", "no fluence line when fluence is 0")
	assert.NotContains(t, out, "delta_area_normalized")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	// marker, header, 1 confirmed pairing, marker, header, 1 fate
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[2], "Pabc123,1,2,"))
	assert.True(t, strings.HasPrefix(lines[5], "F"))
}

func TestExportCSVFluenceColumn(t *testing.T) {
	s := buildExportSession(t)
	s.FluencePerNm2 = 2.0

	var buf bytes.Buffer
	require.NoError(t, s.ExportCSV(&buf))
	out := buf.String()

	assert.Contains(t, out, "# fluence,2.0000")
	assert.Contains(t, out, "delta_area_normalized")

	// The normalized column is delta/fluence.
	p, _ := s.PairingByID("Pabc123")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	fields := strings.Split(lines[3], ",")
	header := strings.Split(lines[2], ",")
	idx := -1
	for i, col := range header {
		if col == "delta_area_normalized" {
			idx = i
		}
	}
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, csvFloat(p.AreaChangeNm2/2.0), fields[idx])
}

func TestCSVRoundTrip(t *testing.T) {
	for _, fluence := range []float64{0, 1.5} {
		src := buildExportSession(t)
		src.FluencePerNm2 = fluence

		var buf bytes.Buffer
		require.NoError(t, src.ExportCSV(&buf))

		dst := New("b1", "a1")
		dst.CalibrationScale = src.CalibrationScale
		require.NoError(t, dst.ImportCSV(&buf, nil))

		require.Len(t, dst.Pairings, 1, "fluence=%v", fluence)
		got := dst.Pairings[0]
		want, _ := src.PairingByID("Pabc123")

		assert.Equal(t, want.PairingID, got.PairingID)
		assert.True(t, got.Confirmed, "imported pairings are confirmed")
		require.NotNil(t, got.BeforeHole)
		require.NotNil(t, got.AfterHole)
		assert.Equal(t, want.BeforeHole.PolygonID, got.BeforeHole.PolygonID)
		assert.Equal(t, want.AfterHole.PolygonID, got.AfterHole.PolygonID)
		assert.InDelta(t, want.BeforeHole.AreaNm2, got.BeforeHole.AreaNm2, 1e-4)
		assert.InDelta(t, want.AfterHole.AreaNm2, got.AfterHole.AreaNm2, 1e-4)
		assert.InDelta(t, want.AreaChangeNm2, got.AreaChangeNm2, 1e-4)
		assert.InDelta(t, want.DistanceToCenterNm, got.DistanceToCenterNm, 1e-4)
		assert.InDelta(t, want.SqrtA0OverR, got.SqrtA0OverR, 1e-4)
		assert.InDelta(t, want.BeforeHole.Centroid.X, got.BeforeHole.Centroid.X, 1e-4)
		assert.InDelta(t, want.AfterHole.Centroid.Y, got.AfterHole.Centroid.Y, 1e-4)

		// Geometry is not serialized: the round-trip is lossy by contract.
		assert.Empty(t, got.BeforeHole.Vertices)
		assert.Empty(t, got.AfterHole.Vertices)

		require.Len(t, dst.Fates, 1)
		wantFate := src.Fates[0]
		gotFate := dst.Fates[0]
		assert.Equal(t, wantFate.FateID, gotFate.FateID)
		assert.Equal(t, wantFate.Fate, gotFate.Fate)
		assert.Equal(t, wantFate.AbsorbedByPairingID, gotFate.AbsorbedByPairingID)
		assert.Equal(t, wantFate.Hole.PolygonID, gotFate.Hole.PolygonID)
		assert.InDelta(t, wantFate.Hole.AreaNm2, gotFate.Hole.AreaNm2, 1e-4)

		if fluence > 0 {
			assert.InDelta(t, fluence, dst.FluencePerNm2, 1e-4)
		}
	}
}

func TestImportCSVSkipsMalformedRows(t *testing.T) {
	input := strings.Join([]string{
		"# Sink Pairings",
		strings.Join(pairingHeader(false), ","),
		"Pgood01,1,2,10.0000,14.0000,4.0000,5.0000,0.6325,0.0000,0.0000,0.0000,30.0000,40.0000,31.0000,40.0000",
		"Pbad001,not-a-number,2,10,14,oops,5,0.6,0,0,0,0,0,0,0",
		"", // blank lines are skipped
		"# a stray comment",
		"# Small Hole Fates",
		strings.Join(fateHeader, ","),
		"Fgood01,7,2.5000,ABSORBED,Pgood01,48.0000,1.0000",
		"Fbad001,seven,2.5,ABSORBED,Pgood01,48,1",
		"Fclosed,8,1.0000,EVAPORATED,,0.0000,0.0000",
	}, "\n")

	s := New("b1", "a1")
	require.NoError(t, s.ImportCSV(strings.NewReader(input), nil))

	require.Len(t, s.Pairings, 1)
	assert.Equal(t, "Pgood01", s.Pairings[0].PairingID)

	require.Len(t, s.Fates, 2)
	assert.Equal(t, hole.FateAbsorbed, s.Fates[0].Fate)
	// Unknown fate strings fail closed rather than dropping the row.
	assert.Equal(t, hole.FateUnknown, s.Fates[1].Fate)
}

func TestImportCSVBeforeOnlyPairing(t *testing.T) {
	input := strings.Join([]string{
		"# Sink Pairings",
		strings.Join(pairingHeader(false), ","),
		"Pvanish,4,,6.0000,,-6.0000,12.0000,0.2041,0.0000,0.0000,0.0000,10.0000,6.0000,,",
		"# Small Hole Fates",
		strings.Join(fateHeader, ","),
	}, "\n")

	s := New("b1", "a1")
	require.NoError(t, s.ImportCSV(strings.NewReader(input), nil))

	require.Len(t, s.Pairings, 1)
	p := s.Pairings[0]
	require.NotNil(t, p.BeforeHole)
	assert.Nil(t, p.AfterHole)
	assert.Equal(t, 4, p.BeforeHole.PolygonID)
	assert.InDelta(t, -6.0, p.AreaChangeNm2, 1e-9)
	assert.InDelta(t, 10.0, p.BeforeHole.Centroid.X, 1e-9)
}
