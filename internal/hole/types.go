// Package hole defines the records and matching logic for vacancy-hole
// ripening analysis: polygon-backed hole references, before/after sink
// pairings with derived physical metrics, and tracked small-hole fates.
package hole

import (
	"fmt"
	"time"

	"vacancy-tracker/pkg/geometry"

	"github.com/google/uuid"
)

// Fate describes the tracked outcome of a small hole between the before
// and after images.
type Fate int

const (
	// FateUnknown means the outcome has not been assessed yet.
	FateUnknown Fate = iota
	// FateDisappeared means the hole vanished with no identified absorber.
	FateDisappeared
	// FateAbsorbed means the hole was captured by a paired sink.
	FateAbsorbed
	// FateSurvived means the hole is still present in the after image.
	FateSurvived
)

func (f Fate) String() string {
	switch f {
	case FateDisappeared:
		return "DISAPPEARED"
	case FateAbsorbed:
		return "ABSORBED"
	case FateSurvived:
		return "SURVIVED"
	default:
		return "UNKNOWN"
	}
}

// ParseFate converts a serialized fate string back to a Fate.
// Unrecognized values fail closed to FateUnknown rather than erroring, so
// a session written by a newer version still loads.
func ParseFate(s string) Fate {
	switch s {
	case "DISAPPEARED":
		return FateDisappeared
	case "ABSORBED":
		return FateAbsorbed
	case "SURVIVED":
		return FateSurvived
	default:
		return FateUnknown
	}
}

// MarshalText implements encoding.TextMarshaler so fates serialize as their
// string form in JSON.
func (f Fate) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Fate) UnmarshalText(text []byte) error {
	*f = ParseFate(string(text))
	return nil
}

// HoleReference identifies one polygon annotation on one panel, with its
// measured geometry. Vertices may be empty when the reference was
// reconstructed from a CSV that does not store geometry; the stored area
// and centroid are then trusted as-is.
type HoleReference struct {
	PanelID   string             `json:"panel_id"`
	PolygonID int                `json:"polygon_id"`
	Centroid  geometry.Point2D   `json:"centroid"`
	AreaNm2   float64            `json:"area_nm2"`
	AreaPx    float64            `json:"area_px"`
	Vertices  []geometry.Point2D `json:"vertices,omitempty"`
}

// NewHoleReference measures a polygon annotation and builds a reference for
// it. Area and centroid are derived from the vertices via the shoelace
// formulas; scale is the panel calibration in nm per pixel.
func NewHoleReference(panelID string, polygonID int, vertices []geometry.Point2D, scale float64) HoleReference {
	areaPx := geometry.PolygonArea(vertices)
	return HoleReference{
		PanelID:   panelID,
		PolygonID: polygonID,
		Centroid:  geometry.PolygonCentroid(vertices),
		AreaPx:    areaPx,
		AreaNm2:   areaPx * scale * scale,
		Vertices:  vertices,
	}
}

// IsSink reports whether the hole exceeds the sink area threshold.
func (h HoleReference) IsSink(thresholdNm2 float64) bool {
	return h.AreaNm2 > thresholdNm2
}

// Key returns the identity key of the hole within a session.
func (h HoleReference) Key() HoleKey {
	return HoleKey{PolygonID: h.PolygonID, PanelID: h.PanelID}
}

// HoleKey is the identity of a hole: polygon id scoped by panel.
type HoleKey struct {
	PolygonID int
	PanelID   string
}

// SinkPairing records a correspondence between a before-image sink and an
// after-image sink, with the derived ripening metrics. Either hole may be
// absent, but not both: a before-only pairing records a hole that vanished
// and is attributed as fully consumed.
type SinkPairing struct {
	PairingID          string         `json:"pairing_id"`
	BeforeHole         *HoleReference `json:"before_hole,omitempty"`
	AfterHole          *HoleReference `json:"after_hole,omitempty"`
	DistanceToCenterNm float64        `json:"distance_to_center_nm"`
	DistanceToCenterPx float64        `json:"distance_to_center_px"`
	AreaChangeNm2      float64        `json:"area_change_nm2"`
	SqrtA0OverR        float64        `json:"sqrt_a0_over_r"`
	Confirmed          bool           `json:"confirmed"`
	Created            time.Time      `json:"created"`
}

// SmallHoleFate records the tracked outcome of a hole below the sink
// threshold. AbsorbedByPairingID references the capturing SinkPairing when
// the fate is FateAbsorbed.
type SmallHoleFate struct {
	FateID              string        `json:"fate_id"`
	Hole                HoleReference `json:"hole"`
	Fate                Fate          `json:"fate"`
	AbsorbedByPairingID string        `json:"absorbed_by_pairing_id,omitempty"`
	Notes               string        `json:"notes,omitempty"`
}

// NewPairingID returns a fresh pairing identifier, "P" + 6 hex chars.
func NewPairingID() string {
	return "P" + shortHex()
}

// NewFateID returns a fresh fate identifier, "F" + 6 hex chars.
func NewFateID() string {
	return "F" + shortHex()
}

// shortHex returns the first 6 hex characters of a random UUID.
func shortHex() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:3])
}
