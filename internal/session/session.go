// Package session manages pairing sessions: one unit of work per
// (before panel, after panel) pair, the keyed store that owns them, and
// the JSON document and sectioned-CSV forms they persist to.
package session

import (
	"errors"
	"fmt"
	"time"

	"vacancy-tracker/internal/hole"
	"vacancy-tracker/pkg/geometry"
)

// Default analysis parameters for a new session.
const (
	DefaultSinkThresholdNm2 = 4.0
	DefaultMatchToleranceNm = 3.0
	DefaultCalibrationScale = 1.0
)

// Typed rejections for AddPairing. Holes already consumed by an existing
// pairing are refused here rather than trusted to the caller.
var (
	ErrNoHoles                 = errors.New("pairing has neither a before nor an after hole")
	ErrDuplicatePairingID      = errors.New("pairing id already exists in session")
	ErrBeforeHoleAlreadyPaired = errors.New("before hole already used by another pairing")
	ErrAfterHoleAlreadyPaired  = errors.New("after hole already used by another pairing")
)

// PairingSession aggregates the pairings and small-hole fates for one
// before/after panel pair, together with the analysis configuration and
// panel calibration they were produced under.
type PairingSession struct {
	SessionID     string `json:"session_id"`
	BeforePanelID string `json:"before_panel_id"`
	AfterPanelID  string `json:"after_panel_id"`
	BeforeTitle   string `json:"before_title,omitempty"`
	AfterTitle    string `json:"after_title,omitempty"`

	SinkThresholdNm2 float64 `json:"sink_threshold_nm2"`
	MatchToleranceNm float64 `json:"match_tolerance_nm"`
	FluencePerNm2    float64 `json:"fluence_per_nm2,omitempty"`

	ImageCenterPx    geometry.Point2D `json:"image_center_px"`
	ImageSizePx      geometry.Size    `json:"image_size_px"`
	CalibrationScale float64          `json:"calibration_scale"`

	Pairings []hole.SinkPairing   `json:"pairings"`
	Fates    []hole.SmallHoleFate `json:"small_hole_fates"`

	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// New creates an empty session for a before/after panel pair with default
// analysis parameters.
func New(beforePanelID, afterPanelID string) *PairingSession {
	now := time.Now()
	return &PairingSession{
		SessionID:        fmt.Sprintf("%s::%s", beforePanelID, afterPanelID),
		BeforePanelID:    beforePanelID,
		AfterPanelID:     afterPanelID,
		SinkThresholdNm2: DefaultSinkThresholdNm2,
		MatchToleranceNm: DefaultMatchToleranceNm,
		CalibrationScale: DefaultCalibrationScale,
		Created:          now,
		Modified:         now,
	}
}

// touch bumps the modified timestamp. Every mutation goes through here.
func (s *PairingSession) touch() {
	s.Modified = time.Now()
}

// HasData reports whether the session holds any pairings or fates.
// Empty sessions are not worth persisting.
func (s *PairingSession) HasData() bool {
	return len(s.Pairings) > 0 || len(s.Fates) > 0
}

// AddPairing appends a pairing after enforcing the uniqueness invariants:
// a before-panel polygon may back at most one pairing's before hole, and
// likewise for after holes. Violations return the typed sentinel errors
// above and leave the session unchanged.
func (s *PairingSession) AddPairing(p hole.SinkPairing) error {
	if p.BeforeHole == nil && p.AfterHole == nil {
		return ErrNoHoles
	}
	for i := range s.Pairings {
		existing := &s.Pairings[i]
		if existing.PairingID == p.PairingID {
			return fmt.Errorf("%w: %s", ErrDuplicatePairingID, p.PairingID)
		}
		if p.BeforeHole != nil && existing.BeforeHole != nil &&
			existing.BeforeHole.PolygonID == p.BeforeHole.PolygonID {
			return fmt.Errorf("%w: polygon %d", ErrBeforeHoleAlreadyPaired, p.BeforeHole.PolygonID)
		}
		if p.AfterHole != nil && existing.AfterHole != nil &&
			existing.AfterHole.PolygonID == p.AfterHole.PolygonID {
			return fmt.Errorf("%w: polygon %d", ErrAfterHoleAlreadyPaired, p.AfterHole.PolygonID)
		}
	}

	if p.PairingID == "" {
		p.PairingID = hole.NewPairingID()
	}
	if p.Created.IsZero() {
		p.Created = time.Now()
	}
	s.Pairings = append(s.Pairings, p)
	s.touch()
	return nil
}

// ConfirmPairing marks the pairing confirmed. Returns false (and leaves the
// session untouched) if the id is unknown.
func (s *PairingSession) ConfirmPairing(pairingID string) bool {
	return s.setConfirmed(pairingID, true)
}

// UnconfirmPairing reverts a pairing to unconfirmed. Returns false if the
// id is unknown.
func (s *PairingSession) UnconfirmPairing(pairingID string) bool {
	return s.setConfirmed(pairingID, false)
}

func (s *PairingSession) setConfirmed(pairingID string, confirmed bool) bool {
	for i := range s.Pairings {
		if s.Pairings[i].PairingID == pairingID {
			s.Pairings[i].Confirmed = confirmed
			s.touch()
			return true
		}
	}
	return false
}

// RemovePairing deletes a pairing by id regardless of confirmed state; the
// UI restricts removal to unconfirmed pairings by convention, but the
// engine stays permissive. Returns false if the id is unknown.
func (s *PairingSession) RemovePairing(pairingID string) bool {
	for i := range s.Pairings {
		if s.Pairings[i].PairingID == pairingID {
			s.Pairings = append(s.Pairings[:i], s.Pairings[i+1:]...)
			s.touch()
			return true
		}
	}
	return false
}

// PairingByID returns a copy of the pairing with the given id.
func (s *PairingSession) PairingByID(pairingID string) (hole.SinkPairing, bool) {
	for i := range s.Pairings {
		if s.Pairings[i].PairingID == pairingID {
			return s.Pairings[i], true
		}
	}
	return hole.SinkPairing{}, false
}

// ConfirmedPairings returns copies of all confirmed pairings.
func (s *PairingSession) ConfirmedPairings() []hole.SinkPairing {
	return s.filterPairings(true)
}

// UnconfirmedPairings returns copies of all suggested (unconfirmed) pairings.
func (s *PairingSession) UnconfirmedPairings() []hole.SinkPairing {
	return s.filterPairings(false)
}

func (s *PairingSession) filterPairings(confirmed bool) []hole.SinkPairing {
	var out []hole.SinkPairing
	for _, p := range s.Pairings {
		if p.Confirmed == confirmed {
			out = append(out, p)
		}
	}
	return out
}

// SetSmallHoleFate records the outcome of a small hole. Keyed by
// (polygon id, panel id): setting a fate for a known hole updates the
// existing record in place, never duplicates.
func (s *PairingSession) SetSmallHoleFate(h hole.HoleReference, fate hole.Fate, absorbedByPairingID string) *hole.SmallHoleFate {
	key := h.Key()
	for i := range s.Fates {
		if s.Fates[i].Hole.Key() == key {
			s.Fates[i].Fate = fate
			s.Fates[i].AbsorbedByPairingID = absorbedByPairingID
			s.touch()
			return &s.Fates[i]
		}
	}
	s.Fates = append(s.Fates, hole.SmallHoleFate{
		FateID:              hole.NewFateID(),
		Hole:                h,
		Fate:                fate,
		AbsorbedByPairingID: absorbedByPairingID,
	})
	s.touch()
	return &s.Fates[len(s.Fates)-1]
}

// FateFor returns a copy of the fate record for a hole, if one is tracked.
func (s *PairingSession) FateFor(h hole.HoleReference) (hole.SmallHoleFate, bool) {
	key := h.Key()
	for i := range s.Fates {
		if s.Fates[i].Hole.Key() == key {
			return s.Fates[i], true
		}
	}
	return hole.SmallHoleFate{}, false
}

// ComputeMetrics recalculates a pairing's derived metrics against this
// session's image center and calibration.
func (s *PairingSession) ComputeMetrics(p *hole.SinkPairing) {
	hole.CalculateMetrics(p, s.ImageCenterPx, s.CalibrationScale)
}

// RunAutoMatch partitions the panels' holes into sinks and small holes by
// the session threshold, discards all unconfirmed pairings, and proposes
// fresh unconfirmed pairings for the sinks via the matching engine.
// Confirmed pairings are untouched; the holes they consume are excluded
// from matching. Returns the small-hole partition of the before panel for
// fate tracking.
func (s *PairingSession) RunAutoMatch(beforeHoles, afterHoles []hole.HoleReference) []hole.HoleReference {
	beforeSinks, smallBefore := hole.PartitionByThreshold(beforeHoles, s.SinkThresholdNm2)
	afterSinks, _ := hole.PartitionByThreshold(afterHoles, s.SinkThresholdNm2)

	excludedBefore := make(map[int]bool)
	excludedAfter := make(map[int]bool)
	confirmed := s.Pairings[:0:0]
	for _, p := range s.Pairings {
		if !p.Confirmed {
			continue
		}
		confirmed = append(confirmed, p)
		if p.BeforeHole != nil {
			excludedBefore[p.BeforeHole.PolygonID] = true
		}
		if p.AfterHole != nil {
			excludedAfter[p.AfterHole.PolygonID] = true
		}
	}
	s.Pairings = confirmed

	matches := hole.Match(beforeSinks, afterSinks, s.MatchToleranceNm, s.CalibrationScale, excludedBefore, excludedAfter)
	now := time.Now()
	for _, m := range matches {
		before := m.Before
		after := m.After
		p := hole.SinkPairing{
			PairingID:  hole.NewPairingID(),
			BeforeHole: &before,
			AfterHole:  &after,
			Created:    now,
		}
		s.ComputeMetrics(&p)
		s.Pairings = append(s.Pairings, p)
	}
	s.touch()

	return smallBefore
}
