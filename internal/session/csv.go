package session

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"vacancy-tracker/internal/hole"
	"vacancy-tracker/pkg/geometry"

	"github.com/charmbracelet/log"
)

// Section markers and the optional metadata line of the sectioned CSV
// format. Everything else starting with '#' is a skippable comment.
const (
	csvPairingsMarker = "# Sink Pairings"
	csvFatesMarker    = "# Small Hole Fates"
	csvFluencePrefix  = "# fluence,"
)

// csvFloat formats export values at the codec's stated precision.
func csvFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// pairingHeader returns the pairing-section header. The normalized-delta
// column exists only when a fluence is recorded, so the column count (and
// the position of everything after delta_area_nm2) varies with it.
func pairingHeader(withFluence bool) []string {
	header := []string{
		"pairing_id", "before_polygon_id", "after_polygon_id",
		"before_area_nm2", "after_area_nm2", "delta_area_nm2",
	}
	if withFluence {
		header = append(header, "delta_area_normalized")
	}
	return append(header,
		"distance_to_center_nm", "sqrt_a0_over_r",
		"before_perp_width_nm", "after_perp_width_nm", "half_width_over_r",
		"before_cx", "before_cy", "after_cx", "after_cy",
	)
}

var fateHeader = []string{
	"fate_id", "polygon_id", "area_nm2", "fate", "absorbed_by", "cx", "cy",
}

// ExportCSV writes the session's confirmed pairings and small-hole fates
// as a sectioned CSV. Unconfirmed pairings are not exported; vertices are
// never serialized (the codec is deliberately lossy, see ImportCSV).
func (s *PairingSession) ExportCSV(w io.Writer) error {
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)

	withFluence := s.FluencePerNm2 > 0
	if withFluence {
		fmt.Fprintf(bw, "%s%s\n", csvFluencePrefix, csvFloat(s.FluencePerNm2))
	}

	fmt.Fprintln(bw, csvPairingsMarker)
	if err := cw.Write(pairingHeader(withFluence)); err != nil {
		return err
	}
	for _, p := range s.Pairings {
		if !p.Confirmed {
			continue
		}
		if err := cw.Write(s.pairingRow(p, withFluence)); err != nil {
			return err
		}
	}
	cw.Flush()

	fmt.Fprintln(bw, csvFatesMarker)
	if err := cw.Write(fateHeader); err != nil {
		return err
	}
	for _, f := range s.Fates {
		row := []string{
			f.FateID,
			strconv.Itoa(f.Hole.PolygonID),
			csvFloat(f.Hole.AreaNm2),
			f.Fate.String(),
			f.AbsorbedByPairingID,
			csvFloat(f.Hole.Centroid.X),
			csvFloat(f.Hole.Centroid.Y),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return bw.Flush()
}

// pairingRow renders one confirmed pairing. Absent holes leave their id,
// area, width, and centroid fields empty.
func (s *PairingSession) pairingRow(p hole.SinkPairing, withFluence bool) []string {
	var beforeID, afterID, beforeArea, afterArea string
	var beforeCx, beforeCy, afterCx, afterCy string
	var beforeWidth, afterWidth, halfOverR float64

	if p.BeforeHole != nil {
		beforeID = strconv.Itoa(p.BeforeHole.PolygonID)
		beforeArea = csvFloat(p.BeforeHole.AreaNm2)
		beforeCx = csvFloat(p.BeforeHole.Centroid.X)
		beforeCy = csvFloat(p.BeforeHole.Centroid.Y)
		beforeWidth = s.perpWidthNm(*p.BeforeHole)
	}
	if p.AfterHole != nil {
		afterID = strconv.Itoa(p.AfterHole.PolygonID)
		afterArea = csvFloat(p.AfterHole.AreaNm2)
		afterCx = csvFloat(p.AfterHole.Centroid.X)
		afterCy = csvFloat(p.AfterHole.Centroid.Y)
		afterWidth = s.perpWidthNm(*p.AfterHole)
	}
	if p.DistanceToCenterNm > 0 {
		halfOverR = beforeWidth / 2 / p.DistanceToCenterNm
	}

	row := []string{
		p.PairingID, beforeID, afterID, beforeArea, afterArea,
		csvFloat(p.AreaChangeNm2),
	}
	if withFluence {
		row = append(row, csvFloat(p.AreaChangeNm2/s.FluencePerNm2))
	}
	return append(row,
		csvFloat(p.DistanceToCenterNm), csvFloat(p.SqrtA0OverR),
		csvFloat(beforeWidth), csvFloat(afterWidth), csvFloat(halfOverR),
		beforeCx, beforeCy, afterCx, afterCy,
	)
}

// perpWidthNm measures a hole's perpendicular width against this session's
// image center, in nm. Holes without vertices (CSV-reconstructed) have no
// measurable width and report 0.
func (s *PairingSession) perpWidthNm(h hole.HoleReference) float64 {
	if len(h.Vertices) == 0 {
		return 0
	}
	return geometry.PerpendicularWidth(h.Vertices, h.Centroid, s.ImageCenterPx) * s.CalibrationScale
}

// ExportCSVFile writes the sectioned CSV to a file.
func (s *PairingSession) ExportCSVFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.ExportCSV(f)
}

// csvSection tracks which section of the file the import scanner is in.
type csvSection int

const (
	sectionNone csvSection = iota
	sectionPairings
	sectionFates
)

// ImportCSV reads a sectioned CSV produced by ExportCSV and appends its
// pairings and fates to the session. Reconstructed holes carry no vertices
// (geometry is not serialized), so perpendicular widths cannot be
// recomputed after a round-trip; imported pairings are confirmed, since
// only confirmed pairings are ever exported. Rows that fail to parse are
// skipped with a warning on logger; a partial import is not an error.
func (s *PairingSession) ImportCSV(r io.Reader, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}

	section := sectionNone
	headerSeen := false
	withFluence := false
	var centroidIdx map[string]int

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == csvPairingsMarker:
			section = sectionPairings
			headerSeen = false
			continue
		case line == csvFatesMarker:
			section = sectionFates
			headerSeen = false
			continue
		case strings.HasPrefix(line, csvFluencePrefix):
			if v, err := strconv.ParseFloat(strings.TrimPrefix(line, csvFluencePrefix), 64); err == nil && v > 0 {
				s.FluencePerNm2 = v
				withFluence = true
			}
			continue
		case strings.HasPrefix(line, "#"):
			continue
		}

		fields, err := csv.NewReader(strings.NewReader(line)).Read()
		if err != nil {
			logger.Warn("skipping malformed CSV line", "line", lineNo, "err", err)
			continue
		}

		if !headerSeen {
			// First non-comment line after a marker is the header. Centroid
			// columns are located by name since their position shifts with
			// the normalized-delta column.
			headerSeen = true
			if section == sectionPairings {
				centroidIdx = headerIndex(fields, "before_cx", "before_cy", "after_cx", "after_cy")
			}
			continue
		}

		switch section {
		case sectionPairings:
			p, err := s.parsePairingRow(fields, withFluence, centroidIdx)
			if err != nil {
				logger.Warn("skipping pairing row", "line", lineNo, "err", err)
				continue
			}
			s.Pairings = append(s.Pairings, p)
		case sectionFates:
			f, err := s.parseFateRow(fields)
			if err != nil {
				logger.Warn("skipping fate row", "line", lineNo, "err", err)
				continue
			}
			s.Fates = append(s.Fates, f)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if s.HasData() {
		s.touch()
	}
	return nil
}

// headerIndex maps the requested column names to their positions.
func headerIndex(header []string, names ...string) map[string]int {
	idx := make(map[string]int, len(names))
	for _, name := range names {
		idx[name] = -1
		for i, col := range header {
			if col == name {
				idx[name] = i
				break
			}
		}
	}
	return idx
}

// parsePairingRow reconstructs a confirmed pairing from its CSV row.
// Known numeric columns are positional; centroids come via the header
// index. Holes rebuilt here have no vertices.
func (s *PairingSession) parsePairingRow(fields []string, withFluence bool, centroidIdx map[string]int) (hole.SinkPairing, error) {
	minFields := 11
	if withFluence {
		minFields = 12
	}
	if len(fields) < minFields {
		return hole.SinkPairing{}, fmt.Errorf("expected at least %d fields, got %d", minFields, len(fields))
	}

	p := hole.SinkPairing{
		PairingID: fields[0],
		Confirmed: true,
	}
	if p.PairingID == "" {
		return hole.SinkPairing{}, fmt.Errorf("empty pairing id")
	}

	offset := 0
	if withFluence {
		offset = 1
	}
	var err error
	if p.AreaChangeNm2, err = strconv.ParseFloat(fields[5], 64); err != nil {
		return hole.SinkPairing{}, fmt.Errorf("delta_area_nm2: %w", err)
	}
	if p.DistanceToCenterNm, err = strconv.ParseFloat(fields[6+offset], 64); err != nil {
		return hole.SinkPairing{}, fmt.Errorf("distance_to_center_nm: %w", err)
	}
	if p.SqrtA0OverR, err = strconv.ParseFloat(fields[7+offset], 64); err != nil {
		return hole.SinkPairing{}, fmt.Errorf("sqrt_a0_over_r: %w", err)
	}
	if s.CalibrationScale > 0 {
		p.DistanceToCenterPx = p.DistanceToCenterNm / s.CalibrationScale
	}

	if fields[1] != "" {
		h, err := parseCSVHole(s.BeforePanelID, fields[1], fields[3],
			csvField(fields, centroidIdx["before_cx"]), csvField(fields, centroidIdx["before_cy"]))
		if err != nil {
			return hole.SinkPairing{}, fmt.Errorf("before hole: %w", err)
		}
		p.BeforeHole = h
	}
	if fields[2] != "" {
		h, err := parseCSVHole(s.AfterPanelID, fields[2], fields[4],
			csvField(fields, centroidIdx["after_cx"]), csvField(fields, centroidIdx["after_cy"]))
		if err != nil {
			return hole.SinkPairing{}, fmt.Errorf("after hole: %w", err)
		}
		p.AfterHole = h
	}
	if p.BeforeHole == nil && p.AfterHole == nil {
		return hole.SinkPairing{}, fmt.Errorf("row has neither hole")
	}
	return p, nil
}

// parseFateRow reconstructs a small-hole fate from its CSV row. Fate
// strings fail closed to UNKNOWN rather than rejecting the row.
func (s *PairingSession) parseFateRow(fields []string) (hole.SmallHoleFate, error) {
	if len(fields) < 7 {
		return hole.SmallHoleFate{}, fmt.Errorf("expected 7 fields, got %d", len(fields))
	}
	h, err := parseCSVHole(s.BeforePanelID, fields[1], fields[2], fields[5], fields[6])
	if err != nil {
		return hole.SmallHoleFate{}, err
	}
	return hole.SmallHoleFate{
		FateID:              fields[0],
		Hole:                *h,
		Fate:                hole.ParseFate(fields[3]),
		AbsorbedByPairingID: fields[4],
	}, nil
}

// parseCSVHole rebuilds a vertex-less hole reference from its CSV fields.
// Stored area and centroid are trusted as-is. Missing centroid columns
// leave the centroid at the origin rather than failing the row.
func parseCSVHole(panelID, idField, areaField, cxField, cyField string) (*hole.HoleReference, error) {
	polygonID, err := strconv.Atoi(idField)
	if err != nil {
		return nil, fmt.Errorf("polygon id %q: %w", idField, err)
	}
	h := &hole.HoleReference{
		PanelID:   panelID,
		PolygonID: polygonID,
	}
	if areaField != "" {
		if h.AreaNm2, err = strconv.ParseFloat(areaField, 64); err != nil {
			return nil, fmt.Errorf("area %q: %w", areaField, err)
		}
	}
	if cxField != "" && cyField != "" {
		cx, errX := strconv.ParseFloat(cxField, 64)
		cy, errY := strconv.ParseFloat(cyField, 64)
		if errX == nil && errY == nil {
			h.Centroid = geometry.Point2D{X: cx, Y: cy}
		}
	}
	return h, nil
}

// csvField returns fields[i], or "" when the index is out of range (e.g. a
// centroid column the header did not declare).
func csvField(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return fields[i]
}

// ImportCSVFile reads a sectioned CSV from a file into the session.
func (s *PairingSession) ImportCSVFile(path string, logger *log.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.ImportCSV(f, logger)
}
