// Package annotation defines the input format the analysis engine consumes
// from the drawing layer: panels with calibration data and polygon vertex
// lists. The engine never sees images, only these annotations.
package annotation

import (
	"encoding/json"
	"fmt"
	"os"

	"vacancy-tracker/internal/hole"
	"vacancy-tracker/pkg/geometry"
)

// Polygon is one drawn hole outline on a panel.
type Polygon struct {
	ID       int                `json:"id"`
	Vertices []geometry.Point2D `json:"vertices"`
}

// Panel is one micrograph's worth of annotations plus its calibration.
// ImageCenter marks the vacancy source; when absent it falls back to the
// center of ImageSize, and to the origin if that is unknown too.
type Panel struct {
	ID               string            `json:"id"`
	Title            string            `json:"title,omitempty"`
	CalibrationScale float64           `json:"calibration_scale,omitempty"` // nm per pixel
	ImageCenter      *geometry.Point2D `json:"image_center,omitempty"`
	ImageSize        *geometry.Size    `json:"image_size,omitempty"`
	Polygons         []Polygon         `json:"polygons"`
}

// Set is the on-disk collection of annotated panels.
type Set struct {
	Panels []Panel `json:"panels"`
}

// LoadSet reads an annotation set from a JSON file.
func LoadSet(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse annotations: %w", err)
	}
	return &set, nil
}

// Save writes the annotation set to a JSON file.
func (s *Set) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Panel returns the panel with the given id, if present.
func (s *Set) Panel(id string) (*Panel, bool) {
	for i := range s.Panels {
		if s.Panels[i].ID == id {
			return &s.Panels[i], true
		}
	}
	return nil, false
}

// Scale returns the panel's calibration in nm per pixel, defaulting to 1.0
// when the panel carries none.
func (p *Panel) Scale() float64 {
	if p.CalibrationScale > 0 {
		return p.CalibrationScale
	}
	return 1.0
}

// Center returns the vacancy source position in pixels.
func (p *Panel) Center() geometry.Point2D {
	if p.ImageCenter != nil {
		return *p.ImageCenter
	}
	if p.ImageSize != nil {
		return p.ImageSize.Center()
	}
	return geometry.Point2D{}
}

// Holes measures every polygon on the panel and returns the resulting
// hole references, area and centroid derived via the shoelace formulas.
func (p *Panel) Holes() []hole.HoleReference {
	scale := p.Scale()
	holes := make([]hole.HoleReference, 0, len(p.Polygons))
	for _, poly := range p.Polygons {
		holes = append(holes, hole.NewHoleReference(p.ID, poly.ID, poly.Vertices, scale))
	}
	return holes
}
