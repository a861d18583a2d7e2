package session

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Document is the on-disk JSON form of a set of pairing sessions. The
// round-trip is lossless: vertices, confirmed flags, and timestamps all
// survive, unlike the CSV export.
type Document struct {
	Version  int               `json:"version"`
	Created  time.Time         `json:"created"`
	Modified time.Time         `json:"modified"`
	Sessions []*PairingSession `json:"sessions"`
}

// documentVersion is the current document format version.
const documentVersion = 1

// NewDocument creates an empty document.
func NewDocument() *Document {
	now := time.Now()
	return &Document{
		Version:  documentVersion,
		Created:  now,
		Modified: now,
	}
}

// LoadDocument reads a session document from a JSON file.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse session document: %w", err)
	}
	return &doc, nil
}

// Save writes the document to a JSON file, bumping its modified timestamp.
func (d *Document) Save(path string) error {
	d.Modified = time.Now()

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// SessionByID returns the session with the given id, if present.
func (d *Document) SessionByID(sessionID string) (*PairingSession, bool) {
	for _, s := range d.Sessions {
		if s.SessionID == sessionID {
			return s, true
		}
	}
	return nil, false
}

// FromStore snapshots every data-holding session in the store into a new
// document.
func FromStore(st *Store) *Document {
	doc := NewDocument()
	doc.Sessions = st.Sessions()
	return doc
}

// PopulateStore loads the document's sessions into a fresh store.
func (d *Document) PopulateStore() *Store {
	st := NewStore()
	for _, s := range d.Sessions {
		if key, ok := Key(s.BeforePanelID, s.AfterPanelID); ok {
			st.sessions[key] = s
		}
	}
	return st
}
