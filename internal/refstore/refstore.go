// Package refstore holds the parsed bibliographic reference set for one
// session: the id -> entry mapping plus the ordered list of all known ids.
//
// Parsing raw bibliographic text into entries is the importer collaborator's
// job; the store only receives the result. Entries are immutable for the
// lifetime of the session.
package refstore

import (
	"fmt"
	"sort"
	"strings"
)

// Author is one creator of a referenced work.
type Author struct {
	Family string `yaml:"family" json:"family"`
	Given  string `yaml:"given,omitempty" json:"given,omitempty"`
}

// Entry is a single bibliographic reference. Identity is ID; everything else
// is style-engine input.
type Entry struct {
	ID        string   `yaml:"-" json:"id"`
	Type      string   `yaml:"type,omitempty" json:"type,omitempty"`
	Title     string   `yaml:"title" json:"title"`
	Authors   []Author `yaml:"authors,omitempty" json:"authors,omitempty"`
	Year      int      `yaml:"year,omitempty" json:"year,omitempty"`
	Container string   `yaml:"container,omitempty" json:"container,omitempty"`
	Publisher string   `yaml:"publisher,omitempty" json:"publisher,omitempty"`
	URL       string   `yaml:"url,omitempty" json:"url,omitempty"`
}

// CleanTitle returns the title with protective braces stripped.
// Bibliographic sources brace-wrap fragments to protect casing
// ("{DNA} sequencing"); display output never shows the braces.
func (e Entry) CleanTitle() string {
	return strings.NewReplacer("{", "", "}", "").Replace(e.Title)
}

// Importer parses raw bibliographic text into an id -> entry mapping.
// A parse failure is fatal to session creation.
type Importer interface {
	Parse(raw []byte) (map[string]Entry, error)
}

// Store is the reference store. Construct with New; read-only afterwards.
type Store struct {
	entries map[string]Entry
	ids     []string // all known ids, sorted
}

// New builds a store from an importer result. Entry IDs are normalized from
// the map keys; ids are held sorted so every consumer sees one canonical
// order.
func New(entries map[string]Entry) *Store {
	s := &Store{entries: make(map[string]Entry, len(entries))}
	for id, e := range entries {
		e.ID = id
		s.entries[id] = e
		s.ids = append(s.ids, id)
	}
	sort.Strings(s.ids)
	return s
}

// Import runs the importer and builds a store from its output.
func Import(imp Importer, raw []byte) (*Store, error) {
	entries, err := imp.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse references: %w", err)
	}
	return New(entries), nil
}

// Get looks up an entry by id.
func (s *Store) Get(id string) (Entry, bool) {
	e, ok := s.entries[id]
	return e, ok
}

// IDs returns all known reference ids, sorted lexicographically.
// The returned slice is a copy.
func (s *Store) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Len returns the number of known references.
func (s *Store) Len() int {
	return len(s.ids)
}

// Entries returns all entries sorted by id. This is the reference-list
// payload: the tabular display widget itself lives outside the core.
func (s *Store) Entries() []Entry {
	out := make([]Entry, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.entries[id])
	}
	return out
}
