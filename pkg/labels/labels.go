// Package labels writes the class list that accompanies a dataset. Index
// order follows catalog rank, so index 0 is the most observed species.
package labels

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"inatscraper/pkg/storage"
)

// FileName is written at the output root
const FileName = "classes.json"

// Class is one label of the dataset
type Class struct {
	Index        int    `json:"index"`
	TaxonID      int    `json:"taxon_id"`
	Name         string `json:"name"`
	Directory    string `json:"directory"`
	DisplayName  string `json:"display_name"`
	Observations int    `json:"observations"`
}

// Set is the ordered class list for one run
type Set struct {
	GeneratedAt time.Time `json:"generated_at"`
	PlaceID     int       `json:"place_id"`
	TaxonID     int       `json:"taxon_id"`
	Classes     []Class   `json:"classes"`
}

// NewSet starts an empty class list for the given catalog filters
func NewSet(placeID, taxonID int) *Set {
	return &Set{
		GeneratedAt: time.Now().UTC(),
		PlaceID:     placeID,
		TaxonID:     taxonID,
	}
}

// Add appends a class. Index is assigned in call order.
func (s *Set) Add(taxonID int, name, commonName, directory string, observations int) {
	s.Classes = append(s.Classes, Class{
		Index:        len(s.Classes),
		TaxonID:      taxonID,
		Name:         name,
		Directory:    directory,
		DisplayName:  DisplayName(name, commonName),
		Observations: observations,
	})
}

// Save writes the set to <root>/classes.json
func (s *Set) Save(m *storage.Manager) error {
	if err := m.WriteJSON(filepath.Join(m.Root(), FileName), s); err != nil {
		return fmt.Errorf("failed to save class list: %w", err)
	}
	return nil
}

// Load reads <root>/classes.json
func Load(m *storage.Manager) (*Set, error) {
	var s Set
	if err := m.ReadJSON(filepath.Join(m.Root(), FileName), &s); err != nil {
		return nil, fmt.Errorf("failed to load class list: %w", err)
	}
	return &s, nil
}

// DisplayName picks a human label: the title cased common name when the
// catalog has one, otherwise the scientific name as given
func DisplayName(scientific, common string) string {
	common = strings.TrimSpace(common)
	if common == "" {
		return scientific
	}
	return cases.Title(language.English).String(common)
}
