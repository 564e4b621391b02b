package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"inatscraper/pkg/inaturalist"
)

// FileName is the per-category metadata file
const FileName = "metadata.json"

// CategoryMetadata describes one category directory after a run
type CategoryMetadata struct {
	RunID        string    `json:"run_id,omitempty"`
	TaxonID      int       `json:"taxon_id"`
	Name         string    `json:"name"`
	Directory    string    `json:"directory"`
	Rank         int       `json:"rank"`
	Observations int       `json:"observations"`
	Quota        int       `json:"quota"`
	Downloaded   int       `json:"downloaded"`
	Failed       int       `json:"failed"`
	PagesFetched int       `json:"pages_fetched"`
	Exhausted    bool      `json:"exhausted"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Assets       []Asset   `json:"assets"`
}

// Asset is one downloaded file and where it came from
type Asset struct {
	File          string    `json:"file"`
	Sequence      int       `json:"sequence"`
	ObservationID int       `json:"observation_id"`
	PhotoID       int       `json:"photo_id"`
	SourceURL     string    `json:"source_url"`
	Attribution   string    `json:"attribution,omitempty"`
	LicenseCode   string    `json:"license_code,omitempty"`
	DownloadedAt  time.Time `json:"downloaded_at"`
}

// NewAsset builds an Asset record for a saved photo
func NewAsset(file string, seq int, obs *inaturalist.Observation, photo *inaturalist.Photo, sourceURL string) Asset {
	return Asset{
		File:          file,
		Sequence:      seq,
		ObservationID: obs.ID,
		PhotoID:       photo.ID,
		SourceURL:     sourceURL,
		Attribution:   photo.Attribution,
		LicenseCode:   photo.LicenseCode,
		DownloadedAt:  time.Now().UTC(),
	}
}

// Add records a downloaded asset
func (m *CategoryMetadata) Add(a Asset) {
	m.Assets = append(m.Assets, a)
}

// SortAssets orders assets by sequence number. Concurrent downloads finish
// out of order.
func (m *CategoryMetadata) SortAssets() {
	sort.Slice(m.Assets, func(i, j int) bool {
		return m.Assets[i].Sequence < m.Assets[j].Sequence
	})
}

// LicenseCounts tallies assets per license code. Unlicensed photos count
// under "none".
func (m *CategoryMetadata) LicenseCounts() map[string]int {
	counts := make(map[string]int)
	for _, a := range m.Assets {
		code := a.LicenseCode
		if code == "" {
			code = "none"
		}
		counts[code]++
	}
	return counts
}

// Save writes the metadata to dir/metadata.json
func (m *CategoryMetadata) Save(dir string) error {
	m.SortAssets()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	return nil
}

// Load reads dir/metadata.json
func Load(dir string) (*CategoryMetadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var meta CategoryMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &meta, nil
}
