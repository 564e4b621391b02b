package inaturalist

// SpeciesCountsResponse is the body of GET /observations/species_counts
type SpeciesCountsResponse struct {
	TotalResults int            `json:"total_results"`
	Page         int            `json:"page"`
	PerPage      int            `json:"per_page"`
	Results      []SpeciesCount `json:"results"`
}

// SpeciesCount pairs a taxon with the number of matching observations
type SpeciesCount struct {
	Count int   `json:"count"`
	Taxon Taxon `json:"taxon"`
}

// Taxon is the subset of taxon fields the scraper uses
type Taxon struct {
	ID                  int    `json:"id"`
	Name                string `json:"name"`
	Rank                string `json:"rank"`
	PreferredCommonName string `json:"preferred_common_name"`
	IconicTaxonName     string `json:"iconic_taxon_name"`
}

// ObservationsResponse is the body of GET /observations
type ObservationsResponse struct {
	TotalResults int           `json:"total_results"`
	Page         int           `json:"page"`
	PerPage      int           `json:"per_page"`
	Results      []Observation `json:"results"`
}

// Observation is a single catalog record. Photos are in the order the
// observer attached them.
type Observation struct {
	ID           int     `json:"id"`
	UUID         string  `json:"uuid"`
	QualityGrade string  `json:"quality_grade"`
	ObservedOn   string  `json:"observed_on"`
	URI          string  `json:"uri"`
	Taxon        *Taxon  `json:"taxon,omitempty"`
	Photos       []Photo `json:"photos"`
}

// Photo references one image of an observation. URL points at the square
// thumbnail rendition.
type Photo struct {
	ID          int    `json:"id"`
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
	LicenseCode string `json:"license_code"`
}
