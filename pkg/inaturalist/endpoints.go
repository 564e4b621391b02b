package inaturalist

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	// BaseURL is the public node API
	BaseURL = "https://api.inaturalist.org/v1"

	// SpeciesCountsEndpoint ranks taxa by observation count
	SpeciesCountsEndpoint = "/observations/species_counts"

	// ObservationsEndpoint lists observations
	ObservationsEndpoint = "/observations"

	// MaxPerPage is the largest page the API serves
	MaxPerPage = 200
)

// SpeciesCountsQuery filters a species count request. Zero values are left
// out of the query string.
type SpeciesCountsQuery struct {
	PlaceID      int
	TaxonID      int
	QualityGrade string
	PerPage      int
}

// ObservationsQuery selects one page of observations for a taxon
type ObservationsQuery struct {
	TaxonID      int
	QualityGrade string
	PerPage      int
	Page         int
	OrderBy      string
	Order        string
}

// SpeciesCountsURL builds the species count URL against base
func SpeciesCountsURL(base string, q SpeciesCountsQuery) string {
	params := url.Values{}
	setInt(params, "place_id", q.PlaceID)
	setInt(params, "taxon_id", q.TaxonID)
	setString(params, "quality_grade", q.QualityGrade)
	setInt(params, "per_page", clampPerPage(q.PerPage))

	return join(base, SpeciesCountsEndpoint, params)
}

// ObservationsURL builds the observation page URL against base
func ObservationsURL(base string, q ObservationsQuery) string {
	params := url.Values{}
	setInt(params, "taxon_id", q.TaxonID)
	setString(params, "quality_grade", q.QualityGrade)
	setInt(params, "per_page", clampPerPage(q.PerPage))
	setInt(params, "page", q.Page)
	setString(params, "order_by", q.OrderBy)
	setString(params, "order", q.Order)

	return join(base, ObservationsEndpoint, params)
}

func clampPerPage(n int) int {
	if n > MaxPerPage {
		return MaxPerPage
	}
	return n
}

func setInt(params url.Values, key string, v int) {
	if v > 0 {
		params.Set(key, strconv.Itoa(v))
	}
}

func setString(params url.Values, key, v string) {
	if v != "" {
		params.Set(key, v)
	}
}

func join(base, endpoint string, params url.Values) string {
	if base == "" {
		base = BaseURL
	}
	u := strings.TrimRight(base, "/") + endpoint
	if encoded := params.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}
