package inaturalist

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpeciesCountsURL(t *testing.T) {
	raw := SpeciesCountsURL(BaseURL, SpeciesCountsQuery{
		PlaceID:      6973,
		TaxonID:      50814,
		QualityGrade: "research",
		PerPage:      20,
	})

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "api.inaturalist.org", u.Host)
	assert.Equal(t, "/v1/observations/species_counts", u.Path)

	q := u.Query()
	assert.Equal(t, "6973", q.Get("place_id"))
	assert.Equal(t, "50814", q.Get("taxon_id"))
	assert.Equal(t, "research", q.Get("quality_grade"))
	assert.Equal(t, "20", q.Get("per_page"))
}

func TestObservationsURL(t *testing.T) {
	raw := ObservationsURL("http://127.0.0.1:8080/v1/", ObservationsQuery{
		TaxonID:      48715,
		QualityGrade: "research",
		PerPage:      500,
		Page:         3,
		OrderBy:      "created_at",
		Order:        "desc",
	})

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/v1/observations", u.Path)

	q := u.Query()
	assert.Equal(t, "48715", q.Get("taxon_id"))
	assert.Equal(t, "3", q.Get("page"))
	assert.Equal(t, "200", q.Get("per_page"), "per_page is capped")
	assert.Equal(t, "created_at", q.Get("order_by"))
	assert.Equal(t, "desc", q.Get("order"))
	assert.False(t, q.Has("place_id"))
}

func TestURLBuildersOmitZeroValues(t *testing.T) {
	raw := SpeciesCountsURL("", SpeciesCountsQuery{})
	assert.Equal(t, BaseURL+SpeciesCountsEndpoint, raw)

	raw = ObservationsURL("", ObservationsQuery{TaxonID: 1})
	assert.Equal(t, BaseURL+ObservationsEndpoint+"?taxon_id=1", raw)
}
