package scraper

import (
	"context"
	"fmt"
	"strings"

	"inatscraper/pkg/inaturalist"
)

// Category is one species to collect images for
type Category struct {
	ID         int
	Name       string
	CommonName string
	Count      int
}

// SanitizedName is the directory name used for the category
func (c Category) SanitizedName() string {
	return SanitizeName(c.Name)
}

// SanitizeName replaces "/" and " " with "_". Nothing else is touched, so
// distinct names can map to the same directory.
func SanitizeName(name string) string {
	return strings.NewReplacer("/", "_", " ", "_").Replace(name)
}

// Resolver produces the ranked category list from species counts
type Resolver struct {
	client       CatalogClient
	qualityGrade string
}

// NewResolver creates a resolver. qualityGrade may be empty.
func NewResolver(client CatalogClient, qualityGrade string) *Resolver {
	return &Resolver{client: client, qualityGrade: qualityGrade}
}

// Resolve returns up to topN species in the order the catalog ranks them
func (r *Resolver) Resolve(ctx context.Context, placeID, taxonID, topN int) ([]Category, error) {
	resp, err := r.client.FetchSpeciesCounts(ctx, inaturalist.SpeciesCountsQuery{
		PlaceID:      placeID,
		TaxonID:      taxonID,
		QualityGrade: r.qualityGrade,
		PerPage:      topN,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve categories: %w", err)
	}

	categories := make([]Category, 0, len(resp.Results))
	for _, sc := range resp.Results {
		categories = append(categories, Category{
			ID:         sc.Taxon.ID,
			Name:       sc.Taxon.Name,
			CommonName: sc.Taxon.PreferredCommonName,
			Count:      sc.Count,
		})
	}
	return categories, nil
}
