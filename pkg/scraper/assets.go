package scraper

import (
	"strings"

	"inatscraper/pkg/inaturalist"
)

// AssetRef is one downloadable photo of an observation
type AssetRef struct {
	Observation *inaturalist.Observation
	Photo       *inaturalist.Photo
	URL         string
}

// FullResolutionURL swaps every occurrence of from with to. URLs without
// the token come back unchanged.
func FullResolutionURL(url, from, to string) string {
	if from == "" {
		return url
	}
	return strings.ReplaceAll(url, from, to)
}

// ExtractAssets lists the photos of obs in their original order
func ExtractAssets(obs *inaturalist.Observation, from, to string) []AssetRef {
	assets := make([]AssetRef, 0, len(obs.Photos))
	for i := range obs.Photos {
		photo := &obs.Photos[i]
		assets = append(assets, AssetRef{
			Observation: obs,
			Photo:       photo,
			URL:         FullResolutionURL(photo.URL, from, to),
		})
	}
	return assets
}
