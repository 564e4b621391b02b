// Command inatscraper downloads research-grade observation photos from
// iNaturalist for the most observed species of a taxon within a place.
package main

func main() {
	Execute()
}
