package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"inatscraper/pkg/config"
	"inatscraper/pkg/labels"
	"inatscraper/pkg/logger"
	"inatscraper/pkg/scraper"
	"inatscraper/pkg/storage"
	"inatscraper/pkg/ui"
)

var speciesLocal bool

var speciesCmd = &cobra.Command{
	Use:   "species",
	Short: "List the most observed species without downloading",
	Long: `Resolve and print the ranked species list that 'scrape' would process,
together with the directory each species is saved under and how many photos
are already on disk there.

With --local the class list written by the last scrape (classes.json in the
output directory) is shown instead, without contacting the catalog.`,
	Args: cobra.NoArgs,
	RunE: runSpecies,
}

func init() {
	rootCmd.AddCommand(speciesCmd)
	addCatalogFlags(speciesCmd)
	speciesCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default: ./inaturalist_images)")
	speciesCmd.Flags().BoolVar(&speciesLocal, "local", false, "read the saved class list instead of the catalog")
}

// speciesRow is one line of the species table
type speciesRow struct {
	taxonID      int
	name         string
	displayName  string
	observations int
	directory    string
}

func runSpecies(cmd *cobra.Command, args []string) error {
	cfg, err := setup(changedFlags(cmd))
	if err != nil {
		return err
	}

	store, err := storage.NewManager(&cfg.Output)
	if err != nil {
		return err
	}

	var rows []speciesRow
	if speciesLocal {
		rows, err = localSpecies(store)
	} else {
		rows, err = catalogSpecies(cfg, store)
	}
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		ui.PrintWarning("No species found")
		return nil
	}

	w := tabwriter.NewWriter(ui.Output(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tID\tNAME\tDISPLAY NAME\tOBSERVATIONS\tDIRECTORY\tON DISK")
	for i, r := range rows {
		onDisk, err := store.CountAssets(r.directory)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%d\t%s\t%d/%d\n",
			i+1, r.taxonID, r.name, r.displayName, r.observations, r.directory, onDisk, cfg.Acquisition.Quota)
	}
	return w.Flush()
}

func catalogSpecies(cfg *config.Config, store *storage.Manager) ([]speciesRow, error) {
	s, err := scraper.New(cfg, scraper.Dependencies{Logger: logger.GetLogger(), Store: store})
	if err != nil {
		return nil, err
	}

	categories, err := s.Resolve(context.Background())
	if err != nil {
		return nil, err
	}

	rows := make([]speciesRow, len(categories))
	for i, c := range categories {
		rows[i] = speciesRow{
			taxonID:      c.ID,
			name:         c.Name,
			displayName:  labels.DisplayName(c.Name, c.CommonName),
			observations: c.Count,
			directory:    c.SanitizedName(),
		}
	}
	return rows, nil
}

func localSpecies(store *storage.Manager) ([]speciesRow, error) {
	set, err := labels.Load(store)
	if err != nil {
		return nil, err
	}

	rows := make([]speciesRow, len(set.Classes))
	for i, c := range set.Classes {
		rows[i] = speciesRow{
			taxonID:      c.TaxonID,
			name:         c.Name,
			displayName:  c.DisplayName,
			observations: c.Observations,
			directory:    c.Directory,
		}
	}
	return rows, nil
}
