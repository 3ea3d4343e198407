package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mpol-dev/visread/internal/catalog"
	"github.com/mpol-dev/visread/internal/export"
	"github.com/mpol-dev/visread/internal/ms"
)

var (
	exportOut       string
	exportFormats   []string
	exportDDIDs     []int
	exportRescale   []string
	exportRescaleDB bool
	exportAvgPols   bool
	exportMaxRows   int
	exportRunID     string
	exportCatalog   bool
)

var exportCmd = &cobra.Command{
	Use:   "export <table-url>",
	Short: "Export a table to neutral files plus a manifest",
	Long: `Export reads every requested data description and writes one file per
descriptor in each requested format (npz, asdf, parquet), then a
manifest.json describing the run. The manifest is written last, so its
presence marks a complete export.

The output directory can be pushed to an object store with
'visread push' and opened directly on any machine as bundle:<dir>.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output directory (default: export.dir from config)")
	exportCmd.Flags().StringSliceVar(&exportFormats, "format", nil, "Formats to write: npz, asdf, parquet (default: export.formats)")
	exportCmd.Flags().IntSliceVar(&exportDDIDs, "ddid", nil, "Restrict to these DATA_DESC_IDs (default: all)")
	exportCmd.Flags().StringArrayVar(&exportRescale, "rescale", nil, "Rescale weights first, spw=factor (repeatable)")
	exportCmd.Flags().BoolVar(&exportRescaleDB, "rescale-db", false, "Load rescale factors saved in the catalog database")
	exportCmd.Flags().BoolVar(&exportAvgPols, "average-pols", false, "Collapse polarizations to one weighted-average product")
	exportCmd.Flags().IntVar(&exportMaxRows, "max-rows", 0, "Rows per read; 0 takes the configured default")
	exportCmd.Flags().StringVar(&exportRunID, "run-id", "", "Run identifier (default: a fresh UUID)")
	exportCmd.Flags().BoolVar(&exportCatalog, "catalog", false, "Record the run in the catalog database")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rescale, err := parseRescaleFlags(exportRescale)
	if err != nil {
		return err
	}

	t, err := ms.Open(ctx, resolveTable(args[0]))
	if err != nil {
		return err
	}
	defer t.Close()

	info, err := t.Info(ctx)
	if err != nil {
		return err
	}

	if exportRescaleDB {
		saved, err := loadSavedRescale(cmd, info.Name, t)
		if err != nil {
			return err
		}
		// Explicit flags win over catalog entries.
		for spw, factor := range saved {
			if _, ok := rescale[spw]; !ok {
				if rescale == nil {
					rescale = map[int]float64{}
				}
				rescale[spw] = factor
			}
		}
	}

	opts := export.Options{
		Dir:             exportOut,
		Formats:         exportFormats,
		SigmaRescale:    rescale,
		AveragePols:     exportAvgPols,
		DataDescIDs:     exportDDIDs,
		MaxRowsPerChunk: exportMaxRows,
		RunID:           exportRunID,
	}
	if opts.Dir == "" {
		opts.Dir = cfg.Export.Dir
	}
	if len(opts.Formats) == 0 {
		opts.Formats = cfg.Export.Formats
	}
	if opts.MaxRowsPerChunk == 0 {
		opts.MaxRowsPerChunk = cfg.Export.MaxRowsPerChunk
	}

	var runs *catalog.RunStore
	if exportCatalog {
		if cfg.Database.URL == "" {
			return fmt.Errorf("--catalog needs database.url (VISREAD_DATABASE_URL)")
		}
		pool, err := catalog.NewPool(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		runs, err = catalog.NewRunStore(ctx, pool)
		if err != nil {
			return err
		}
		if opts.RunID == "" {
			opts.RunID = uuid.NewString()
		}
		if err := runs.Begin(ctx, opts.RunID, info.Name, info.Telescope, info.Path); err != nil {
			return err
		}
	}

	man, err := export.New(logger).Run(ctx, t, opts)
	if err != nil {
		if runs != nil {
			if ferr := runs.Fail(ctx, opts.RunID, err); ferr != nil {
				logger.Warn().Err(ferr).Msg("export: could not record failure")
			}
		}
		return err
	}
	if runs != nil {
		if err := runs.Finish(ctx, man); err != nil {
			return err
		}
	}

	fmt.Printf("run      %s\n", man.RunID)
	fmt.Printf("table    %s\n", man.Table)
	fmt.Printf("formats  %s\n", strings.Join(man.Formats, " "))
	fmt.Printf("files    %d -> %s\n", len(man.Files), opts.Dir)
	return nil
}

// loadSavedRescale pulls catalog factors for every spectral window the
// table carries.
func loadSavedRescale(cmd *cobra.Command, table string, t ms.Table) (map[int]float64, error) {
	store, err := openRescaleStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	descs, err := t.DataDescriptions(cmd.Context())
	if err != nil {
		return nil, err
	}
	spws := make([]int, 0, len(descs))
	seen := map[int]bool{}
	for _, d := range descs {
		if !seen[d.SpectralWindowID] {
			seen[d.SpectralWindowID] = true
			spws = append(spws, d.SpectralWindowID)
		}
	}
	factors, err := store.ForWindows(cmd.Context(), table, spws)
	if err != nil {
		return nil, err
	}
	for spw, factor := range factors {
		logger.Debug().Int("spw", spw).Float64("factor", factor).Msg("export: catalog rescale factor")
	}
	return factors, nil
}
