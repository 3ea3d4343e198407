package main

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/mpol-dev/visread/internal/catalog"
	"github.com/mpol-dev/visread/internal/ms"
	"github.com/mpol-dev/visread/internal/scatter"
)

var (
	scatterDDIDs       []int
	scatterKeepFlagged bool
	scatterRescale     []string
	scatterHist        bool
	scatterBins        int
	scatterMaxRows     int
	scatterSave        bool
	scatterRunID       string
)

var scatterCmd = &cobra.Command{
	Use:   "scatter <table-url>",
	Short: "Compare visibility scatter against WEIGHT and suggest rescale factors",
	Long: `Scatter forms (data - model) residuals, normalizes them by the sigma
implied by the WEIGHT column and reports the standard deviation per
polarization. Perfectly calibrated weights give 1.0; anything else is
the factor the weights are off by.

The table must carry MODEL_DATA. In CASA, populate it with
tclean(..., savemodel="modelcolumn") before serving the table.

Factors passed with --rescale (or saved earlier) are applied first, so
a correct factor drives the reported scatter back to 1.0.`,
	Args: cobra.ExactArgs(1),
	RunE: runScatter,
}

func init() {
	scatterCmd.Flags().IntSliceVar(&scatterDDIDs, "ddid", nil, "Restrict to these DATA_DESC_IDs (default: all)")
	scatterCmd.Flags().BoolVar(&scatterKeepFlagged, "keep-flagged", false, "Include flagged visibilities in the statistics")
	scatterCmd.Flags().StringArrayVar(&scatterRescale, "rescale", nil, "Apply a known factor, spw=factor (repeatable)")
	scatterCmd.Flags().BoolVar(&scatterHist, "hist", false, "Print residual histograms against the unit Gaussian")
	scatterCmd.Flags().IntVar(&scatterBins, "bins", 0, "Histogram bins (default 40)")
	scatterCmd.Flags().IntVar(&scatterMaxRows, "max-rows", 0, "Rows per read; 0 reads each descriptor whole")
	scatterCmd.Flags().BoolVar(&scatterSave, "save", false, "Record the suggested factors in the catalog database")
	scatterCmd.Flags().StringVar(&scatterRunID, "run-id", "", "Export run to attribute saved factors to")
}

func runScatter(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rescale, err := parseRescaleFlags(scatterRescale)
	if err != nil {
		return err
	}

	t, err := ms.Open(ctx, resolveTable(args[0]))
	if err != nil {
		return err
	}
	defer t.Close()

	results, err := scatter.Analyze(ctx, t, scatter.AnalyzeOptions{
		DataDescIDs:     scatterDDIDs,
		SigmaRescale:    rescale,
		ApplyFlags:      !scatterKeepFlagged,
		Bins:            scatterBins,
		MaxRowsPerChunk: scatterMaxRows,
	})
	if ms.IsCode(err, ms.CodeColumnMissing) {
		return fmt.Errorf("%w\nscatter needs MODEL_DATA; fill it in CASA with tclean(..., savemodel=\"modelcolumn\")", err)
	}
	if err != nil {
		return err
	}

	for _, res := range results {
		fmt.Printf("ddid %d (spw %d, %d rows)\n", res.DataDescID, res.SpectralWindowID, res.Rows)
		for _, pol := range res.Pols {
			fmt.Printf("  pol %d  n=%-9d sigma_re=%.4f sigma_im=%.4f  suggested rescale %.4f\n",
				pol.Pol, pol.N, pol.SigmaRe, pol.SigmaIm, pol.Suggested)
			if scatterHist {
				fmt.Println("  real part:")
				fmt.Println(pol.HistRe.RenderText(60))
				fmt.Println("  imaginary part:")
				fmt.Println(pol.HistIm.RenderText(60))
			}
		}
	}

	if !scatterSave {
		return nil
	}
	store, err := openRescaleStore()
	if err != nil {
		return err
	}
	defer store.Close()
	info, err := t.Info(ctx)
	if err != nil {
		return err
	}
	for _, res := range results {
		factor, nvis := combinedSuggestion(res.Pols)
		if nvis == 0 {
			continue
		}
		f := catalog.RescaleFactor{
			Table:  info.Name,
			SpwID:  res.SpectralWindowID,
			Factor: factor,
			NVis:   int64(nvis),
			RunID:  scatterRunID,
		}
		if err := store.Put(ctx, f); err != nil {
			return err
		}
		logger.Info().
			Str("table", info.Name).
			Int("spw", res.SpectralWindowID).
			Float64("factor", factor).
			Msg("scatter: saved rescale factor")
	}
	return nil
}

// combinedSuggestion pools the per-polarization factors into one per-window
// value, weighting each polarization by its sample count.
func combinedSuggestion(pols []scatter.PolScatter) (float64, int) {
	var sum float64
	var n int
	for _, p := range pols {
		sum += float64(p.N) * p.Suggested * p.Suggested
		n += p.N
	}
	if n == 0 {
		return 0, 0
	}
	return math.Sqrt(sum / float64(n)), n
}

func openRescaleStore() (*catalog.RescaleStore, error) {
	if cfg.Database.URL == "" {
		return catalog.NewRescaleStoreFromEnv()
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	return catalog.NewRescaleStore(db)
}
