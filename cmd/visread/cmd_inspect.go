package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mpol-dev/visread/internal/ms"
)

var inspectAntennas bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <table-url>",
	Short: "Print table metadata: spectral windows, columns, antennas",
	Long: `Inspect opens a table and prints what is in it without reading any
visibility rows: the data descriptions, their spectral windows and
channel grids, the available columns and the antenna layout.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectAntennas, "antennas", false, "List every antenna instead of just the count")
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	t, err := ms.Open(ctx, resolveTable(args[0]))
	if err != nil {
		return err
	}
	defer t.Close()

	info, err := t.Info(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("table      %s\n", info.Name)
	if info.Path != "" && info.Path != info.Name {
		fmt.Printf("path       %s\n", info.Path)
	}
	if info.Telescope != "" {
		fmt.Printf("telescope  %s\n", info.Telescope)
	}
	if info.Observer != "" {
		fmt.Printf("observer   %s\n", info.Observer)
	}
	fmt.Printf("rows       %d\n", info.NumRows)
	fmt.Printf("columns    %s\n", strings.Join(info.Columns, " "))

	descs, err := t.DataDescriptions(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\n%-6s %-5s %-5s %-10s %-6s %s\n", "DDID", "SPW", "POLS", "ROWS", "NCHAN", "FREQUENCY")
	for _, d := range descs {
		spw, err := t.SpectralWindow(ctx, d.SpectralWindowID)
		if err != nil {
			return err
		}
		fmt.Printf("%-6d %-5d %-5d %-10d %-6d %s\n",
			d.ID, d.SpectralWindowID, d.NumPol, d.NumRows, spw.NumChan, freqRange(spw.ChanFreqs))
	}

	ants, err := t.Antennas(ctx)
	if err != nil {
		return err
	}
	if !inspectAntennas {
		fmt.Printf("\nantennas   %d (use --antennas to list)\n", len(ants))
		return nil
	}
	fmt.Printf("\n%-4s %-8s %-10s %s\n", "ID", "NAME", "STATION", "DIAMETER")
	sort.Slice(ants, func(i, j int) bool { return ants[i].ID < ants[j].ID })
	for _, a := range ants {
		fmt.Printf("%-4d %-8s %-10s %.1f m\n", a.ID, a.Name, a.Station, a.DishDiameter)
	}
	return nil
}

func freqRange(freqs []float64) string {
	if len(freqs) == 0 {
		return "-"
	}
	lo, hi := freqs[0], freqs[len(freqs)-1]
	if lo > hi {
		lo, hi = hi, lo
	}
	return fmt.Sprintf("%.4f-%.4f GHz", lo/1e9, hi/1e9)
}
