// Package ms models CASA measurement-set data and defines the backend
// contract for reading it.
//
// Architecture:
//
//	Table     - Read contract (Info, DataDescriptions, SpectralWindow, Antennas, ReadChunk)
//	Chunk     - One read result: column arrays for a row window of a single DATA_DESC_ID
//	Registry  - Named backend factories, resolved from URLs like "sim:?seed=42"
//
// Rows belonging to different DATA_DESC_IDs may carry different channel
// counts, so a Chunk never spans descriptors. Backends register themselves
// via init() and are linked into binaries through pkg/backends.
package ms

import "context"

// Main-table column names, as casacore spells them.
const (
	ColData          = "DATA"
	ColModelData     = "MODEL_DATA"
	ColCorrectedData = "CORRECTED_DATA"
	ColWeight        = "WEIGHT"
	ColFlag          = "FLAG"
	ColUVW           = "UVW"
	ColAntenna1      = "ANTENNA1"
	ColAntenna2      = "ANTENNA2"
	ColTime          = "TIME"
)

// DefaultColumns is the column set returned when a ReadRequest does not name any.
var DefaultColumns = []string{
	ColTime, ColAntenna1, ColAntenna2, ColUVW,
	ColWeight, ColFlag, ColData, ColModelData,
}

// Table is the read contract every measurement-set backend implements.
type Table interface {
	// Info returns top-level metadata about the table.
	Info(ctx context.Context) (*TableInfo, error)

	// DataDescriptions returns the DATA_DESCRIPTION rows, which map
	// DATA_DESC_ID to spectral window and polarization setup.
	DataDescriptions(ctx context.Context) ([]*DataDescription, error)

	// SpectralWindow returns channel frequencies and widths for one window.
	SpectralWindow(ctx context.Context, spwID int) (*SpectralWindow, error)

	// Antennas returns the ANTENNA subtable.
	Antennas(ctx context.Context) ([]*Antenna, error)

	// ReadChunk reads a row window of a single DATA_DESC_ID.
	// A request past the last row yields an empty chunk, not an error.
	ReadChunk(ctx context.Context, req *ReadRequest) (*Chunk, error)

	// Close releases any resources held by the backend.
	Close() error
}

// ReadRequest selects rows and columns for ReadChunk.
//
// An empty Columns slice means "every default column the table has": columns
// the table lacks (typically MODEL_DATA) are silently omitted. Naming a
// column explicitly makes its absence an error with CodeColumnMissing.
type ReadRequest struct {
	DataDescID int
	Columns    []string
	StartRow   int64
	MaxRows    int // 0 = all remaining rows
}

// Wants reports whether the request selects the given column.
func (r *ReadRequest) Wants(col string) bool {
	if len(r.Columns) == 0 {
		for _, c := range DefaultColumns {
			if c == col {
				return true
			}
		}
		return false
	}
	for _, c := range r.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Explicit reports whether the column was named in the request rather than
// implied by the default set.
func (r *ReadRequest) Explicit(col string) bool {
	for _, c := range r.Columns {
		if c == col {
			return true
		}
	}
	return false
}
