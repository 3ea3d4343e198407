package ms

// TableInfo holds top-level measurement-set metadata.
type TableInfo struct {
	Name        string
	Path        string
	Telescope   string
	Observer    string
	NumRows     int64
	DataDescIDs []int
	Columns     []string
}

// HasColumn reports whether the main table carries the named column.
func (i *TableInfo) HasColumn(col string) bool {
	for _, c := range i.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// DataDescription maps a DATA_DESC_ID to its spectral window and
// polarization setup, mirroring the DATA_DESCRIPTION subtable.
type DataDescription struct {
	ID               int
	SpectralWindowID int
	PolarizationID   int
	NumPol           int
	NumRows          int64
}

// SpectralWindow mirrors one row of the SPECTRAL_WINDOW subtable.
type SpectralWindow struct {
	ID             int
	Name           string
	NumChan        int
	RefFreq        float64   // Hz
	ChanFreqs      []float64 // Hz, len NumChan
	ChanWidths     []float64 // Hz, len NumChan
	TotalBandwidth float64   // Hz
}

// Antenna mirrors one row of the ANTENNA subtable.
type Antenna struct {
	ID           int
	Name         string
	Station      string
	DishDiameter float64    // meters
	Position     [3]float64 // local east/north/up, meters
}

// Chunk is one ReadChunk result: parallel column arrays for NRow rows of a
// single DATA_DESC_ID. Unrequested columns are left empty.
type Chunk struct {
	DataDescID int
	StartRow   int64
	NRow       int

	Freqs []float64 // channel frequencies, Hz, len nchan

	Time     []float64 // seconds, MJD epoch
	Antenna1 []int32
	Antenna2 []int32
	U, V, W  []float64 // meters

	Weight Matrix[float64]    // [npol, nrow]
	Flag   Cube[bool]         // [npol, nchan, nrow]
	Data   Cube[complex128]   // [npol, nchan, nrow]
	Model  Cube[complex128]   // [npol, nchan, nrow], empty if absent
}

// NumChan returns the channel count of the chunk's descriptor.
func (c *Chunk) NumChan() int { return len(c.Freqs) }

// NumPol returns the polarization count, derived from whichever
// polarized column is present.
func (c *Chunk) NumPol() int {
	switch {
	case !c.Data.Empty():
		return c.Data.NPol
	case !c.Flag.Empty():
		return c.Flag.NPol
	case !c.Weight.Empty():
		return c.Weight.NPol
	default:
		return 0
	}
}

// HasModel reports whether MODEL_DATA was read into the chunk.
func (c *Chunk) HasModel() bool { return !c.Model.Empty() }
