package process

import "github.com/mpol-dev/visread/internal/ms"

// ApplyFlags flattens a cube to the samples whose flag is false. The channel
// structure is lost; the result is suitable for scatter statistics, not for
// imaging.
func ApplyFlags[T any](c ms.Cube[T], flags ms.Cube[bool]) ([]T, error) {
	if c.NPol != flags.NPol || c.NChan != flags.NChan || c.NRow != flags.NRow {
		return nil, ms.Errorf(ms.CodeShapeMismatch, false,
			"flag shape [%d,%d,%d] does not match data shape [%d,%d,%d]",
			flags.NPol, flags.NChan, flags.NRow, c.NPol, c.NChan, c.NRow)
	}

	out := make([]T, 0, c.Len())
	for i, v := range c.Data {
		if !flags.Data[i] {
			out = append(out, v)
		}
	}
	return out, nil
}

// CountFlagged returns the number of flagged samples in a flag cube.
func CountFlagged(flags ms.Cube[bool]) int {
	n := 0
	for _, f := range flags.Data {
		if f {
			n++
		}
	}
	return n
}
