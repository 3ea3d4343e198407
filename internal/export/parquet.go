package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	writerfile "github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/mpol-dev/visread/internal/ms"
)

// visibilitySchema builds the long-format parquet schema: one record per
// (pol, chan, row) sample.
func visibilitySchema(withModel bool) string {
	type field struct {
		Tag string `json:"Tag"`
	}
	tag := func(name, typ string) field {
		return field{Tag: fmt.Sprintf("name=%s, type=%s, repetitiontype=OPTIONAL", name, typ)}
	}
	fields := []field{
		tag("data_desc_id", "INT64"),
		tag("spw_id", "INT64"),
		tag("row", "INT64"),
		tag("chan", "INT64"),
		tag("pol", "INT64"),
		tag("time", "DOUBLE"),
		tag("antenna1", "INT64"),
		tag("antenna2", "INT64"),
		tag("u_m", "DOUBLE"),
		tag("v_m", "DOUBLE"),
		tag("w_m", "DOUBLE"),
		tag("uu_klambda", "DOUBLE"),
		tag("vv_klambda", "DOUBLE"),
		tag("freq_hz", "DOUBLE"),
		tag("weight", "DOUBLE"),
		tag("flag", "BOOLEAN"),
		tag("data_re", "DOUBLE"),
		tag("data_im", "DOUBLE"),
	}
	if withModel {
		fields = append(fields, tag("model_re", "DOUBLE"), tag("model_im", "DOUBLE"))
	}
	out := map[string]any{
		"Tag":    "name=parquet_go_root, repetitiontype=REQUIRED",
		"Fields": fields,
	}
	b, _ := json.Marshal(out)
	return string(b)
}

func encodeParquet(desc *ms.DataDescription, chunk *ms.Chunk, p *products) ([]byte, error) {
	buf := &bytes.Buffer{}
	pfw := writerfile.NewWriterFile(buf)
	pw, err := writer.NewJSONWriter(visibilitySchema(!p.model.Empty()), pfw, 4)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	nchan, nrow := chunk.NumChan(), chunk.NRow
	for pol := 0; pol < p.data.NPol; pol++ {
		for ch := 0; ch < nchan; ch++ {
			for r := 0; r < nrow; r++ {
				row := map[string]any{
					"data_desc_id": int64(desc.ID),
					"spw_id":       int64(desc.SpectralWindowID),
					"row":          chunk.StartRow + int64(r),
					"chan":         int64(ch),
					"pol":          int64(pol),
					"time":         chunk.Time[r],
					"antenna1":     int64(chunk.Antenna1[r]),
					"antenna2":     int64(chunk.Antenna2[r]),
					"u_m":          chunk.U[r],
					"v_m":          chunk.V[r],
					"w_m":          chunk.W[r],
					"uu_klambda":   p.uu.At(ch, r),
					"vv_klambda":   p.vv.At(ch, r),
					"freq_hz":      chunk.Freqs[ch],
					"weight":       p.weight.At(pol, r),
					"flag":         p.flag.At(pol, ch, r),
					"data_re":      real(p.data.At(pol, ch, r)),
					"data_im":      imag(p.data.At(pol, ch, r)),
				}
				if !p.model.Empty() {
					row["model_re"] = real(p.model.At(pol, ch, r))
					row["model_im"] = imag(p.model.At(pol, ch, r))
				}
				line, err := json.Marshal(row)
				if err != nil {
					_ = pw.WriteStop()
					_ = pfw.Close()
					return nil, err
				}
				if err := pw.Write(string(line)); err != nil {
					_ = pw.WriteStop()
					_ = pfw.Close()
					return nil, err
				}
			}
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = pfw.Close()
		return nil, err
	}
	if err := pfw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
