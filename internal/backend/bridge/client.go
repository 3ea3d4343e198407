// Package bridge proxies measurement-set reads over gRPC. A CASA-capable
// host runs the bridge server next to the data; the analysis host opens
// "bridge://host:port/name" and reads through the same ms.Table contract
// it uses for local backends.
package bridge

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/mpol-dev/visread/internal/ms"
	"github.com/mpol-dev/visread/pkg/tablepb"
)

// Table is the client side of the bridge: an ms.Table whose reads are
// served by a remote TableBridge.
type Table struct {
	conn   *grpc.ClientConn // nil when the caller owns the connection
	client tablepb.TableBridgeClient
	name   string

	// SliceRows asks the server to stream at most this many rows per
	// message. Zero accepts the server default.
	SliceRows int64

	mu    sync.Mutex
	freqs map[int][]float64 // DATA_DESC_ID -> channel frequencies
}

// Dial connects to a bridge server. The table name may be empty when the
// server hosts a single table.
func Dial(ctx context.Context, addr, table string) (*Table, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(tablepb.ContentSubtype)),
	)
	if err != nil {
		return nil, ms.WrapError(ms.CodeBackendUnavailable, true, err)
	}
	t := NewTable(conn, table)
	t.conn = conn
	return t, nil
}

// NewTable wraps an existing client connection. Close leaves the
// connection open.
func NewTable(cc grpc.ClientConnInterface, table string) *Table {
	return &Table{
		client: tablepb.NewTableBridgeClient(cc),
		name:   table,
		freqs:  make(map[int][]float64),
	}
}

func (t *Table) Info(ctx context.Context) (*ms.TableInfo, error) {
	resp, err := t.client.GetInfo(ctx, &tablepb.GetInfoRequest{Table: t.name})
	if err != nil {
		return nil, decodeStatus(err)
	}
	pb := resp.Info
	if pb == nil {
		return nil, ms.Errorf(ms.CodeReadFailed, false, "bridge: empty GetInfo response")
	}
	info := &ms.TableInfo{
		Name:      pb.Name,
		Path:      pb.Path,
		Telescope: pb.Telescope,
		Observer:  pb.Observer,
		NumRows:   pb.NumRows,
		Columns:   pb.Columns,
	}
	for _, id := range pb.DataDescIds {
		info.DataDescIDs = append(info.DataDescIDs, int(id))
	}
	return info, nil
}

func (t *Table) DataDescriptions(ctx context.Context) ([]*ms.DataDescription, error) {
	resp, err := t.client.GetDataDescriptions(ctx, &tablepb.GetDataDescriptionsRequest{Table: t.name})
	if err != nil {
		return nil, decodeStatus(err)
	}
	out := make([]*ms.DataDescription, 0, len(resp.Descriptions))
	for _, d := range resp.Descriptions {
		out = append(out, &ms.DataDescription{
			ID:               int(d.Id),
			SpectralWindowID: int(d.SpectralWindowId),
			PolarizationID:   int(d.PolarizationId),
			NumPol:           int(d.NumPol),
			NumRows:          d.NumRows,
		})
	}
	return out, nil
}

func (t *Table) SpectralWindow(ctx context.Context, spwID int) (*ms.SpectralWindow, error) {
	resp, err := t.client.GetSpectralWindow(ctx, &tablepb.GetSpectralWindowRequest{Table: t.name, SpwId: int32(spwID)})
	if err != nil {
		return nil, decodeStatus(err)
	}
	pb := resp.Window
	if pb == nil {
		return nil, ms.Errorf(ms.CodeDescriptorUnknown, false, "bridge: no spectral window %d", spwID)
	}
	return &ms.SpectralWindow{
		ID:             int(pb.Id),
		Name:           pb.Name,
		NumChan:        int(pb.NumChan),
		RefFreq:        pb.RefFreqHz,
		ChanFreqs:      pb.ChanFreqsHz,
		ChanWidths:     pb.ChanWidthsHz,
		TotalBandwidth: pb.TotalBandwidthHz,
	}, nil
}

func (t *Table) Antennas(ctx context.Context) ([]*ms.Antenna, error) {
	resp, err := t.client.GetAntennas(ctx, &tablepb.GetAntennasRequest{Table: t.name})
	if err != nil {
		return nil, decodeStatus(err)
	}
	out := make([]*ms.Antenna, 0, len(resp.Antennas))
	for _, a := range resp.Antennas {
		ant := &ms.Antenna{
			ID:           int(a.Id),
			Name:         a.Name,
			Station:      a.Station,
			DishDiameter: a.DiameterM,
		}
		copy(ant.Position[:], a.PositionM)
		out = append(out, ant)
	}
	return out, nil
}

func (t *Table) ReadChunk(ctx context.Context, req *ms.ReadRequest) (*ms.Chunk, error) {
	freqs, err := t.freqsFor(ctx, req.DataDescID)
	if err != nil {
		return nil, err
	}
	stream, err := t.client.ReadChunk(ctx, &tablepb.ReadChunkRequest{
		Table:      t.name,
		DataDescId: int32(req.DataDescID),
		Columns:    req.Columns,
		StartRow:   req.StartRow,
		MaxRows:    int64(req.MaxRows),
		SliceRows:  t.SliceRows,
	})
	if err != nil {
		return nil, decodeStatus(err)
	}

	var slices []*ms.Chunk
	for {
		sl, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, decodeStatus(err)
		}
		chunk, err := sliceToChunk(sl, freqs)
		if err != nil {
			return nil, err
		}
		slices = append(slices, chunk)
	}
	if len(slices) == 0 {
		return &ms.Chunk{DataDescID: req.DataDescID, StartRow: req.StartRow, Freqs: freqs}, nil
	}
	return ms.MergeChunks(slices)
}

func (t *Table) Close() error {
	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}

func (t *Table) freqsFor(ctx context.Context, ddid int) ([]float64, error) {
	t.mu.Lock()
	f, ok := t.freqs[ddid]
	t.mu.Unlock()
	if ok {
		return f, nil
	}
	descs, err := t.DataDescriptions(ctx)
	if err != nil {
		return nil, err
	}
	spwID := -1
	for _, d := range descs {
		if d.ID == ddid {
			spwID = d.SpectralWindowID
			break
		}
	}
	if spwID < 0 {
		return nil, ms.Errorf(ms.CodeDescriptorUnknown, false, "bridge: no DATA_DESC_ID %d", ddid)
	}
	window, err := t.SpectralWindow(ctx, spwID)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.freqs[ddid] = window.ChanFreqs
	t.mu.Unlock()
	return window.ChanFreqs, nil
}

func sliceToChunk(sl *tablepb.ChunkSlice, freqs []float64) (*ms.Chunk, error) {
	npol, nchan, nrow := int(sl.NumPol), int(sl.NumChan), int(sl.NumRows)
	out := &ms.Chunk{
		DataDescID: int(sl.DataDescId),
		StartRow:   sl.StartRow,
		NRow:       nrow,
		Freqs:      freqs,
	}
	var err error
	if out.Time, err = sl.Time.Values(); err != nil {
		return nil, ms.WrapError(ms.CodeReadFailed, false, err)
	}
	if out.Antenna1, err = sl.Antenna1.Values(); err != nil {
		return nil, ms.WrapError(ms.CodeReadFailed, false, err)
	}
	if out.Antenna2, err = sl.Antenna2.Values(); err != nil {
		return nil, ms.WrapError(ms.CodeReadFailed, false, err)
	}
	if out.U, err = sl.U.Values(); err != nil {
		return nil, ms.WrapError(ms.CodeReadFailed, false, err)
	}
	if out.V, err = sl.V.Values(); err != nil {
		return nil, ms.WrapError(ms.CodeReadFailed, false, err)
	}
	if out.W, err = sl.W.Values(); err != nil {
		return nil, ms.WrapError(ms.CodeReadFailed, false, err)
	}
	if sl.Weight != nil {
		vals, err := sl.Weight.Values()
		if err != nil {
			return nil, ms.WrapError(ms.CodeReadFailed, false, err)
		}
		if out.Weight, err = ms.MatrixFrom(npol, nrow, vals); err != nil {
			return nil, err
		}
	}
	if sl.Flag != nil {
		vals, err := sl.Flag.Values()
		if err != nil {
			return nil, ms.WrapError(ms.CodeReadFailed, false, err)
		}
		if out.Flag, err = ms.CubeFrom(npol, nchan, nrow, vals); err != nil {
			return nil, err
		}
	}
	if sl.Data != nil {
		vals, err := sl.Data.Values()
		if err != nil {
			return nil, ms.WrapError(ms.CodeReadFailed, false, err)
		}
		if out.Data, err = ms.CubeFrom(npol, nchan, nrow, vals); err != nil {
			return nil, err
		}
	}
	if sl.Model != nil {
		vals, err := sl.Model.Values()
		if err != nil {
			return nil, ms.WrapError(ms.CodeReadFailed, false, err)
		}
		if out.Model, err = ms.CubeFrom(npol, nchan, nrow, vals); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// decodeStatus rebuilds a coded ms error from a bridge status. Servers
// embed the code as an "E_..." prefix in the status message; anything
// else maps by grpc code.
func decodeStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return ms.WrapError(ms.CodeReadFailed, false, err)
	}
	msg := st.Message()
	if strings.HasPrefix(msg, "E_") {
		code, rest, _ := strings.Cut(msg, ":")
		code = strings.TrimSpace(code)
		if !strings.Contains(code, " ") {
			retryable := st.Code() == codes.Unavailable
			rest = strings.TrimSpace(rest)
			if rest == "" {
				return ms.WrapError(code, retryable, nil)
			}
			return ms.Errorf(code, retryable, "%s", rest)
		}
	}
	switch st.Code() {
	case codes.NotFound:
		return ms.WrapError(ms.CodeTableNotFound, false, err)
	case codes.InvalidArgument:
		return ms.WrapError(ms.CodeInvalidConfig, false, err)
	case codes.Unavailable:
		return ms.WrapError(ms.CodeBackendUnavailable, true, err)
	default:
		return ms.WrapError(ms.CodeReadFailed, false, err)
	}
}
