package bridge

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mpol-dev/visread/internal/ms"
	"github.com/mpol-dev/visread/pkg/tablepb"
)

// DefaultSliceRows bounds the rows packed into one streamed message when
// the request does not say otherwise.
const DefaultSliceRows = 8192

// Server exposes named ms.Tables over the TableBridge service. It runs
// on the CASA-capable host next to the measurement sets.
type Server struct {
	tablepb.UnimplementedTableBridgeServer

	log       zerolog.Logger
	sliceRows int64

	mu     sync.RWMutex
	tables map[string]ms.Table
}

// NewServer creates an empty bridge server.
func NewServer(log zerolog.Logger) *Server {
	return &Server{
		log:       log,
		sliceRows: DefaultSliceRows,
		tables:    make(map[string]ms.Table),
	}
}

// SetSliceRows changes the default rows-per-message bound.
func (s *Server) SetSliceRows(n int64) {
	if n > 0 {
		s.sliceRows = n
	}
}

// Add serves a table under the given name, replacing any previous entry.
func (s *Server) Add(name string, t ms.Table) {
	s.mu.Lock()
	s.tables[name] = t
	s.mu.Unlock()
	s.log.Info().Str("table", name).Msg("bridge: serving table")
}

// Names returns the served table names, sorted.
func (s *Server) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CloseAll closes every served table.
func (s *Server) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, t := range s.tables {
		if err := t.Close(); err != nil {
			s.log.Warn().Err(err).Str("table", name).Msg("bridge: close failed")
		}
		delete(s.tables, name)
	}
}

// lookup resolves a table by name. An empty name resolves when exactly
// one table is served.
func (s *Server) lookup(name string) (ms.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if name == "" {
		if len(s.tables) == 1 {
			for _, t := range s.tables {
				return t, nil
			}
		}
		return nil, status.Errorf(codes.InvalidArgument,
			"%s: table name required, server hosts %d tables", ms.CodeTableNotFound, len(s.tables))
	}
	t, ok := s.tables[name]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "%s: no table %q", ms.CodeTableNotFound, name)
	}
	return t, nil
}

func (s *Server) Health(ctx context.Context, _ *tablepb.HealthRequest) (*tablepb.HealthResponse, error) {
	return &tablepb.HealthResponse{Status: "ok", Tables: s.Names()}, nil
}

func (s *Server) ListTables(ctx context.Context, _ *tablepb.ListTablesRequest) (*tablepb.ListTablesResponse, error) {
	return &tablepb.ListTablesResponse{Names: s.Names()}, nil
}

func (s *Server) GetInfo(ctx context.Context, req *tablepb.GetInfoRequest) (*tablepb.GetInfoResponse, error) {
	t, err := s.lookup(req.Table)
	if err != nil {
		return nil, err
	}
	info, err := t.Info(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	pb := &tablepb.TableInfo{
		Name:      info.Name,
		Path:      info.Path,
		Telescope: info.Telescope,
		Observer:  info.Observer,
		NumRows:   info.NumRows,
		Columns:   info.Columns,
	}
	for _, id := range info.DataDescIDs {
		pb.DataDescIds = append(pb.DataDescIds, int32(id))
	}
	return &tablepb.GetInfoResponse{Info: pb}, nil
}

func (s *Server) GetDataDescriptions(ctx context.Context, req *tablepb.GetDataDescriptionsRequest) (*tablepb.GetDataDescriptionsResponse, error) {
	t, err := s.lookup(req.Table)
	if err != nil {
		return nil, err
	}
	descs, err := t.DataDescriptions(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &tablepb.GetDataDescriptionsResponse{}
	for _, d := range descs {
		resp.Descriptions = append(resp.Descriptions, &tablepb.DataDescription{
			Id:               int32(d.ID),
			SpectralWindowId: int32(d.SpectralWindowID),
			PolarizationId:   int32(d.PolarizationID),
			NumPol:           int32(d.NumPol),
			NumRows:          d.NumRows,
		})
	}
	return resp, nil
}

func (s *Server) GetSpectralWindow(ctx context.Context, req *tablepb.GetSpectralWindowRequest) (*tablepb.GetSpectralWindowResponse, error) {
	t, err := s.lookup(req.Table)
	if err != nil {
		return nil, err
	}
	window, err := t.SpectralWindow(ctx, int(req.SpwId))
	if err != nil {
		return nil, toStatus(err)
	}
	return &tablepb.GetSpectralWindowResponse{Window: &tablepb.SpectralWindow{
		Id:               int32(window.ID),
		Name:             window.Name,
		NumChan:          int32(window.NumChan),
		RefFreqHz:        window.RefFreq,
		ChanFreqsHz:      window.ChanFreqs,
		ChanWidthsHz:     window.ChanWidths,
		TotalBandwidthHz: window.TotalBandwidth,
	}}, nil
}

func (s *Server) GetAntennas(ctx context.Context, req *tablepb.GetAntennasRequest) (*tablepb.GetAntennasResponse, error) {
	t, err := s.lookup(req.Table)
	if err != nil {
		return nil, err
	}
	ants, err := t.Antennas(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &tablepb.GetAntennasResponse{}
	for _, a := range ants {
		resp.Antennas = append(resp.Antennas, &tablepb.Antenna{
			Id:        int32(a.ID),
			Name:      a.Name,
			Station:   a.Station,
			DiameterM: a.DishDiameter,
			PositionM: a.Position[:],
		})
	}
	return resp, nil
}

func (s *Server) ReadChunk(req *tablepb.ReadChunkRequest, stream tablepb.TableBridge_ReadChunkServer) error {
	t, err := s.lookup(req.Table)
	if err != nil {
		return err
	}
	ctx := stream.Context()

	sliceRows := req.SliceRows
	if sliceRows <= 0 {
		sliceRows = s.sliceRows
	}
	remaining := req.MaxRows
	start := req.StartRow
	sent := 0
	for {
		maxRows := sliceRows
		if remaining > 0 && remaining < maxRows {
			maxRows = remaining
		}
		chunk, err := t.ReadChunk(ctx, &ms.ReadRequest{
			DataDescID: int(req.DataDescId),
			Columns:    req.Columns,
			StartRow:   start,
			MaxRows:    int(maxRows),
		})
		if err != nil {
			return toStatus(err)
		}
		if chunk.NRow == 0 {
			break
		}
		if err := stream.Send(chunkToSlice(chunk)); err != nil {
			return err
		}
		sent++
		start += int64(chunk.NRow)
		if remaining > 0 {
			remaining -= int64(chunk.NRow)
			if remaining <= 0 {
				break
			}
		}
	}
	s.log.Debug().
		Str("table", req.Table).
		Int32("data_desc_id", req.DataDescId).
		Int64("rows", start-req.StartRow).
		Int("slices", sent).
		Msg("bridge: streamed chunk")
	return nil
}

func chunkToSlice(c *ms.Chunk) *tablepb.ChunkSlice {
	sl := &tablepb.ChunkSlice{
		DataDescId: int32(c.DataDescID),
		StartRow:   c.StartRow,
		NumRows:    int64(c.NRow),
		NumPol:     int32(c.NumPol()),
		NumChan:    int32(c.NumChan()),
	}
	if len(c.Time) > 0 {
		sl.Time = tablepb.PackFloat64s(c.Time)
	}
	if len(c.Antenna1) > 0 {
		sl.Antenna1 = tablepb.PackInt32s(c.Antenna1)
	}
	if len(c.Antenna2) > 0 {
		sl.Antenna2 = tablepb.PackInt32s(c.Antenna2)
	}
	if len(c.U) > 0 {
		sl.U = tablepb.PackFloat64s(c.U)
		sl.V = tablepb.PackFloat64s(c.V)
		sl.W = tablepb.PackFloat64s(c.W)
	}
	if !c.Weight.Empty() {
		sl.Weight = tablepb.PackFloat64s(c.Weight.Data, int64(c.Weight.NPol), int64(c.Weight.NRow))
	}
	if !c.Flag.Empty() {
		sl.Flag = tablepb.PackBools(c.Flag.Data, int64(c.Flag.NPol), int64(c.Flag.NChan), int64(c.Flag.NRow))
	}
	if !c.Data.Empty() {
		sl.Data = tablepb.PackComplex128s(c.Data.Data, int64(c.Data.NPol), int64(c.Data.NChan), int64(c.Data.NRow))
	}
	if !c.Model.Empty() {
		sl.Model = tablepb.PackComplex128s(c.Model.Data, int64(c.Model.NPol), int64(c.Model.NChan), int64(c.Model.NRow))
	}
	return sl
}

// toStatus folds a backend error into a grpc status whose message starts
// with the ms error code, so clients can rebuild it.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	var c codes.Code
	switch ms.CodeOf(err) {
	case ms.CodeTableNotFound, ms.CodeDescriptorUnknown, ms.CodeColumnMissing:
		c = codes.NotFound
	case ms.CodeInvalidConfig:
		c = codes.InvalidArgument
	case ms.CodeClosed, ms.CodeBackendUnavailable:
		c = codes.Unavailable
	default:
		c = codes.Internal
	}
	return status.Error(c, err.Error())
}
