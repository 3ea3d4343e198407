// Code generated manually for bootstrap. Replace with protoc-generated code for production.
package tablepb

import (
	context "context"

	grpc "google.golang.org/grpc"
	codes "google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
)

type HealthRequest struct{}

type HealthResponse struct {
	Status string   `protobuf:"bytes,1,opt,name=status,proto3" json:"status,omitempty"`
	Tables []string `protobuf:"bytes,2,rep,name=tables,proto3" json:"tables,omitempty"`
}

type ListTablesRequest struct{}

type ListTablesResponse struct {
	Names []string `protobuf:"bytes,1,rep,name=names,proto3" json:"names,omitempty"`
}

// TableInfo mirrors the top-level metadata of one served table.
type TableInfo struct {
	Name        string   `protobuf:"bytes,1,opt,name=name,proto3" json:"name,omitempty"`
	Path        string   `protobuf:"bytes,2,opt,name=path,proto3" json:"path,omitempty"`
	Telescope   string   `protobuf:"bytes,3,opt,name=telescope,proto3" json:"telescope,omitempty"`
	Observer    string   `protobuf:"bytes,4,opt,name=observer,proto3" json:"observer,omitempty"`
	NumRows     int64    `protobuf:"varint,5,opt,name=num_rows,json=numRows,proto3" json:"num_rows,omitempty"`
	DataDescIds []int32  `protobuf:"varint,6,rep,packed,name=data_desc_ids,json=dataDescIds,proto3" json:"data_desc_ids,omitempty"`
	Columns     []string `protobuf:"bytes,7,rep,name=columns,proto3" json:"columns,omitempty"`
}

type DataDescription struct {
	Id               int32 `protobuf:"varint,1,opt,name=id,proto3" json:"id,omitempty"`
	SpectralWindowId int32 `protobuf:"varint,2,opt,name=spectral_window_id,json=spectralWindowId,proto3" json:"spectral_window_id,omitempty"`
	PolarizationId   int32 `protobuf:"varint,3,opt,name=polarization_id,json=polarizationId,proto3" json:"polarization_id,omitempty"`
	NumPol           int32 `protobuf:"varint,4,opt,name=num_pol,json=numPol,proto3" json:"num_pol,omitempty"`
	NumRows          int64 `protobuf:"varint,5,opt,name=num_rows,json=numRows,proto3" json:"num_rows,omitempty"`
}

type SpectralWindow struct {
	Id               int32     `protobuf:"varint,1,opt,name=id,proto3" json:"id,omitempty"`
	Name             string    `protobuf:"bytes,2,opt,name=name,proto3" json:"name,omitempty"`
	NumChan          int32     `protobuf:"varint,3,opt,name=num_chan,json=numChan,proto3" json:"num_chan,omitempty"`
	RefFreqHz        float64   `protobuf:"fixed64,4,opt,name=ref_freq_hz,json=refFreqHz,proto3" json:"ref_freq_hz,omitempty"`
	ChanFreqsHz      []float64 `protobuf:"fixed64,5,rep,packed,name=chan_freqs_hz,json=chanFreqsHz,proto3" json:"chan_freqs_hz,omitempty"`
	ChanWidthsHz     []float64 `protobuf:"fixed64,6,rep,packed,name=chan_widths_hz,json=chanWidthsHz,proto3" json:"chan_widths_hz,omitempty"`
	TotalBandwidthHz float64   `protobuf:"fixed64,7,opt,name=total_bandwidth_hz,json=totalBandwidthHz,proto3" json:"total_bandwidth_hz,omitempty"`
}

type Antenna struct {
	Id        int32     `protobuf:"varint,1,opt,name=id,proto3" json:"id,omitempty"`
	Name      string    `protobuf:"bytes,2,opt,name=name,proto3" json:"name,omitempty"`
	Station   string    `protobuf:"bytes,3,opt,name=station,proto3" json:"station,omitempty"`
	DiameterM float64   `protobuf:"fixed64,4,opt,name=diameter_m,json=diameterM,proto3" json:"diameter_m,omitempty"`
	PositionM []float64 `protobuf:"fixed64,5,rep,packed,name=position_m,json=positionM,proto3" json:"position_m,omitempty"`
}

type GetInfoRequest struct {
	Table string `protobuf:"bytes,1,opt,name=table,proto3" json:"table,omitempty"`
}
type GetInfoResponse struct {
	Info *TableInfo `protobuf:"bytes,1,opt,name=info,proto3" json:"info,omitempty"`
}

type GetDataDescriptionsRequest struct {
	Table string `protobuf:"bytes,1,opt,name=table,proto3" json:"table,omitempty"`
}
type GetDataDescriptionsResponse struct {
	Descriptions []*DataDescription `protobuf:"bytes,1,rep,name=descriptions,proto3" json:"descriptions,omitempty"`
}

type GetSpectralWindowRequest struct {
	Table string `protobuf:"bytes,1,opt,name=table,proto3" json:"table,omitempty"`
	SpwId int32  `protobuf:"varint,2,opt,name=spw_id,json=spwId,proto3" json:"spw_id,omitempty"`
}
type GetSpectralWindowResponse struct {
	Window *SpectralWindow `protobuf:"bytes,1,opt,name=window,proto3" json:"window,omitempty"`
}

type GetAntennasRequest struct {
	Table string `protobuf:"bytes,1,opt,name=table,proto3" json:"table,omitempty"`
}
type GetAntennasResponse struct {
	Antennas []*Antenna `protobuf:"bytes,1,rep,name=antennas,proto3" json:"antennas,omitempty"`
}

type ReadChunkRequest struct {
	Table      string   `protobuf:"bytes,1,opt,name=table,proto3" json:"table,omitempty"`
	DataDescId int32    `protobuf:"varint,2,opt,name=data_desc_id,json=dataDescId,proto3" json:"data_desc_id,omitempty"`
	Columns    []string `protobuf:"bytes,3,rep,name=columns,proto3" json:"columns,omitempty"`
	StartRow   int64    `protobuf:"varint,4,opt,name=start_row,json=startRow,proto3" json:"start_row,omitempty"`
	MaxRows    int64    `protobuf:"varint,5,opt,name=max_rows,json=maxRows,proto3" json:"max_rows,omitempty"`
	SliceRows  int64    `protobuf:"varint,6,opt,name=slice_rows,json=sliceRows,proto3" json:"slice_rows,omitempty"`
}

// ChunkSlice carries one streamed window of rows for a single
// DATA_DESC_ID. Column arrays are nil when the column was not requested
// or is absent from the served table.
type ChunkSlice struct {
	DataDescId int32 `protobuf:"varint,1,opt,name=data_desc_id,json=dataDescId,proto3" json:"data_desc_id,omitempty"`
	StartRow   int64 `protobuf:"varint,2,opt,name=start_row,json=startRow,proto3" json:"start_row,omitempty"`
	NumRows    int64 `protobuf:"varint,3,opt,name=num_rows,json=numRows,proto3" json:"num_rows,omitempty"`
	NumPol     int32 `protobuf:"varint,4,opt,name=num_pol,json=numPol,proto3" json:"num_pol,omitempty"`
	NumChan    int32 `protobuf:"varint,5,opt,name=num_chan,json=numChan,proto3" json:"num_chan,omitempty"`

	Time     *Float64Array    `protobuf:"bytes,6,opt,name=time,proto3" json:"time,omitempty"`
	Antenna1 *Int32Array      `protobuf:"bytes,7,opt,name=antenna1,proto3" json:"antenna1,omitempty"`
	Antenna2 *Int32Array      `protobuf:"bytes,8,opt,name=antenna2,proto3" json:"antenna2,omitempty"`
	U        *Float64Array    `protobuf:"bytes,9,opt,name=u,proto3" json:"u,omitempty"`
	V        *Float64Array    `protobuf:"bytes,10,opt,name=v,proto3" json:"v,omitempty"`
	W        *Float64Array    `protobuf:"bytes,11,opt,name=w,proto3" json:"w,omitempty"`
	Weight   *Float64Array    `protobuf:"bytes,12,opt,name=weight,proto3" json:"weight,omitempty"`
	Flag     *BoolArray       `protobuf:"bytes,13,opt,name=flag,proto3" json:"flag,omitempty"`
	Data     *Complex128Array `protobuf:"bytes,14,opt,name=data,proto3" json:"data,omitempty"`
	Model    *Complex128Array `protobuf:"bytes,15,opt,name=model,proto3" json:"model,omitempty"`
}

// Client API
type TableBridgeClient interface {
	Health(ctx context.Context, in *HealthRequest, opts ...grpc.CallOption) (*HealthResponse, error)
	ListTables(ctx context.Context, in *ListTablesRequest, opts ...grpc.CallOption) (*ListTablesResponse, error)
	GetInfo(ctx context.Context, in *GetInfoRequest, opts ...grpc.CallOption) (*GetInfoResponse, error)
	GetDataDescriptions(ctx context.Context, in *GetDataDescriptionsRequest, opts ...grpc.CallOption) (*GetDataDescriptionsResponse, error)
	GetSpectralWindow(ctx context.Context, in *GetSpectralWindowRequest, opts ...grpc.CallOption) (*GetSpectralWindowResponse, error)
	GetAntennas(ctx context.Context, in *GetAntennasRequest, opts ...grpc.CallOption) (*GetAntennasResponse, error)
	ReadChunk(ctx context.Context, in *ReadChunkRequest, opts ...grpc.CallOption) (TableBridge_ReadChunkClient, error)
}

type tableBridgeClient struct {
	cc grpc.ClientConnInterface
}

func NewTableBridgeClient(cc grpc.ClientConnInterface) TableBridgeClient {
	return &tableBridgeClient{cc}
}

func (c *tableBridgeClient) Health(ctx context.Context, in *HealthRequest, opts ...grpc.CallOption) (*HealthResponse, error) {
	out := new(HealthResponse)
	err := c.cc.Invoke(ctx, "/visread.TableBridge/Health", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *tableBridgeClient) ListTables(ctx context.Context, in *ListTablesRequest, opts ...grpc.CallOption) (*ListTablesResponse, error) {
	out := new(ListTablesResponse)
	err := c.cc.Invoke(ctx, "/visread.TableBridge/ListTables", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *tableBridgeClient) GetInfo(ctx context.Context, in *GetInfoRequest, opts ...grpc.CallOption) (*GetInfoResponse, error) {
	out := new(GetInfoResponse)
	err := c.cc.Invoke(ctx, "/visread.TableBridge/GetInfo", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *tableBridgeClient) GetDataDescriptions(ctx context.Context, in *GetDataDescriptionsRequest, opts ...grpc.CallOption) (*GetDataDescriptionsResponse, error) {
	out := new(GetDataDescriptionsResponse)
	err := c.cc.Invoke(ctx, "/visread.TableBridge/GetDataDescriptions", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *tableBridgeClient) GetSpectralWindow(ctx context.Context, in *GetSpectralWindowRequest, opts ...grpc.CallOption) (*GetSpectralWindowResponse, error) {
	out := new(GetSpectralWindowResponse)
	err := c.cc.Invoke(ctx, "/visread.TableBridge/GetSpectralWindow", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *tableBridgeClient) GetAntennas(ctx context.Context, in *GetAntennasRequest, opts ...grpc.CallOption) (*GetAntennasResponse, error) {
	out := new(GetAntennasResponse)
	err := c.cc.Invoke(ctx, "/visread.TableBridge/GetAntennas", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *tableBridgeClient) ReadChunk(ctx context.Context, in *ReadChunkRequest, opts ...grpc.CallOption) (TableBridge_ReadChunkClient, error) {
	stream, err := c.cc.NewStream(ctx, &_TableBridge_serviceDesc.Streams[0], "/visread.TableBridge/ReadChunk", opts...)
	if err != nil {
		return nil, err
	}
	x := &tableBridgeReadChunkClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type TableBridge_ReadChunkClient interface {
	Recv() (*ChunkSlice, error)
	grpc.ClientStream
}

type tableBridgeReadChunkClient struct {
	grpc.ClientStream
}

func (x *tableBridgeReadChunkClient) Recv() (*ChunkSlice, error) {
	m := new(ChunkSlice)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Server API
type TableBridgeServer interface {
	Health(context.Context, *HealthRequest) (*HealthResponse, error)
	ListTables(context.Context, *ListTablesRequest) (*ListTablesResponse, error)
	GetInfo(context.Context, *GetInfoRequest) (*GetInfoResponse, error)
	GetDataDescriptions(context.Context, *GetDataDescriptionsRequest) (*GetDataDescriptionsResponse, error)
	GetSpectralWindow(context.Context, *GetSpectralWindowRequest) (*GetSpectralWindowResponse, error)
	GetAntennas(context.Context, *GetAntennasRequest) (*GetAntennasResponse, error)
	ReadChunk(*ReadChunkRequest, TableBridge_ReadChunkServer) error
}

type UnimplementedTableBridgeServer struct{}

func (*UnimplementedTableBridgeServer) Health(context.Context, *HealthRequest) (*HealthResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Health not implemented")
}
func (*UnimplementedTableBridgeServer) ListTables(context.Context, *ListTablesRequest) (*ListTablesResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListTables not implemented")
}
func (*UnimplementedTableBridgeServer) GetInfo(context.Context, *GetInfoRequest) (*GetInfoResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetInfo not implemented")
}
func (*UnimplementedTableBridgeServer) GetDataDescriptions(context.Context, *GetDataDescriptionsRequest) (*GetDataDescriptionsResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetDataDescriptions not implemented")
}
func (*UnimplementedTableBridgeServer) GetSpectralWindow(context.Context, *GetSpectralWindowRequest) (*GetSpectralWindowResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetSpectralWindow not implemented")
}
func (*UnimplementedTableBridgeServer) GetAntennas(context.Context, *GetAntennasRequest) (*GetAntennasResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetAntennas not implemented")
}
func (*UnimplementedTableBridgeServer) ReadChunk(*ReadChunkRequest, TableBridge_ReadChunkServer) error {
	return status.Errorf(codes.Unimplemented, "method ReadChunk not implemented")
}

func RegisterTableBridgeServer(s *grpc.Server, srv TableBridgeServer) {
	s.RegisterService(&_TableBridge_serviceDesc, srv)
}

func _TableBridge_Health_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(HealthRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TableBridgeServer).Health(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/visread.TableBridge/Health",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TableBridgeServer).Health(ctx, req.(*HealthRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TableBridge_ListTables_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListTablesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TableBridgeServer).ListTables(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/visread.TableBridge/ListTables",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TableBridgeServer).ListTables(ctx, req.(*ListTablesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TableBridge_GetInfo_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetInfoRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TableBridgeServer).GetInfo(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/visread.TableBridge/GetInfo",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TableBridgeServer).GetInfo(ctx, req.(*GetInfoRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TableBridge_GetDataDescriptions_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetDataDescriptionsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TableBridgeServer).GetDataDescriptions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/visread.TableBridge/GetDataDescriptions",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TableBridgeServer).GetDataDescriptions(ctx, req.(*GetDataDescriptionsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TableBridge_GetSpectralWindow_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetSpectralWindowRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TableBridgeServer).GetSpectralWindow(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/visread.TableBridge/GetSpectralWindow",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TableBridgeServer).GetSpectralWindow(ctx, req.(*GetSpectralWindowRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TableBridge_GetAntennas_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetAntennasRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TableBridgeServer).GetAntennas(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/visread.TableBridge/GetAntennas",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TableBridgeServer).GetAntennas(ctx, req.(*GetAntennasRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TableBridge_ReadChunk_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(ReadChunkRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(TableBridgeServer).ReadChunk(m, &tableBridgeReadChunkServer{stream})
}

type TableBridge_ReadChunkServer interface {
	Send(*ChunkSlice) error
	grpc.ServerStream
}

type tableBridgeReadChunkServer struct {
	grpc.ServerStream
}

func (x *tableBridgeReadChunkServer) Send(m *ChunkSlice) error {
	return x.ServerStream.SendMsg(m)
}

var _TableBridge_serviceDesc = grpc.ServiceDesc{
	ServiceName: "visread.TableBridge",
	HandlerType: (*TableBridgeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Health", Handler: _TableBridge_Health_Handler},
		{MethodName: "ListTables", Handler: _TableBridge_ListTables_Handler},
		{MethodName: "GetInfo", Handler: _TableBridge_GetInfo_Handler},
		{MethodName: "GetDataDescriptions", Handler: _TableBridge_GetDataDescriptions_Handler},
		{MethodName: "GetSpectralWindow", Handler: _TableBridge_GetSpectralWindow_Handler},
		{MethodName: "GetAntennas", Handler: _TableBridge_GetAntennas_Handler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "ReadChunk",
			Handler:       _TableBridge_ReadChunk_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "table.proto",
}
