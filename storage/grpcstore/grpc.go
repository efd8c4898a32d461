package grpcstore

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// AccountStoreServer is the server API for the AccountStore gRPC service.
//
// Messages are protobuf well-known wrapper types carrying the storage wire
// encoding, so this package does not require a protoc/codegen toolchain.
//
// Proto definition: store.proto.
type AccountStoreServer interface {
	Get(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Has(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error)
	Commit(context.Context, *wrapperspb.BytesValue) (*emptypb.Empty, error)
	Scan(*wrapperspb.BytesValue, AccountStore_ScanServer) error
}

// UnimplementedAccountStoreServer can be embedded to have forward compatible implementations.
type UnimplementedAccountStoreServer struct{}

func (UnimplementedAccountStoreServer) Get(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Get not implemented")
}
func (UnimplementedAccountStoreServer) Has(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Has not implemented")
}
func (UnimplementedAccountStoreServer) Commit(context.Context, *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Commit not implemented")
}
func (UnimplementedAccountStoreServer) Scan(*wrapperspb.BytesValue, AccountStore_ScanServer) error {
	return status.Error(codes.Unimplemented, "method Scan not implemented")
}

// RegisterAccountStoreServer registers the AccountStore service on a gRPC server.
func RegisterAccountStoreServer(s grpc.ServiceRegistrar, srv AccountStoreServer) {
	s.RegisterService(&AccountStore_ServiceDesc, srv)
}

type AccountStore_ScanServer interface {
	Send(*wrapperspb.BytesValue) error
	grpc.ServerStream
}

type accountStoreScanServer struct{ grpc.ServerStream }

func (x *accountStoreScanServer) Send(m *wrapperspb.BytesValue) error {
	return x.ServerStream.SendMsg(m)
}

// AccountStoreClient is the client API for the AccountStore gRPC service.
type AccountStoreClient interface {
	Get(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Has(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
	Commit(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Scan(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (AccountStore_ScanClient, error)
}

type AccountStore_ScanClient interface {
	Recv() (*wrapperspb.BytesValue, error)
	grpc.ClientStream
}

type accountStoreScanClient struct{ grpc.ClientStream }

func (x *accountStoreScanClient) Recv() (*wrapperspb.BytesValue, error) {
	m := new(wrapperspb.BytesValue)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

const serviceName = "sas.storage.v1.AccountStore"

type accountStoreClient struct{ cc grpc.ClientConnInterface }

func NewAccountStoreClient(cc grpc.ClientConnInterface) AccountStoreClient {
	return &accountStoreClient{cc: cc}
}

func (c *accountStoreClient) Get(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Get", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *accountStoreClient) Has(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Has", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *accountStoreClient) Commit(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Commit", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *accountStoreClient) Scan(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (AccountStore_ScanClient, error) {
	stream, err := c.cc.NewStream(ctx, &AccountStore_ServiceDesc.Streams[0], "/"+serviceName+"/Scan", opts...)
	if err != nil {
		return nil, err
	}
	x := &accountStoreScanClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func _AccountStore_Get_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AccountStoreServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Get"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AccountStoreServer).Get(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _AccountStore_Has_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AccountStoreServer).Has(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Has"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AccountStoreServer).Has(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _AccountStore_Commit_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AccountStoreServer).Commit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Commit"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AccountStoreServer).Commit(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _AccountStore_Scan_Handler(srv interface{}, stream grpc.ServerStream) error {
	in := new(wrapperspb.BytesValue)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(AccountStoreServer).Scan(in, &accountStoreScanServer{stream})
}

// AccountStore_ServiceDesc is the grpc.ServiceDesc for AccountStore service.
var AccountStore_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*AccountStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Get", Handler: _AccountStore_Get_Handler},
		{MethodName: "Has", Handler: _AccountStore_Has_Handler},
		{MethodName: "Commit", Handler: _AccountStore_Commit_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Scan", Handler: _AccountStore_Scan_Handler, ServerStreams: true},
	},
	Metadata: "store.proto",
}
