package grpcstore

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/storage"
)

// Server exposes a storage.Store over the AccountStore gRPC service.
type Server struct {
	UnimplementedAccountStoreServer
	Store storage.Store
}

func (s *Server) Get(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	addr, err := address.FromBytes(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	a, err := s.Store.Get(ctx, addr)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(storage.EncodeAccount(a)), nil
}

func (s *Server) Has(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BoolValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	addr, err := address.FromBytes(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	ok, err := s.Store.Has(ctx, addr)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bool(ok), nil
}

func (s *Server) Commit(ctx context.Context, in *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	batch, err := storage.DecodeBatch(in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	if err := s.Store.Commit(ctx, batch); err != nil {
		return nil, mapErr(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) Scan(in *wrapperspb.BytesValue, stream AccountStore_ScanServer) error {
	if s == nil || s.Store == nil {
		return status.Error(codes.FailedPrecondition, "missing store")
	}
	req, err := storage.DecodeScanRequest(in.GetValue())
	if err != nil {
		return mapErr(err)
	}
	accts, err := s.Store.Scan(stream.Context(), req)
	if err != nil {
		return mapErr(err)
	}
	for _, k := range accts {
		if err := stream.Send(wrapperspb.Bytes(storage.EncodeKeyed(k))); err != nil {
			return err
		}
	}
	return nil
}
