package grpcstore

import (
	"context"
	"errors"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/storage"
)

// Client implements storage.Store over an AccountStore gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client AccountStoreClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

type DialOptions struct {
	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int

	// Extra is appended to the default dial options.
	Extra []grpc.DialOption
}

// Dial creates a client for target. The connection is established lazily on
// the first RPC.
func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}
	dialOpts = append(dialOpts, opts.Extra...)

	cc, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewAccountStoreClient(cc)}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Get(ctx context.Context, addr address.Address) (storage.Account, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.Get(ctx, wrapperspb.Bytes(addr[:]))
	if err != nil {
		return storage.Account{}, mapRPC(err)
	}
	return storage.DecodeAccount(reply.GetValue())
}

func (c *Client) Has(ctx context.Context, addr address.Address) (bool, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.Has(ctx, wrapperspb.Bytes(addr[:]))
	if err != nil {
		return false, mapRPC(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) Commit(ctx context.Context, batch storage.Batch) error {
	if err := batch.Validate(); err != nil {
		return err
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	_, err := c.client.Commit(ctx, wrapperspb.Bytes(storage.EncodeBatch(batch)))
	return mapRPC(err)
}

func (c *Client) Scan(ctx context.Context, req storage.ScanRequest) ([]storage.KeyedAccount, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	stream, err := c.client.Scan(ctx, wrapperspb.Bytes(storage.EncodeScanRequest(req)))
	if err != nil {
		return nil, mapRPC(err)
	}
	out := make([]storage.KeyedAccount, 0)
	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, mapRPC(err)
		}
		k, err := storage.DecodeKeyed(msg.GetValue())
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}
