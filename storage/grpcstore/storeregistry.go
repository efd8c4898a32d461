package grpcstore

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/0xterrybit/solana-attestation-service/storage"
	"github.com/0xterrybit/solana-attestation-service/storage/storeregistry"
)

var (
	flagTarget      string
	flagTimeout     time.Duration
	flagMaxMsgBytes int
)

func init() {
	storeregistry.MustRegister(storeregistry.Backend{
		Name:        "grpc",
		Description: "gRPC account store client (talks to sas-ledgerd)",
		Usage:       storeregistry.UsageCLI,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagTarget, "grpc-target", "", "gRPC target host:port (for --backend=grpc)")
			fs.DurationVar(&flagTimeout, "grpc-timeout", 0, "Per-RPC timeout (for --backend=grpc)")
			fs.IntVar(&flagMaxMsgBytes, "grpc-max-msg-bytes", 0, "Max gRPC message size in bytes (send+recv); 0 uses grpc defaults")
		},
		Open: func() (storage.Store, func() error, error) {
			target := strings.TrimSpace(flagTarget)
			if target == "" {
				return nil, nil, fmt.Errorf("missing --grpc-target")
			}
			client, err := Dial(target, DialOptions{MaxMsgBytes: flagMaxMsgBytes})
			if err != nil {
				return nil, nil, err
			}
			client.Timeout = flagTimeout
			return client, client.Close, nil
		},
	})
}
