package postgres

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/0xterrybit/solana-attestation-service/storage"
	"github.com/0xterrybit/solana-attestation-service/storage/storeregistry"
)

var (
	flagDSN         string
	flagOpenTimeout time.Duration
)

func init() {
	storeregistry.MustRegister(storeregistry.Backend{
		Name:        "postgres",
		Description: "PostgreSQL account store (lib/pq, embedded migrations)",
		Usage:       storeregistry.UsageDaemon | storeregistry.UsageCLI,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagDSN, "postgres-dsn", "", "PostgreSQL connection string (for --backend=postgres)")
			fs.DurationVar(&flagOpenTimeout, "postgres-open-timeout", 10*time.Second, "Connect and migrate timeout (for --backend=postgres)")
		},
		Open: func() (storage.Store, func() error, error) {
			if flagDSN == "" {
				return nil, nil, fmt.Errorf("missing --postgres-dsn")
			}
			ctx, cancel := context.WithTimeout(context.Background(), flagOpenTimeout)
			defer cancel()
			s, err := Open(ctx, flagDSN)
			if err != nil {
				return nil, nil, err
			}
			return s, s.Close, nil
		},
	})
}
