package redisstore

import (
	"flag"
	"fmt"
	"strings"

	"github.com/0xterrybit/solana-attestation-service/storage"
	"github.com/0xterrybit/solana-attestation-service/storage/storeregistry"
)

var (
	flagAddr     string
	flagPassword string
	flagDB       int
	flagPrefix   string
)

func init() {
	storeregistry.MustRegister(storeregistry.Backend{
		Name:        "redis",
		Description: "Redis account store (WATCH/MULTI commits)",
		Usage:       storeregistry.UsageCLI | storeregistry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagAddr, "redis-addr", "", "Redis host:port (for --backend=redis)")
			fs.StringVar(&flagPassword, "redis-password", "", "Redis password (for --backend=redis)")
			fs.IntVar(&flagDB, "redis-db", 0, "Redis database number (for --backend=redis)")
			fs.StringVar(&flagPrefix, "redis-prefix", defaultPrefix, "Key prefix (for --backend=redis)")
		},
		Open: func() (storage.Store, func() error, error) {
			addr := strings.TrimSpace(flagAddr)
			if addr == "" {
				return nil, nil, fmt.Errorf("missing --redis-addr")
			}
			s, err := New(Options{Addr: addr, Password: flagPassword, DB: flagDB, Prefix: flagPrefix})
			if err != nil {
				return nil, nil, err
			}
			return s, s.Close, nil
		},
	})
}
