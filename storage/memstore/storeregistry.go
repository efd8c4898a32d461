package memstore

import (
	"flag"

	"github.com/0xterrybit/solana-attestation-service/storage"
	"github.com/0xterrybit/solana-attestation-service/storage/storeregistry"
)

func init() {
	storeregistry.MustRegister(storeregistry.Backend{
		Name:          "memory",
		Description:   "In-process account store (lost on exit)",
		Usage:         storeregistry.UsageCLI | storeregistry.UsageDaemon,
		RegisterFlags: func(*flag.FlagSet) {},
		Open: func() (storage.Store, func() error, error) {
			return New(), nil, nil
		},
	})
}
