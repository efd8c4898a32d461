package localfs

import (
	"flag"
	"fmt"

	"github.com/0xterrybit/solana-attestation-service/storage"
	"github.com/0xterrybit/solana-attestation-service/storage/storeregistry"
)

var (
	flagLocalDir string
)

func init() {
	storeregistry.MustRegister(storeregistry.Backend{
		Name:        "localfs",
		Description: "Local filesystem account store (directory)",
		Usage:       storeregistry.UsageCLI | storeregistry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagLocalDir, "localfs-dir", "", "Account store directory (for --backend=localfs)")
		},
		Open: func() (storage.Store, func() error, error) {
			if flagLocalDir == "" {
				return nil, nil, fmt.Errorf("missing --localfs-dir")
			}
			s, err := New(flagLocalDir)
			return s, nil, err
		},
	})
}
