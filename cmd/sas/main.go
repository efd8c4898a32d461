package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/instruction"
	"github.com/0xterrybit/solana-attestation-service/internal/config"
	"github.com/0xterrybit/solana-attestation-service/keys"
	"github.com/0xterrybit/solana-attestation-service/ledger"
	"github.com/0xterrybit/solana-attestation-service/program"
	"github.com/0xterrybit/solana-attestation-service/storage"
	"github.com/0xterrybit/solana-attestation-service/storage/storeregistry"

	_ "github.com/0xterrybit/solana-attestation-service/storage/grpcstore"
	_ "github.com/0xterrybit/solana-attestation-service/storage/localfs"
	_ "github.com/0xterrybit/solana-attestation-service/storage/memstore"
	_ "github.com/0xterrybit/solana-attestation-service/storage/postgres"
	_ "github.com/0xterrybit/solana-attestation-service/storage/redisstore"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// app carries what every subcommand shares. The store is opened lazily so
// key and address commands work without one.
type app struct {
	env       string
	backend   string
	programID string
	keysDir   string
	logLevel  string

	cfg     *config.Config
	logger  *slog.Logger
	flags   *pflag.FlagSet
	store   storage.Store
	closeFn func() error
	out     io.Writer
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	viper.Reset()
	a := &app{out: out}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)
	err := root.ExecuteContext(context.Background())
	if a.closeFn != nil {
		_ = a.closeFn()
	}
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return 1
	}
	return 0
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "sas",
		Short: "Attestation registry client",
		Long: `sas creates credentials, schemas, attestations and requests and
queries them back. Transactions execute locally against the configured
account store; point --backend=grpc at sas-ledgerd to share one ledger.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&a.env, "env", "e", "dev", "Environment to use (dev, test, prod)")
	pf.StringVar(&a.backend, "backend", "", "Account store backend (overrides SAS_STORE_BACKEND)")
	pf.StringVar(&a.programID, "program-id", "", "Program id (overrides SAS_PROGRAM_ID)")
	pf.StringVar(&a.keysDir, "keys-dir", "", "Key store directory (overrides SAS_KEYS_DIR)")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level (overrides SAS_LOG_LEVEL)")

	gofs := flag.NewFlagSet("backends", flag.ContinueOnError)
	storeregistry.RegisterFlags(gofs, storeregistry.UsageCLI)
	pf.AddGoFlagSet(gofs)
	a.flags = pf

	root.AddCommand(
		a.addressCommand(),
		a.keyCommand(),
		a.airdropCommand(),
		a.credentialCommand(),
		a.schemaCommand(),
		a.claimCommand(instruction.CreateAttestation),
		a.claimCommand(instruction.CreateRequest),
		a.queryCommand(),
		a.backendsCommand(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := config.InitConfig(a.env); err != nil {
		return err
	}
	if a.backend != "" {
		viper.Set("SAS_STORE_BACKEND", a.backend)
	}
	if a.programID != "" {
		viper.Set("SAS_PROGRAM_ID", a.programID)
	}
	if a.keysDir != "" {
		viper.Set("SAS_KEYS_DIR", a.keysDir)
	}
	if a.logLevel != "" {
		viper.Set("SAS_LOG_LEVEL", a.logLevel)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := config.NewLogger(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger
	return nil
}

// openStore opens the configured backend. Backend flags given on the
// command line override the environment.
func (a *app) openStore() (storage.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	backend := a.cfg.Store.Backend
	names, err := storeregistry.FlagNames(backend)
	if err != nil {
		return nil, err
	}
	opts := make(map[string]string, len(a.cfg.Store.Options))
	for k, v := range a.cfg.Store.Options {
		opts[k] = v
	}
	for _, n := range names {
		if f := a.flags.Lookup(n); f != nil && f.Changed {
			opts[n] = f.Value.String()
		}
	}
	s, closeFn, err := storeregistry.OpenWithConfig(backend, storeregistry.UsageCLI, opts)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("store opened", "backend", backend)
	a.store, a.closeFn = s, closeFn
	return s, nil
}

func (a *app) runtime() (*ledger.Runtime, error) {
	s, err := a.openStore()
	if err != nil {
		return nil, err
	}
	rt := ledger.NewRuntime(s, ledger.WithRent(a.cfg.Rent), ledger.WithLogger(a.logger))
	rt.Register(a.cfg.ProgramID, program.New())
	return rt, nil
}

func (a *app) keyStore() (*keys.KeyStore, error) {
	return keys.CreateKeyStore(a.cfg.KeysDir)
}

func (a *app) builder() instruction.Builder { return instruction.NewBuilder(a.cfg.ProgramID) }

// signerFlags selects the keypair that pays for and signs a transaction.
type signerFlags struct {
	seedHex string
	name    string
	role    string
	keyFile string
}

func (s *signerFlags) add(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.seedHex, "seed-hex", "", "Ed25519 seed as 64 hex chars")
	cmd.Flags().StringVar(&s.name, "signer", "", "Stored key name")
	cmd.Flags().StringVar(&s.role, "signer-role", "", "Derived role of --signer")
	cmd.Flags().StringVar(&s.keyFile, "key-file", "", "Path to a hex seed file")
}

func (a *app) loadSigner(s signerFlags) (*keys.Keypair, error) {
	ks, err := a.keyStore()
	if err != nil {
		return nil, err
	}
	return ks.LoadKeypair(s.seedHex, s.name, s.role, s.keyFile)
}

// submit signs ixs with signer as payer and executes them.
func (a *app) submit(ctx context.Context, signer *keys.Keypair, ixs ...ledger.Instruction) (*ledger.Receipt, error) {
	rt, err := a.runtime()
	if err != nil {
		return nil, err
	}
	msg := ledger.Message{
		Payer:        signer.Address(),
		Nonce:        uint64(time.Now().UnixNano()),
		Instructions: ixs,
	}
	tx, err := ledger.NewTransaction(msg, signer)
	if err != nil {
		return nil, err
	}
	return rt.Execute(ctx, tx)
}

func (a *app) printReceipt(r *ledger.Receipt, created address.Address) {
	fmt.Fprintf(a.out, "Address: %s\n", created)
	fmt.Fprintf(a.out, "Transaction: %s\n", r.ID)
	for _, w := range r.Writes {
		fmt.Fprintf(a.out, "  %s %s (%d bytes, %d lamports)\n", w.Op, w.Address, w.Size, w.Lamports)
	}
}

func parseAddress(flagName, s string) (address.Address, error) {
	if s == "" {
		return address.Zero, fmt.Errorf("missing --%s", flagName)
	}
	a, err := address.Parse(s)
	if err != nil {
		return address.Zero, fmt.Errorf("invalid --%s: %w", flagName, err)
	}
	return a, nil
}

func (a *app) backendsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List account store backends linked into this binary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, b := range storeregistry.List(storeregistry.UsageCLI) {
				if b.Description == "" {
					fmt.Fprintln(a.out, b.Name)
					continue
				}
				fmt.Fprintf(a.out, "%s\t%s\n", b.Name, b.Description)
			}
			return nil
		},
	}
}
