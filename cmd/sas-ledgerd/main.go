// Command sas-ledgerd shares one account store between clients. It serves
// the store over gRPC for `sas --backend=grpc`, and the read-only JSON API
// plus Prometheus metrics over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/viper"
	"google.golang.org/grpc"

	"github.com/0xterrybit/solana-attestation-service/api"
	"github.com/0xterrybit/solana-attestation-service/internal/config"
	"github.com/0xterrybit/solana-attestation-service/internal/metrics"
	"github.com/0xterrybit/solana-attestation-service/storage"
	"github.com/0xterrybit/solana-attestation-service/storage/grpcstore"
	"github.com/0xterrybit/solana-attestation-service/storage/storeregistry"

	_ "github.com/0xterrybit/solana-attestation-service/storage/localfs"
	_ "github.com/0xterrybit/solana-attestation-service/storage/memstore"
	_ "github.com/0xterrybit/solana-attestation-service/storage/postgres"
	_ "github.com/0xterrybit/solana-attestation-service/storage/redisstore"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("sas-ledgerd", flag.ContinueOnError)
	fs.SetOutput(errOut)
	env := fs.String("env", "dev", "Environment to use (dev, test, prod)")
	backend := fs.String("backend", "", "Account store backend (overrides SAS_STORE_BACKEND)")
	grpcListen := fs.String("grpc-listen", "", "gRPC listen address (overrides SAS_GRPC_LISTEN)")
	httpListen := fs.String("http-listen", "", "HTTP listen address (overrides SAS_HTTP_LISTEN)")
	listBackends := fs.Bool("list-backends", false, "List supported backends and exit")

	storeregistry.RegisterFlags(fs, storeregistry.UsageDaemon)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *listBackends {
		for _, b := range storeregistry.List(storeregistry.UsageDaemon) {
			if b.Description == "" {
				_, _ = fmt.Fprintf(out, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
		}
		return 0
	}

	viper.Reset()
	if err := config.InitConfig(*env); err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	if *backend != "" {
		viper.Set("SAS_STORE_BACKEND", *backend)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	if *grpcListen != "" {
		cfg.Server.GRPCListen = *grpcListen
	}
	if *httpListen != "" {
		cfg.Server.HTTPListen = *httpListen
	}
	logger, err := config.NewLogger(errOut, cfg.Log)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}

	// Flags given on the command line win over the environment.
	names, err := storeregistry.FlagNames(cfg.Store.Backend)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	opts := cfg.Store.Options
	fs.Visit(func(f *flag.Flag) {
		if slices.Contains(names, f.Name) {
			opts[f.Name] = f.Value.String()
		}
	})
	store, closeFn, err := storeregistry.OpenWithConfig(cfg.Store.Backend, storeregistry.UsageDaemon, opts)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	if closeFn != nil {
		defer closeFn()
	}

	grpcLis, err := net.Listen("tcp", cfg.Server.GRPCListen)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	httpLis, err := net.Listen("tcp", cfg.Server.HTTPListen)
	if err != nil {
		grpcLis.Close()
		fmt.Fprintln(errOut, err)
		return 1
	}

	d := &daemon{store: store, cfg: cfg, logger: logger}
	logger.Info("sas-ledgerd listening",
		"grpc", grpcLis.Addr().String(),
		"http", httpLis.Addr().String(),
		"backend", cfg.Store.String(),
		"program", cfg.ProgramID,
	)
	if err := d.serve(ctx, grpcLis, httpLis); err != nil {
		logger.Error("serve failed", "error", err)
		return 1
	}
	return 0
}

type daemon struct {
	store  storage.Store
	cfg    *config.Config
	logger *slog.Logger
}

// serve runs both listeners until ctx is done or either server fails, then
// shuts both down.
func (d *daemon) serve(ctx context.Context, grpcLis, httpLis net.Listener) error {
	m := metrics.New()
	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(m.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(m.StreamServerInterceptor()),
	)
	grpcstore.RegisterAccountStoreServer(gs, &grpcstore.Server{Store: d.store})

	r := chi.NewRouter()
	r.Handle("/metrics", m.Handler())
	r.Mount("/", api.New(d.store, d.cfg.ProgramID, d.logger).Routes())
	hs := &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 2)
	go func() { errc <- gs.Serve(grpcLis) }()
	go func() {
		if err := hs.Serve(httpLis); !errors.Is(err, http.ErrServerClosed) {
			errc <- err
			return
		}
		errc <- nil
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		d.logger.Info("shutting down")
	case serveErr = <-errc:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = err
	}
	stopped := make(chan struct{})
	go func() {
		gs.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		gs.Stop()
	}
	return serveErr
}
