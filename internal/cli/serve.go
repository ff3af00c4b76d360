package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/BrandonDHaskell/tagbook/internal/grpcapi"
	"github.com/BrandonDHaskell/tagbook/internal/httpapi"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/service"
)

type serveOptions struct {
	HTTPAddr string
	GRPCAddr string
	SeedFile string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tap HTTP API, gRPC health and expiry sweeper",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.HTTPAddr, "http-addr", "", "HTTP listen address (default $TAGBOOK_HTTP_ADDR)")
	cmd.Flags().StringVar(&opts.GRPCAddr, "grpc-addr", "", "gRPC health listen address (default $TAGBOOK_GRPC_ADDR)")
	cmd.Flags().StringVar(&opts.SeedFile, "seed-file", "", "YAML seed applied at startup (default $TAGBOOK_SEED_FILE)")

	return cmd
}

func runServe(ctx context.Context, rootOpts *RootOptions, opts *serveOptions) error {
	cfg := rootOpts.config()
	if opts.HTTPAddr != "" {
		cfg.HTTPAddr = opts.HTTPAddr
	}
	if opts.GRPCAddr != "" {
		cfg.GRPCAddr = opts.GRPCAddr
	}
	if opts.SeedFile != "" {
		cfg.SeedFile = opts.SeedFile
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.SeedFile != "" {
		seed, err := loadSeedFile(cfg.SeedFile)
		if err != nil {
			return err
		}
		if _, err := applySeed(ctx, a, seed, false); err != nil {
			return err
		}
	}

	sweeper := service.NewExpirySweeper(a.tagging, cfg.SweepInterval, log)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:     log,
		Addr:       cfg.HTTPAddr,
		Tagging:    a.tagging,
		Audit:      a.audit,
		Settings:   a.settings,
		Identities: a.identities,
		Readers:    a.readers,
		Ping:       a.ping(),
	})

	var health *grpcapi.Server
	if cfg.GRPCAddr != "" {
		health = grpcapi.NewServer(grpcapi.Dependencies{
			Logger: log,
			Addr:   cfg.GRPCAddr,
			Ping:   a.ping(),
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", cfg.HTTPAddr, "store", cfg.Store)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if health != nil {
		g.Go(func() error {
			if err := health.Start(gctx); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		if health != nil {
			health.Stop()
		}
		return nil
	})
	return g.Wait()
}
