package main

import (
	"context"
	"github.com/siegeai/javro/registry"
	"github.com/siegeai/javro/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"log/slog"
	"net/http"
	"time"
)

func newServeCommand() *cobra.Command {
	var addr, namespace, registryURL string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve conversions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), addr, namespace, registryURL)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&addr, "addr", getEnv("JAVRO_ADDR", ":8080"), "listen address")
	flags.StringVar(&namespace, "namespace", getEnv("JAVRO_NAMESPACE", ""), "namespace used when a request names none")
	flags.StringVar(&registryURL, "registry-url", getEnv("JAVRO_REGISTRY_URL", ""), "schema registry used for requests that name a subject")
	return cmd
}

func runServe(ctx context.Context, addr, namespace, registryURL string) error {
	opts := server.Options{Namespace: namespace, Logger: slog.Default()}
	if registryURL != "" {
		client, err := registry.NewClient(registryURL)
		if err != nil {
			return err
		}
		opts.Registry = client
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           server.New(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		slog.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}
