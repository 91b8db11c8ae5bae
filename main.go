package main

import (
	"context"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	_ = godotenv.Load()
	level := getEnv("JAVRO_LOG", "info")

	err := setupLogging(level)
	if err != nil {
		slog.Error("could not init logging", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = newRootCommand().ExecuteContext(ctx)
	cancel()
	if err != nil {
		slog.Error("javro failed", "err", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "javro",
		Short:         "Compile JSON Schema documents into Avro schemas",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newConvertCommand(), newRegisterCommand(), newServeCommand())
	return root
}

func setupLogging(level string) error {
	var logLevel slog.Level
	err := logLevel.UnmarshalText([]byte(level))
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(h))
	return err
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
