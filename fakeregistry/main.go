package main

import (
	"flag"
	"fmt"
	"github.com/siegeai/javro/registry/registrytest"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	host := flag.String("h", "", "the host to listen on")
	port := flag.String("p", "8081", "the port to listen on")
	seed := flag.String("seed", "", "directory of .avsc files registered as <file name>-value on startup")
	gzip := flag.Bool("gzip", false, "gzip responses")
	flag.Parse()

	reg := registrytest.NewRegistry()
	if *seed != "" {
		if err := populate(reg, *seed); err != nil {
			return err
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	opts := []registrytest.Option{registrytest.WithLogger(logger)}
	if *gzip {
		opts = append(opts, registrytest.WithGzip())
	}

	addr := fmt.Sprintf("%s:%s", *host, *port)
	log.Println("Listening at", addr)

	return http.ListenAndServe(addr, registrytest.NewHandler(reg, opts...))
}

func populate(reg *registrytest.Registry, dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.avsc"))
	if err != nil {
		return err
	}
	for _, file := range files {
		bs, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		subject := strings.TrimSuffix(filepath.Base(file), ".avsc") + "-value"
		id, version, err := reg.Register(subject, string(bs))
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		log.Println("Registered", subject, "version", version, "id", id)
	}
	return nil
}
