package main

import (
	"bytes"
	"flag"
	"fmt"
	"github.com/goccy/go-json"
	"github.com/siegeai/javro/_stress/fake"
	"golang.org/x/sync/errgroup"
	"io"
	"log/slog"
	"net/http"
	"time"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "javro server to post schemas to")
	workers := flag.Int("workers", 1, "concurrent callers")
	n := flag.Int("n", 1, "requests per caller, 0 runs forever")
	flag.Parse()

	var eg errgroup.Group
	for i := 0; i < *workers; i++ {
		eg.Go(func() error { return caller(*addr, *n) })
	}
	if err := eg.Wait(); err != nil {
		slog.Error("stress run failed", "err", err)
	}
}

func caller(addr string, n int) error {
	buf := &bytes.Buffer{}
	for i := 0; n == 0 || i < n; i++ {
		buf.Reset()
		if err := call(addr, buf); err != nil {
			return err
		}
	}
	return nil
}

func call(addr string, buf *bytes.Buffer) error {
	obj := fake.Schema()
	if err := json.NewEncoder(buf).Encode(&obj); err != nil {
		return err
	}

	url := fmt.Sprintf("%s/v1/convert?namespace=stress.%s", addr, fake.String(8))

	req, err := http.NewRequest(http.MethodPost, url, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status code %d: %s", url, res.StatusCode, body)
	}
	slog.Info("completed request", "url", url, "size", len(body), "elapsed", time.Since(start))

	time.Sleep(10 * time.Millisecond)
	return nil
}
