// Command smoketest runs the end-to-end checks against a running server.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/rohits-web03/radiologix/internal/logging"
	"github.com/rohits-web03/radiologix/internal/smoke"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "server base URL")
	timeout := flag.Duration("timeout", 60*time.Second, "overall deadline")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger := logging.New("development", *level, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	client := &http.Client{Timeout: 30 * time.Second}
	if err := smoke.NewRunner(*baseURL, client, logger).Run(ctx); err != nil {
		logger.Error("smoke test failed", "url", *baseURL, "err", err)
		os.Exit(1)
	}
	logger.Info("all smoke steps passed", "url", *baseURL)
}
