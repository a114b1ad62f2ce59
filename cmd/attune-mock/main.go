// Command attune-mock serves the mock Attune platform on a local port.
// Point ATTUNE_BASE_URL at it to run examples and manual tests offline.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/attune-ai/attune-go/internal/mockapi"
)

func main() {
	addr := flag.String("addr", ":8642", "listen address")
	latency := flag.Duration("latency", 0, "artificial latency added to every request")
	verbose := flag.Bool("v", false, "log every request")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if *verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}

	srv := mockapi.New(mockapi.Config{
		Latency: *latency,
		Logger:  logger,
	})
	httpServer := &http.Server{
		Addr:    *addr,
		Handler: srv.Router(),
	}

	go func() {
		log.Printf("mock attune platform listening on %s", *addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}
	log.Printf("shutdown complete")
}
