package main

import (
    "context"
    "fmt"
    "log/slog"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/prometheus/client_golang/prometheus/promhttp"
    "github.com/spf13/cobra"

    "supplygw/internal/api"
    "supplygw/internal/metrics"
)

var serveListen string

func newServeCmd() *cobra.Command {
    cmd := &cobra.Command{
        Use:   "serve",
        Short: "Start the HTTP API server",
        Example: `  supplygw serve
  supplygw serve --listen 127.0.0.1:9000`,
        RunE: serveRun,
    }

    cmd.Flags().StringVar(&serveListen, "listen", "", "address to listen on (host:port, overrides config port)")

    return cmd
}

func serveRun(cmd *cobra.Command, args []string) error {
    srvDeps, err := api.NewServer(globalCfg, logger)
    if err != nil {
        return fmt.Errorf("init server: %w", err)
    }

    metrics.RegisterDefault()

    mux := srvDeps.Routes()
    mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

    addr := serveListen
    if addr == "" {
        addr = fmt.Sprintf(":%d", globalCfg.Port)
    }

    srv := &http.Server{
        Addr:              addr,
        Handler:           logMiddleware(logger, mux),
        ReadHeaderTimeout: 5 * time.Second,
    }

    errChan := make(chan error, 1)
    go func() {
        logger.Info("API listening", "addr", addr)
        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            errChan <- err
        }
    }()

    sigChan := make(chan os.Signal, 1)
    signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

    select {
    case err := <-errChan:
        return fmt.Errorf("server error: %w", err)
    case sig := <-sigChan:
        logger.Info("received shutdown signal", "signal", sig.String())
        ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        defer cancel()
        if err := srv.Shutdown(ctx); err != nil {
            return fmt.Errorf("server shutdown: %w", err)
        }
        logger.Info("server stopped")
    }
    return nil
}

func logMiddleware(log *slog.Logger, next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        next.ServeHTTP(w, r)
        log.Info("request", "remote", r.RemoteAddr, "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
    })
}
