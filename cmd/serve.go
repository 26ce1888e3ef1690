package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/parkrun-transit/internal/datacache"
	"github.com/sells-group/parkrun-transit/internal/server"
	"github.com/sells-group/parkrun-transit/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the event list over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initSource(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		defaults, err := defaultQuery()
		if err != nil {
			return err
		}

		refresher, err := datacache.NewRefresher(env.Source, defaults.Modes, cfg.Cache.RefreshSchedule)
		if err != nil {
			return err
		}
		refresher.Start()
		defer refresher.Stop()

		handler := server.New(env.Source, defaults, env.statusOptions()...).Router()
		return startServer(ctx, handler, resolvePort(servePort, cfg.Server.Port))
	},
}

// statusOptions reports the upstream circuits and, for the memory driver,
// the cache hit counters on /health.
func (e *sourceEnv) statusOptions() []server.Option {
	var opts []server.Option
	if mem, ok := e.Store.(*store.Memory); ok {
		opts = append(opts, server.WithStatus("cache", func() any { return mem.Stats() }))
	}
	if e.Breaker != nil {
		b, urls := e.Breaker, e.URLs
		opts = append(opts, server.WithStatus("upstream", func() any {
			return map[string]string{
				"events": b.State(urls.Events).String(),
				"stops":  b.State(urls.Stops).String(),
			}
		}))
	}
	return opts
}

// resolvePort prefers the --port flag over the configured port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

// startServer listens on port until ctx is cancelled, then shuts down.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}

	return nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
