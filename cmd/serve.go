package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmurray2011/parrot/internal/cloudwatch"
	"github.com/jmurray2011/parrot/internal/server"
	"github.com/jmurray2011/parrot/internal/source"
	"github.com/jmurray2011/parrot/internal/stream"
	"github.com/jmurray2011/parrot/pkg/timeutil"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	serveLines        int
	serveLocalOrigins bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the log over HTTP",
	Long: `Serve the active log on host:api_port.

Endpoints:
  GET /read_log?lines=&filter=&log_override=           JSON array of lines
  GET /watch_log?interval=&filter=&log_override=&mode=  server-sent events
  GET /ws/watch_log?...                                same stream over a websocket
  GET /metrics                                         prometheus metrics
  GET /healthz                                         liveness and session counts

Browsers are allowed from cors_origins plus this machine's address and
hostname on web_port. With cloudwatch.metrics.enabled the session counters
are also published to CloudWatch.

Examples:
  parrot serve
  PARROT_API_PORT=9000 parrot serve --log-dir /var/log/pi-star --log-name MMDVM`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&serveLines, "lines", "n", 1, "Lines per tick for streaming sessions")
	serveCmd.Flags().BoolVar(&serveLocalOrigins, "local-origins", true, "Also allow this machine's address and hostname on web_port")
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := GetApp(cmd)
	if err != nil {
		return err
	}
	cfg := app.Config

	mode, err := stream.ParseMode(cfg.Stream.Mode)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := stream.NewMetrics(reg)

	eng := app.Engine()
	registry := stream.NewRegistry(eng, cfg.Stream.MaxSessions, app.Log, metrics)

	origins := cfg.CORSOrigins
	if serveLocalOrigins {
		origins = server.MergeOrigins(origins, server.LocalOrigins(cfg.WebPort)...)
	}
	app.Log.Debug("allowed origins", "origins", origins)

	var watcher *source.Watcher
	if cfg.Stream.WakeOnChange {
		watcher, err = source.NewWatcher(cfg.LogDir, app.Log)
		if err != nil {
			app.Log.Warn("change notifications unavailable, polling only", "err", err)
			watcher = nil
		} else {
			defer func() { _ = watcher.Close() }()
		}
	}

	srv := server.New(server.Options{
		Engine:      eng,
		Registry:    registry,
		Metrics:     metrics,
		Gatherer:    reg,
		Logger:      app.Log,
		Interval:    cfg.StreamInterval(),
		MinInterval: cfg.Stream.MinInterval,
		Mode:        mode,
		Lines:       serveLines,
		CORSOrigins: origins,
		Watcher:     watcher,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, cfg.Addr())
	})

	if cfg.CloudWatch.Metrics.Enabled {
		client, err := cloudwatch.NewMetricsClient(ctx, cfg.CloudWatch.Profile, cfg.CloudWatch.Region)
		if err != nil {
			stop()
			_ = g.Wait()
			return fmt.Errorf("failed to create CloudWatch client: %w", err)
		}
		host, _ := os.Hostname()
		pub := cloudwatch.NewPublisher(client, registry,
			cfg.CloudWatch.Metrics.Namespace, host, cfg.CloudWatch.Metrics.Period,
			app.Log.WithField("component", "publisher"))
		g.Go(func() error {
			return pub.Run(gctx)
		})
	}

	app.Render.Status("Serving %s* from %s on http://%s (every %s, %s mode)",
		eng.Pattern(""), eng.Dir, cfg.Addr(), timeutil.FormatDuration(cfg.StreamInterval()), mode)

	if err := g.Wait(); err != nil {
		return err
	}
	stats := registry.Stats()
	app.Log.Info("server stopped", "sessions", stats.Opened, "lines", stats.Emitted)
	return nil
}
