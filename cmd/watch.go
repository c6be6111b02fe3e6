package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmurray2011/parrot/internal/config"
	perrors "github.com/jmurray2011/parrot/internal/errors"
	"github.com/jmurray2011/parrot/internal/source"
	"github.com/jmurray2011/parrot/internal/stream"
	"github.com/jmurray2011/parrot/pkg/lru"
	"github.com/jmurray2011/parrot/pkg/timeutil"

	"github.com/spf13/cobra"
)

// DedupeCapacity bounds the set of lines remembered by --dedupe so long
// sessions do not grow without limit.
const DedupeCapacity = 10000

var (
	watchInterval   string
	watchFilter     string
	watchOverride   string
	watchMode       string
	watchLines      int
	watchDedupe     bool
	watchTimestamps bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream the active log to the terminal",
	Long: `Poll the newest log file and print what it finds, until Ctrl+C.

Modes:
  tail    print the last line(s) on every tick, changed or not (default)
  follow  print only lines appended since the previous tick; rotation and
          truncation restart from the top of the new file

Intervals are seconds (0.5) or durations (250ms, 2s). Values below
stream.min_interval are raised to it.

Examples:
  # Repeat the last line every 100ms
  parrot watch

  # New lines only, with observation times
  parrot watch --mode follow --timestamps

  # Last line containing YSF, without repeating it
  parrot watch -f YSF --dedupe --interval 0.5`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchInterval, "interval", "", "Polling interval (default: stream.interval)")
	watchCmd.Flags().StringVarP(&watchFilter, "filter", "f", "", "Keep only lines containing this text (case-sensitive)")
	watchCmd.Flags().StringVar(&watchOverride, "log-override", "", "Alias or file prefix to watch instead of log_name")
	watchCmd.Flags().StringVar(&watchMode, "mode", "", "tail or follow (default: stream.mode)")
	watchCmd.Flags().IntVarP(&watchLines, "lines", "n", 1, "Lines per tick (tail) or initial lines (follow)")
	watchCmd.Flags().BoolVar(&watchDedupe, "dedupe", false, "Suppress lines already printed")
	watchCmd.Flags().BoolVar(&watchTimestamps, "timestamps", false, "Prefix lines with the time they were observed")
}

// sessionInterval returns the configured pacing, or raw when given, raised
// to the configured minimum.
func sessionInterval(cfg *config.Config, raw string) (time.Duration, error) {
	if raw == "" {
		return cfg.StreamInterval(), nil
	}
	d, err := timeutil.ParseInterval(raw)
	if err != nil {
		return 0, perrors.InvalidArgument("interval", raw, err.Error())
	}
	return timeutil.ClampInterval(d, cfg.Stream.MinInterval), nil
}

// sessionMode returns raw as a mode, falling back to the configured one.
func sessionMode(cfg *config.Config, raw string) (stream.Mode, error) {
	if raw == "" {
		raw = cfg.Stream.Mode
	}
	return stream.ParseMode(raw)
}

func runWatch(cmd *cobra.Command, args []string) error {
	app, err := GetApp(cmd)
	if err != nil {
		return err
	}
	cfg := app.Config

	interval, err := sessionInterval(cfg, watchInterval)
	if err != nil {
		return err
	}
	mode, err := sessionMode(cfg, watchMode)
	if err != nil {
		return err
	}
	if watchLines < 1 {
		return perrors.InvalidArgument("lines", "", "must be at least 1")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := stream.Options{
		Peer:     "terminal",
		Interval: interval,
		Override: watchOverride,
		Filter:   watchFilter,
		Mode:     mode,
		Lines:    watchLines,

		MinInterval: cfg.Stream.MinInterval,
	}
	if cfg.Stream.WakeOnChange {
		watcher, err := source.NewWatcher(cfg.LogDir, app.Log)
		if err != nil {
			app.Render.Warning("change notifications unavailable, polling only: %v", err)
		} else {
			defer func() { _ = watcher.Close() }()
			wake, cancel := watcher.Subscribe()
			defer cancel()
			opts.Wake = wake
		}
	}

	eng := app.Engine()
	session := stream.NewSession(eng, opts)
	session.SetLogger(app.Log)

	f := app.Formatter(cmd.OutOrStdout()).
		WithHighlight(watchFilter).
		WithTimestamps(watchTimestamps)

	// Use LRU cache to prevent unbounded memory growth while maintaining dedup state
	var seen *lru.Cache[string]
	if watchDedupe {
		seen = lru.New[string](DedupeCapacity)
	}

	app.Render.Status("Watching %s* in %s every %s, %s mode (Ctrl+C to stop)...",
		eng.Pattern(watchOverride), eng.Dir, timeutil.FormatDuration(interval), mode)

	return session.Run(ctx, func(ev stream.Event) error {
		if seen != nil && !seen.Add(ev.Line) {
			return nil
		}
		return f.FormatLine(ev.Line, ev.Observed)
	})
}
