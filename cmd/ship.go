package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmurray2011/parrot/internal/cloudwatch"
	perrors "github.com/jmurray2011/parrot/internal/errors"
	"github.com/jmurray2011/parrot/internal/stream"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	shipGroup    string
	shipStream   string
	shipInterval string
	shipFilter   string
	shipOverride string
	shipFlush    time.Duration
)

var shipCmd = &cobra.Command{
	Use:   "ship",
	Short: "Forward new log lines to CloudWatch Logs",
	Long: `Follow the active log and send every new line to a CloudWatch Logs stream.
The stream is created when missing. Lines are batched and sent every
--flush interval, or sooner when a batch fills up.

AWS credentials come from cloudwatch.profile / cloudwatch.region or the
usual AWS environment.

Examples:
  parrot ship --group /pi-star/mmdvm
  parrot ship --group /pi-star/ysf --stream hotspot-1 --log-override ysf -f "Linked"`,
	Args: cobra.NoArgs,
	RunE: runShip,
}

func init() {
	rootCmd.AddCommand(shipCmd)

	shipCmd.Flags().StringVar(&shipGroup, "group", "", "CloudWatch Logs group (required)")
	shipCmd.Flags().StringVar(&shipStream, "stream", "", "Log stream name (default: hostname)")
	shipCmd.Flags().StringVar(&shipInterval, "interval", "", "Polling interval (default: stream.interval)")
	shipCmd.Flags().StringVarP(&shipFilter, "filter", "f", "", "Ship only lines containing this text")
	shipCmd.Flags().StringVar(&shipOverride, "log-override", "", "Alias or file prefix to ship instead of log_name")
	shipCmd.Flags().DurationVar(&shipFlush, "flush", 5*time.Second, "How often queued lines are sent")
	_ = shipCmd.MarkFlagRequired("group")
}

func runShip(cmd *cobra.Command, args []string) error {
	app, err := GetApp(cmd)
	if err != nil {
		return err
	}
	cfg := app.Config

	if shipGroup == "" {
		return perrors.InvalidArgument("group", shipGroup, "must be set")
	}
	if shipFlush <= 0 {
		return perrors.InvalidArgument("flush", shipFlush.String(), "must be positive")
	}
	interval, err := sessionInterval(cfg, shipInterval)
	if err != nil {
		return err
	}
	streamName := shipStream
	if streamName == "" {
		if streamName, err = os.Hostname(); err != nil || streamName == "" {
			streamName = "parrot"
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := cloudwatch.NewLogsClient(ctx, cfg.CloudWatch.Profile, cfg.CloudWatch.Region)
	if err != nil {
		return fmt.Errorf("failed to create CloudWatch Logs client: %w", err)
	}
	if account, err := cloudwatch.GetAccountID(ctx, cfg.CloudWatch.Profile, cfg.CloudWatch.Region); err != nil {
		app.Log.Debug("failed to get account ID", "err", err)
	} else {
		app.Log.Info("shipping to account", "account", account)
	}

	shipper := cloudwatch.NewShipper(client, shipGroup, streamName, app.Log.WithField("component", "shipper"))
	if err := shipper.EnsureStream(ctx); err != nil {
		return err
	}

	eng := app.Engine()
	session := stream.NewSession(eng, stream.Options{
		Peer:     "ship",
		Interval: interval,
		Override: shipOverride,
		Filter:   shipFilter,
		Mode:     stream.ModeFollow,
	})
	session.SetLogger(app.Log)

	app.Render.Status("Shipping %s* to %s/%s (Ctrl+C to stop)...", eng.Pattern(shipOverride), shipGroup, streamName)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return shipper.Run(gctx, shipFlush)
	})
	g.Go(func() error {
		defer stop()
		return shipSession(gctx, session, shipper)
	})

	err = g.Wait()
	app.Render.Status("Shipped %d lines", shipper.Shipped())
	return err
}

// shipSession runs session into shipper until ctx is done. Rejected batches
// are dropped by the shipper and do not end the session.
func shipSession(ctx context.Context, session *stream.Session, shipper *cloudwatch.Shipper) error {
	return session.Run(ctx, func(ev stream.Event) error {
		return shipper.Add(ctx, ev)
	})
}
