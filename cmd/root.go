package cmd

import (
	"fmt"
	"os"

	"github.com/jmurray2011/parrot/internal/config"
	"github.com/jmurray2011/parrot/internal/ui"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile      string
	outputFormat string
	verbose      bool
	noColor      bool
	quiet        bool

	// configErr is a config file that exists but could not be read. It is
	// reported by the first command that needs the configuration.
	configErr error

	// render is the global renderer for all output
	render *ui.Renderer
)

var rootCmd = &cobra.Command{
	Use:   "parrot",
	Short: "Repeat the newest lines of a rotating log",
	Long: `parrot - tails the active file of a rotating log and repeats it to
terminals, browsers and CloudWatch.

The active log is the newest file in log_dir whose name starts with
log_name. Rotation is picked up on every read.

Configuration:
  parrot.yaml (or .json) in the working directory or ~/.parrot/, or the
  file given with --config. Every key can be set with a PARROT_ variable,
  e.g. PARROT_LOG_DIR or PARROT_STREAM_INTERVAL.

    log_dir: /var/log/pi-star
    log_name: MMDVM
    aliases:
      ysf: YSFGateway

Examples:
  # Last 20 lines containing "YSF"
  parrot read -n 20 -f YSF

  # Repeat the last line every half second
  parrot watch --interval 0.5

  # Only new lines, from the YSFGateway log
  parrot watch --mode follow --log-override ysf

  # Serve /read_log and /watch_log over HTTP
  parrot serve`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// SetVersion sets the version string for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

func init() {
	cobra.OnInitialize(initConfig, initRenderer)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./parrot.yaml or ~/.parrot/parrot.yaml)")
	flags.String("log-dir", "", "Directory holding the log files")
	flags.String("log-name", "", "File name prefix of the log")
	flags.StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json, csv")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output for debugging")
	flags.BoolVar(&noColor, "no-color", false, "Disable colored output")
	flags.BoolVar(&quiet, "quiet", false, "Suppress status messages")

	// Bind flags to viper
	_ = viper.BindPFlag("log_dir", flags.Lookup("log-dir"))
	_ = viper.BindPFlag("log_name", flags.Lookup("log-name"))
}

// initRenderer initializes the global renderer with current settings.
func initRenderer() {
	render = ui.NewRendererWithOptions(
		ui.WithNoColor(noColor || os.Getenv("NO_COLOR") != ""),
		ui.WithQuiet(quiet),
	)
}

func initConfig() {
	config.Setup(viper.GetViper(), cfgFile)
	configErr = config.ReadFile(viper.GetViper())
}

// IsVerbose returns true if verbose mode is enabled
func IsVerbose() bool {
	return verbose || viper.GetBool("debug")
}
