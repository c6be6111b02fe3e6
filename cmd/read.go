package cmd

import (
	"github.com/jmurray2011/parrot/internal/engine"

	"github.com/spf13/cobra"
)

var (
	readLines    string
	readFilter   string
	readOverride string
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Print the last lines of the active log",
	Long: `Print the last lines of the newest log file, optionally keeping only lines
that contain a substring. The window is taken first and filtered second, so
-n 20 -f YSF shows the YSF lines among the last 20.

Examples:
  # Whole file
  parrot read

  # Last 50 lines
  parrot read -n 50

  # Lines mentioning YSF among the last 200
  parrot read -n 200 -f YSF

  # Another log in the same directory, by alias or prefix
  parrot read --log-override ysf -o json`,
	Args: cobra.NoArgs,
	RunE: runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)

	readCmd.Flags().StringVarP(&readLines, "lines", "n", "", "Number of lines from the end (default: whole file)")
	readCmd.Flags().StringVarP(&readFilter, "filter", "f", "", "Keep only lines containing this text (case-sensitive)")
	readCmd.Flags().StringVar(&readOverride, "log-override", "", "Alias or file prefix to read instead of log_name")
}

func runRead(cmd *cobra.Command, args []string) error {
	app, err := GetApp(cmd)
	if err != nil {
		return err
	}

	lines, err := engine.ParseLines(readLines)
	if err != nil {
		return err
	}

	result, err := app.Engine().Read(cmd.Context(), engine.ReadRequest{
		Lines:    lines,
		Filter:   readFilter,
		Override: readOverride,
	})
	if err != nil {
		return err
	}

	return app.Formatter(cmd.OutOrStdout()).WithHighlight(readFilter).FormatLines(result)
}
