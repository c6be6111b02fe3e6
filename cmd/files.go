package cmd

import (
	"github.com/spf13/cobra"
)

var filesOverride string

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List the rotated files of the log, newest first",
	Long: `List every file in log_dir whose name starts with the log prefix, newest
first. The first entry is the file read and watched right now.

Examples:
  parrot files
  parrot files --log-override DMRGateway -o csv`,
	Args: cobra.NoArgs,
	RunE: runFiles,
}

func init() {
	rootCmd.AddCommand(filesCmd)

	filesCmd.Flags().StringVar(&filesOverride, "log-override", "", "Alias or file prefix to list instead of log_name")
}

func runFiles(cmd *cobra.Command, args []string) error {
	app, err := GetApp(cmd)
	if err != nil {
		return err
	}

	eng := app.Engine()
	app.Render.Status("Listing %s* in %s...", eng.Pattern(filesOverride), eng.Dir)

	files, err := eng.Files(filesOverride)
	if err != nil {
		return err
	}
	return app.Formatter(cmd.OutOrStdout()).FormatFiles(files)
}
