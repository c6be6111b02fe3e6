package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jmurray2011/parrot/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	initForce bool
	initPath  string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter parrot.yaml",
	Long: `Create a commented configuration file with every default filled in.
--log-dir and --log-name are written into it when given.

Examples:
  # ./parrot.yaml (won't overwrite existing)
  parrot init --log-dir /var/log/pi-star --log-name MMDVM

  # Force overwrite existing config
  parrot init --force

  # Somewhere else
  parrot init --path ~/.parrot/parrot.yaml`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config file")
	initCmd.Flags().StringVar(&initPath, "path", config.DefaultConfigName+".yaml", "Where to write the config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	logDir := viper.GetString("log_dir")
	if logDir == "" {
		logDir = config.DefaultLogDir
	}
	logName := viper.GetString("log_name")
	if logName == "" {
		logName = "MMDVM"
	}

	out := cmd.OutOrStdout()
	if err := createFileIfNotExists(out, initPath, config.Template(logDir, logName), initForce); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nEdit %s to customize your settings.\n", initPath)
	return nil
}

func createFileIfNotExists(out io.Writer, path, content string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(out, "  %s already exists (use --force to overwrite)\n", path)
			return nil
		}
	}

	// Create parent directory if needed
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Fprintf(out, "  Created %s\n", path)
	return nil
}
