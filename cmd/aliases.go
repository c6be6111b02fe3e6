package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var aliasesCmd = &cobra.Command{
	Use:   "aliases [name]",
	Short: "Show configured log aliases",
	Long: `Show the aliases from the configuration. An alias can be passed anywhere a
log override is accepted.

With a name, print only the file prefix it stands for.

Examples:
  parrot aliases
  parrot aliases ysf`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAliases,
}

func init() {
	rootCmd.AddCommand(aliasesCmd)
}

func runAliases(cmd *cobra.Command, args []string) error {
	app, err := GetApp(cmd)
	if err != nil {
		return err
	}

	eng := app.Engine()
	if len(args) == 1 {
		pattern, err := eng.Alias(args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), pattern)
		return err
	}

	return app.Formatter(cmd.OutOrStdout()).FormatAliases(eng.Aliases)
}
