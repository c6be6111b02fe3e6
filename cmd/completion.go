package cmd

import (
	"io"
	"sort"

	"github.com/spf13/cobra"
)

var completionNoDesc bool

// completionWriters maps a shell to its script generator.
var completionWriters = map[string]func(root *cobra.Command, w io.Writer, desc bool) error{
	"bash": func(root *cobra.Command, w io.Writer, desc bool) error {
		return root.GenBashCompletionV2(w, desc)
	},
	"zsh": func(root *cobra.Command, w io.Writer, desc bool) error {
		if desc {
			return root.GenZshCompletion(w)
		}
		return root.GenZshCompletionNoDesc(w)
	},
	"fish": func(root *cobra.Command, w io.Writer, desc bool) error {
		return root.GenFishCompletion(w, desc)
	},
	"powershell": func(root *cobra.Command, w io.Writer, desc bool) error {
		if desc {
			return root.GenPowerShellCompletionWithDesc(w)
		}
		return root.GenPowerShellCompletion(w)
	},
}

func completionShells() []string {
	shells := make([]string, 0, len(completionWriters))
	for name := range completionWriters {
		shells = append(shells, name)
	}
	sort.Strings(shells)
	return shells
}

var completionCmd = &cobra.Command{
	Use:   "completion <shell>",
	Short: "Print a tab-completion script for your shell",
	Long: `Print a script that teaches your shell to complete parrot commands,
flags, and log aliases. Pipe it into the shell to try it out, or save it
where the shell looks for completions to keep it:

  bash        source <(parrot completion bash)
              parrot completion bash > ~/.local/share/bash-completion/completions/parrot
  zsh         parrot completion zsh > "${fpath[1]}/_parrot"    (needs compinit)
  fish        parrot completion fish > ~/.config/fish/completions/parrot.fish
  powershell  parrot completion powershell >> $PROFILE

Open a new shell afterwards. Use --no-descriptions for terse menus.`,
	DisableFlagsInUseLine: true,
	ValidArgs:             completionShells(),
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return completionWriters[args[0]](cmd.Root(), cmd.OutOrStdout(), !completionNoDesc)
	},
}

func init() {
	completionCmd.Flags().BoolVar(&completionNoDesc, "no-descriptions", false, "omit command and flag descriptions")
	rootCmd.AddCommand(completionCmd)
}
