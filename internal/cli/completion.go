package cli

import (
	"github.com/spf13/cobra"
)

// completionCommand prints shell completion scripts.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Print a completion script for the given shell.

  bash:        source <(stackbump completion bash)
  zsh:         stackbump completion zsh > "${fpath[1]}/_stackbump"
  fish:        stackbump completion fish | source
  powershell:  stackbump completion powershell | Out-String | Invoke-Expression

Zsh needs "autoload -U compinit; compinit" in ~/.zshrc if completion is not
enabled yet.`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(stdout, true)
			case "zsh":
				return root.GenZshCompletion(stdout)
			case "fish":
				return root.GenFishCompletion(stdout, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(stdout)
			}
			return nil
		},
	}
}
