package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate completion script",
	Long: `Generate shell completion script for spittal.

To load completions:

Bash:
  $ source <(spittal completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ spittal completion bash > /etc/bash_completion.d/spittal
  # macOS:
  $ spittal completion bash > $(brew --prefix)/etc/bash_completion.d/spittal

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it.  You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ spittal completion zsh > "${fpath[1]}/_spittal"

  # For oh-my-zsh users:
  $ mkdir -p ~/.oh-my-zsh/custom/plugins/spittal
  $ spittal completion zsh > ~/.oh-my-zsh/custom/plugins/spittal/_spittal
  # Then add 'spittal' to your plugins array in ~/.zshrc:
  # plugins=(... spittal)

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ spittal completion fish | source

  # To load completions for each session, execute once:
  $ spittal completion fish > ~/.config/fish/completions/spittal.fish

PowerShell:
  PS> spittal completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> spittal completion powershell > spittal.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Run: func(cmd *cobra.Command, args []string) {
		switch args[0] {
		case "bash":
			cmd.Root().GenBashCompletion(os.Stdout)
		case "zsh":
			cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			cmd.Root().GenFishCompletion(os.Stdout, true)
		case "powershell":
			cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
