package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/realcbb/Dify2OpenAI/internal/cli/ui"
)

const version = "0.1.0"

var serverFlag string

// rootCmd is the root command
var rootCmd = &cobra.Command{
	Use:     "difyctl",
	Short:   "Dify2OpenAI gateway CLI",
	Version: version,
	Long: `A command-line client for the Dify2OpenAI gateway. Sends OpenAI-format
chat-completion requests to the gateway and renders blocking or streaming
responses in the terminal.`,
	Example: `  # One-shot question
  $ difyctl chat -m "summarize this repo"

  # Interactive session against a remote gateway
  $ difyctl chat -s http://gateway:8080

  # List the served model
  $ difyctl models`,
}

// Execute executes the root command
func Execute() error {
	rootCmd.SetVersionTemplate(formatVersion())
	return rootCmd.Execute()
}

func init() {
	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&serverFlag, "server", "s", "", "gateway address (default from ~/.difyctl/config.json)")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(configCmd)

	// Bold uppercase headers in help output
	rootCmd.SetUsageTemplate(usageTemplate())
	rootCmd.SetHelpTemplate(usageTemplate())
}

func usageTemplate() string {
	return `{{if .Long}}{{.Long}}

{{end}}` + ui.Styles.Bold.Render("USAGE") + `
  {{.UseLine}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}

{{if .HasExample}}` + ui.Styles.Bold.Render("EXAMPLES") + `
{{.Example}}

{{end}}{{if .HasAvailableSubCommands}}` + ui.Styles.Bold.Render("COMMANDS") + `{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasAvailableLocalFlags}}` + ui.Styles.Bold.Render("OPTIONS") + `
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`
}

// formatVersion formats the version output
func formatVersion() string {
	return fmt.Sprintf("difyctl version %s\n", version)
}
