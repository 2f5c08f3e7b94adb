package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the appointments application
var rootCmd = &cobra.Command{
	Use:   "appointments",
	Short: "HTTP proxy for creating, listing and deleting Google Calendar appointments",
	Long: `appointments exposes a small HTTP API in front of a single Google Calendar.

It can create an appointment, list the next upcoming appointments and delete
an appointment by id. The same operations are optionally available as MCP
tools for AI assistants.

Before the first start, run "appointments auth" once to store a Google
credential, or provide a refresh token via GOOGLE_REFRESH_TOKEN.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// rootOpts holds the flags shared by all subcommands.
var rootOpts rootOptions

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "appointments version %s\n" .Version}}`)

	// Without a subcommand the service is started.
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootOpts.bind(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
