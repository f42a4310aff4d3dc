// Package cli provides the command-line interface for chatclean.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/chatclean/internal/cli/commands"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 2
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		// SilenceErrors keeps cobra from printing this itself.
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitError
	}
	return ExitOK
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "chatclean",
		Short: "Clean exported chat transcripts into structured messages",
		Long: `chatclean turns exported group-chat transcripts into ordered, structured
messages with a sender, a body and a timestamp.

It removes:
  - System notices (encryption banners, omitted media, membership changes)
  - Invisible formatting characters and emoji
  - Messages whose timestamps cannot be read

Use "chatclean parse" for files on disk or "chatclean serve" to run the
HTTP upload endpoint.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error); overrides config")

	rootCmd.AddCommand(commands.NewParseCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewDetectCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
