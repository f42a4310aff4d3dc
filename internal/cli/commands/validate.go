package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/chatclean/pkg/config"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a chatclean configuration file without parsing anything.

Checks:
  - YAML syntax
  - Server address, upload size and rate limit
  - Extra system phrases are non-empty
  - Temp directory exists
  - Webhook URLs and triggers`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Validating %s...\n", configPath)

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(w, "\nConfiguration valid!\n")
	fmt.Fprintf(w, "  Listen address:  %s\n", cfg.Server.Addr)
	fmt.Fprintf(w, "  Max upload size: %s\n", cfg.Server.MaxUploadSize)
	if cfg.Server.RateLimit.RPS > 0 {
		fmt.Fprintf(w, "  Rate limit:      %g req/s (burst %d)\n", cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst)
	} else {
		fmt.Fprintf(w, "  Rate limit:      disabled\n")
	}
	fmt.Fprintf(w, "  Persist output:  %t\n", cfg.Output.PersistTempFile)
	fmt.Fprintf(w, "  Log level:       %s\n", cfg.Logging.Level)

	if len(cfg.Parser.ExtraSystemPhrases) > 0 {
		fmt.Fprintf(w, "\nExtra system phrases:\n")
		for _, p := range cfg.Parser.ExtraSystemPhrases {
			fmt.Fprintf(w, "  - %q\n", p)
		}
	}

	if len(cfg.Webhooks) > 0 {
		fmt.Fprintf(w, "\nWebhooks:\n")
		for i, wh := range cfg.Webhooks {
			name := wh.Name
			if name == "" {
				name = wh.URL
			}
			fmt.Fprintf(w, "  %d. %s [%s]\n", i+1, name, wh.Trigger)
		}
	}

	return nil
}
