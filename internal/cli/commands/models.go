package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/realcbb/Dify2OpenAI/internal/cli/client"
	"github.com/realcbb/Dify2OpenAI/internal/cli/config"
	"github.com/realcbb/Dify2OpenAI/internal/cli/ui"
)

// modelsCmd lists the models served by the gateway
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "list models served by the gateway",
	RunE:  runModels,
}

func init() {
	modelsCmd.SilenceUsage = true
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		ui.PrintError("failed to load config: %v", err)
		return err
	}
	server := cfg.Server
	if serverFlag != "" {
		server = serverFlag
	}

	apiClient, err := client.NewAPIClient(server)
	if err != nil {
		ui.PrintError("failed to create client: %v", err)
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	models, err := apiClient.ListModels(ctx)
	if err != nil {
		ui.PrintError("failed to list models: %v", err)
		return err
	}

	ui.PrintBold("MODELS")
	for _, m := range models.Data {
		fmt.Printf("  %s\t(owned by %s)\n", m.ID, m.OwnedBy)
	}

	return nil
}
