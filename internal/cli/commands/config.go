package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/realcbb/Dify2OpenAI/internal/cli/config"
	"github.com/realcbb/Dify2OpenAI/internal/cli/ui"
)

var (
	setServer string
	setModel  string
)

// configCmd shows the stored CLI defaults
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "show or update CLI defaults",
	RunE:  runConfigShow,
}

// configSetCmd persists CLI defaults to ~/.difyctl/config.json
var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "persist default server and model",
	Example: `  $ difyctl config set --server http://gateway:8080
  $ difyctl config set --model my-workflow`,
	RunE: runConfigSet,
}

func init() {
	configSetCmd.Flags().StringVar(&setServer, "server", "", "default gateway address")
	configSetCmd.Flags().StringVar(&setModel, "model", "", "default model name")
	configCmd.AddCommand(configSetCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		ui.PrintError("failed to load config: %v", err)
		return err
	}

	fmt.Printf("server: %s\n", cfg.Server)
	if cfg.Model != "" {
		fmt.Printf("model:  %s\n", cfg.Model)
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if setServer == "" && setModel == "" {
		return fmt.Errorf("nothing to set, use --server or --model")
	}

	cfg, err := config.Load()
	if err != nil {
		ui.PrintError("failed to load config: %v", err)
		return err
	}

	if setServer != "" {
		cfg.Server = setServer
	}
	if setModel != "" {
		cfg.Model = setModel
	}

	if err := config.Save(cfg); err != nil {
		ui.PrintError("failed to save config: %v", err)
		return err
	}

	ui.PrintSuccess("config saved")
	return nil
}
