package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/realcbb/Dify2OpenAI/internal/cli/client"
	"github.com/realcbb/Dify2OpenAI/internal/cli/config"
	"github.com/realcbb/Dify2OpenAI/internal/cli/types"
	"github.com/realcbb/Dify2OpenAI/internal/cli/ui"
)

var (
	messageFlag string
	modelFlag   string
	noStream    bool
)

// chatCmd is the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "chat with the workflow behind the gateway",
	Long: `Send chat messages through the Dify2OpenAI gateway and render the
workflow answer. Without --message an interactive prompt loop starts; an
empty input ends the session.`,
	Example: `  # One-shot question
  $ difyctl chat -m "what does this workflow do?"

  # Interactive session without streaming
  $ difyctl chat --no-stream`,
	RunE: runChat,
}

func init() {
	chatCmd.SilenceUsage = true
	chatCmd.Flags().StringVarP(&messageFlag, "message", "m", "", "one-shot message; omit for interactive mode")
	chatCmd.Flags().StringVar(&modelFlag, "model", "", "model name sent with the request")
	chatCmd.Flags().BoolVar(&noStream, "no-stream", false, "use the blocking endpoint instead of SSE")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		ui.PrintError("failed to load config: %v", err)
		return err
	}
	server := cfg.Server
	if serverFlag != "" {
		server = serverFlag
	}
	model := cfg.Model
	if modelFlag != "" {
		model = modelFlag
	}

	apiClient, err := client.NewAPIClient(server)
	if err != nil {
		ui.PrintError("failed to create client: %v", err)
		return err
	}

	if messageFlag != "" {
		return sendTurn(cmd.Context(), apiClient, messageFlag, model)
	}

	// Interactive loop
	ui.PrintChatWelcomeBanner(server)
	for {
		var input string
		prompt := &survey.Input{Message: "you:"}
		if err := survey.AskOne(prompt, &input); err != nil {
			// Ctrl-C / terminal closed
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" || input == "exit" || input == "quit" {
			ui.PrintInfo("bye")
			return nil
		}
		if err := sendTurn(cmd.Context(), apiClient, input, model); err != nil {
			ui.PrintErrorBox("request failed", err.Error())
		}
	}
}

// sendTurn sends one message and renders the answer.
func sendTurn(ctx context.Context, apiClient *client.APIClient, message, model string) error {
	messages := []types.ChatMessage{{Role: "user", Content: message}}

	if noStream {
		resp, err := apiClient.Chat(ctx, messages, model)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty response")
		}
		ui.PrintDivider(resp.Model)
		fmt.Println(ui.Styles.Assistant.Render(renderContent(resp.Choices[0].Message.Content)))
		return nil
	}

	chunkCh, errCh, err := apiClient.ChatStreaming(ctx, messages, model)
	if err != nil {
		return err
	}

	ui.PrintDivider("assistant")
	for chunk := range chunkCh {
		if chunk.Error != "" {
			return fmt.Errorf("gateway error: %s", chunk.Error)
		}
		for _, choice := range chunk.Choices {
			if len(choice.Delta.Content) > 0 {
				fmt.Print(ui.Styles.Assistant.Render(renderContent(choice.Delta.Content)))
			}
		}
	}
	fmt.Println()

	if err := <-errCh; err != nil {
		return err
	}
	return nil
}

// renderContent prints a content value: strings verbatim, everything else as
// indented JSON.
func renderContent(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return string(raw)
	}
	return out.String()
}
