package usecase

import (
	"github.com/realcbb/Dify2OpenAI/internal/config"
	"github.com/realcbb/Dify2OpenAI/internal/domain"
)

const (
	// defaultInputVariable receives the query when no input variable is
	// configured.
	defaultInputVariable = "text_input"
	// fileInputVariable carries the ordered file inputs.
	fileInputVariable = "file_input"
)

// buildInputs maps the extracted intent onto the workflow's named variables.
// A configured system input variable wins over merging; an empty system
// prompt never produces a dangling separator.
func buildInputs(in *domain.ChatInput, cfg config.DifyConfig) map[string]any {
	inputs := make(map[string]any, 3)

	if len(in.Files) > 0 {
		inputs[fileInputVariable] = in.Files
	}

	inputVariable := cfg.InputVariable
	if inputVariable == "" {
		inputVariable = defaultInputVariable
	}

	switch {
	case cfg.SystemInputVariable != "" && in.SystemPrompt != "":
		inputs[cfg.SystemInputVariable] = in.SystemPrompt
		inputs[inputVariable] = in.Query
	case in.SystemPrompt != "":
		inputs[inputVariable] = in.SystemPrompt + "\n\n" + in.Query
	default:
		inputs[inputVariable] = in.Query
	}

	return inputs
}
