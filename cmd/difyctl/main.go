package main

import (
	"os"

	"github.com/realcbb/Dify2OpenAI/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
