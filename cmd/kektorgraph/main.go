package main

import (
	"fmt"
	"os"

	"github.com/sanonone/kektorgraph/cmd/kektorgraph/commands"
	"github.com/sanonone/kektorgraph/internal/logger"
)

func main() {
	err := commands.RootCmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
