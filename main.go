package main

import (
	"fmt"
	"os"

	"github.com/botlens/botlens/internal/cli"
	"github.com/botlens/botlens/internal/logger"
)

func main() {
	logger.Init(logger.INFO, os.Stdout)

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
