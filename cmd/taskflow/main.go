package main

import (
	"fmt"
	"os"

	"taskflow/internal/cli"
	"taskflow/internal/logger"
)

func main() {
	logger.Discard()
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
