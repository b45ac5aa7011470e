package main

import (
	"os"

	"github.com/kirillkom/pii-sentinel/internal/adapters/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
