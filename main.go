package main

import (
	"os"

	"github.com/claro-ai/claro/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
