package main

import (
	"os"

	"github.com/akolanti/RecallAPI/pkg/logger_i"
)

var logger = logger_i.NewLogger("main")

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
