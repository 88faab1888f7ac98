package main

import (
	"os"

	"github.com/mnemos-ai/mnemos/cmd/mnemos"
)

func main() {
	if err := mnemos.Execute(); err != nil {
		os.Exit(1)
	}
}
