package main

import (
	"os"

	"github.com/GathsaraH/PDF-QA-Assistant/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
