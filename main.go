package main

import (
	"os"

	"github.com/kaziconnect/kaziconnect/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
