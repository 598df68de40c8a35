package main

import (
	"os"

	"github.com/openlegis/billchat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
