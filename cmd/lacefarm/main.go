package main

import (
	"os"

	"github.com/minhvn/lacefarm/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
