package main

import (
	"fmt"
	"os"

	"github.com/eshaffer321/recurring-ledger/internal/cli"
)

func main() {
	flags, err := cli.ParseServeFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	if err := cli.RunServe(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
