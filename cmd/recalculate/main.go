// Command recalculate re-derives next expected dates, statuses and payment
// bounds for every service of one user. Run it daily from cron so statuses
// roll forward without any API traffic.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/eshaffer321/recurring-ledger/internal/cli"
)

func main() {
	flags, err := cli.ParseRecalculateFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.RunRecalculate(ctx, os.Stdout, flags); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
