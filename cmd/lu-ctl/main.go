package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/vegarwe/skistart-lockedup/internal/ctl"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := ctl.NewRootCmd(version).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
