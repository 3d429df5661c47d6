// Package ctl holds the lu-ctl operator commands.
package ctl

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vegarwe/skistart-lockedup/internal/client"
	"github.com/vegarwe/skistart-lockedup/internal/rack"
)

type options struct {
	server   string
	password string
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// NewRootCmd creates lu-ctl with every subcommand attached.
func NewRootCmd(version string) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "lu-ctl",
		Short:         "Operate a ski rack",
		Long:          `lu-ctl shows port status, unlocks ports and follows live rack events on a running lu-server.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", envOr("LU_SERVER", "http://localhost:8888"), "lu-server base URL")
	root.PersistentFlags().StringVar(&opts.password, "password", os.Getenv("LU_PASSWORD"), "login password (auth_data)")

	root.AddCommand(NewStatusCmd(opts))
	root.AddCommand(NewUnlockCmd(opts))
	root.AddCommand(NewLogCmd(opts))
	root.AddCommand(NewWatchCmd(opts))
	return root
}

func connect(ctx context.Context, opts *options) (*client.Client, error) {
	c, err := client.New(opts.server)
	if err != nil {
		return nil, err
	}
	if opts.password != "" {
		if err := c.Login(ctx, opts.password); err != nil {
			return nil, fmt.Errorf("failed to log in: %w", err)
		}
	}
	return c, nil
}

func printRack(w io.Writer, ports []rack.PortStatus) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	for i, p := range ports {
		status := p.Status
		if p.CardUID != nil {
			status = yellow(status)
		} else {
			status = green(status)
		}
		fmt.Fprintf(w, "port %d  %s", i, status)
		if p.CardUID != nil {
			fmt.Fprintf(w, "  card %s", *p.CardUID)
		}
		if p.DoorStatus != "" {
			door := string(p.DoorStatus)
			if p.DoorStatus == rack.StatusForced {
				door = red(door)
			}
			fmt.Fprintf(w, "  door %s", door)
		}
		fmt.Fprintln(w)
	}
}
