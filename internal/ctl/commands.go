package ctl

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vegarwe/skistart-lockedup/internal/shared"
)

// NewStatusCmd creates the status command
func NewStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show every port",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd.Context(), opts)
			if err != nil {
				return err
			}
			ports, err := c.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}
			printRack(cmd.OutOrStdout(), ports)
			return nil
		},
	}
}

// NewUnlockCmd creates the unlock command
func NewUnlockCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <port>",
		Short: "Release a port regardless of the card on it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid port %q: %w", args[0], err)
			}
			c, err := connect(cmd.Context(), opts)
			if err != nil {
				return err
			}
			ports, err := c.Unlock(cmd.Context(), port)
			if err != nil {
				return fmt.Errorf("failed to unlock port %d: %w", port, err)
			}
			printRack(cmd.OutOrStdout(), ports)
			return nil
		},
	}
}

// NewLogCmd creates the log command
func NewLogCmd(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent rack events from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd.Context(), opts)
			if err != nil {
				return err
			}
			entries, err := c.Log(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to read log: %w", err)
			}
			for i := len(entries) - 1; i >= 0; i-- {
				e := entries[i]
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", e.At.Local().Format("2006-01-02 15:04:05"), e.Entry)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries")

	return cmd
}

// NewWatchCmd creates the watch command
func NewWatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow live status and log notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := connect(cmd.Context(), opts)
			if err != nil {
				return err
			}
			cyan := color.New(color.FgCyan).SprintFunc()
			out := cmd.OutOrStdout()
			return c.Watch(cmd.Context(), func(env shared.Envelope) error {
				switch env.Type {
				case shared.TypeStatus:
					printRack(out, env.Rack)
				case shared.TypeLog:
					fmt.Fprintln(out, cyan(env.Entry))
				}
				return nil
			})
		},
	}
}
