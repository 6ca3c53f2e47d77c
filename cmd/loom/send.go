package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"loom/internal/input"
	"loom/internal/ipc"
)

var sendCmd = &cobra.Command{
	Use:   "send [flags] <action>...",
	Short: "Send actions to a running session",
	Long: `Send one or more actions to a running session over its IPC socket.
Each argument is one action, e.g.: loom send new-tab "resize left" quit`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().String("socket", "", "IPC socket path")
	sendCmd.Flags().Duration("timeout", 5*time.Second, "give up after this long")
}

func runSend(cmd *cobra.Command, args []string) error {
	for _, line := range args {
		if _, err := input.ParseAction(line); err != nil {
			return err
		}
	}
	socket := current.cfg.SocketPath()
	if v, _ := cmd.Flags().GetString("socket"); v != "" {
		socket = v
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	if err := ipc.Send(ctx, socket, args...); err != nil {
		return err
	}
	current.log.Debug("actions delivered", "count", len(args), "socket", socket)
	fmt.Fprintf(cmd.OutOrStdout(), "sent %d action(s)\n", len(args))
	return nil
}
