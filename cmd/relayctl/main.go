// relayctl is a command-line client for the RelayDesk backend, built on
// the relay-go SDK. It exists to smoke-test a deployment from a shell:
// check health, watch connectivity, send a chat turn, upload a project.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "relayctl:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "relayctl",
		Short:         "Command-line client for the RelayDesk backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to relay.yaml (RELAY_* env vars also apply)")

	root.AddCommand(
		newHealthCmd(&configPath),
		newWatchCmd(&configPath),
		newChatCmd(&configPath),
		newUploadCmd(&configPath),
		newStatusCmd(&configPath),
	)
	return root
}
