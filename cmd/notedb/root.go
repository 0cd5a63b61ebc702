package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "notedb",
	Short: "Real-time document database for markdown notes",
	Long: `notedb stores per-user note collections and pushes a full snapshot
of a collection to every watcher on each change. Clients talk gRPC;
browsers can use the HTTP gateway (REST + WebSocket).`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "notedb.yml", "Path to the server config file")
}
