// Package cmd contains the CLI entrypoints.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ozwatch",
	Short: "Ozon Global parcel status watcher",
	Long: `ozwatch polls Ozon Global tracking pages for a set of parcels and
notifies their owners on Telegram when a status changes.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (env vars with prefix OZWATCH_ override)")
}
