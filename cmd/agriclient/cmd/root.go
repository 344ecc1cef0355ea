// Package cmd provides the CLI commands for the AgriConnect client.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agriconnect/agriclient/internal/config"
)

var (
	cfgFile string
	offline bool
	lang    string
)

var rootCmd = &cobra.Command{
	Use:   "agriclient",
	Short: "AgriConnect - farming assistant client",
	Long: `AgriConnect is a farming assistant for Ghana and Sub-Saharan Africa.

The client signs in against the AgriConnect backend, keeps the session
fresh across restarts, and fetches weather, pest, and crop advice from
the AI advisor. Advice is cached on device: when the network is gone,
the last known-good answer is served and marked as cached.

Quick start:
  1. Create a config file: agriclient.yaml
  2. Run: agriclient login --email you@example.com

Configuration:
  Config is loaded from agriclient.yaml in the current directory or
  $HOME/.agriclient/.

  Environment variables can override config values with the AGRICLIENT_
  prefix. Example: AGRICLIENT_BACKEND_URL=https://project.example.co`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./agriclient.yaml)")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "force offline mode (serve cached data only)")
	rootCmd.PersistentFlags().StringVar(&lang, "lang", "en", "advice language: en, tw, ee, ga")
}

func initConfig() {
	config.InitViper(cfgFile)
}
