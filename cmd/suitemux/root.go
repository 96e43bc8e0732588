package main

import (
	"fmt"
	"os"

	"github.com/aretw0/suitemux/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "suitemux",
	Short: "suitemux merges test suites run in separate contexts into one report",
	Long: `suitemux runs a local test suite together with child suites loaded from
other processes, HTTP endpoints or a Redis work queue, and reports them as one run.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("dir", ".", "Directory resolving relative files and child locations")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default: suitemux.yaml in --dir)")
	rootCmd.PersistentFlags().Bool("debug", false, "Log at debug level on stderr")
}

// loadConfig reads the configuration selected by the persistent flags.
func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	dir, _ := cmd.Flags().GetString("dir")
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.Find(dir)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, "", err
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.LogLevel = "debug"
	}
	return cfg, dir, nil
}
