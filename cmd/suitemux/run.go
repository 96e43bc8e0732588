package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/suitemux/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [child...]",
	Short: "Run the local suite and every child as one merged run",
	Long: `Runs the local suite (the registered process named by --local, if any)
and every child declared in the config file, on --child or as arguments.
A child is "location" or "label=location". Locations are exec:<process>,
http(s) URLs or redis:<process> when a Redis address is configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, dir, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("reporter") {
			cfg.Reporter, _ = flags.GetString("reporter")
		}
		if flags.Changed("timeout") {
			cfg.LoadTimeout, _ = flags.GetDuration("timeout")
		}
		if flags.Changed("local") {
			cfg.Local, _ = flags.GetString("local")
		}
		if flags.Changed("color") {
			cfg.Color, _ = flags.GetString("color")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		children, _ := flags.GetStringArray("child")
		status, _ := flags.GetBool("status")
		opts := cli.RunOptions{Children: append(children, args...), Status: status}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		stats, err := cli.Run(ctx, cfg, cli.Env{Dir: dir, Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()}, opts)
		if sig := ctx.Signal(); sig != nil {
			return fmt.Errorf("interrupted by %v", sig)
		}
		if err != nil {
			return err
		}
		if !stats.Success() {
			return errors.New("tests failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringArray("child", nil, "Declare a child (label=location or location); repeatable")
	runCmd.Flags().String("local", "", "Registered process running the local suite")
	runCmd.Flags().StringP("reporter", "r", "spec", "Reporter: spec, ndjson or none")
	runCmd.Flags().Duration("timeout", 60*time.Second, "Deadline for each child to connect")
	runCmd.Flags().String("color", "auto", "Colour output: auto, always or never")
	runCmd.Flags().Bool("status", false, "Serve run status and metrics on the configured HTTP address")
}
