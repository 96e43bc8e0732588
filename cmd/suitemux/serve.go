package main

import (
	"fmt"

	"github.com/aretw0/suitemux/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve registered processes as remote children",
	Long: `Serves every process of the registry as a child suite: over HTTP on
/suites/<name>, and on the Redis work queue when a Redis address is configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, dir, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.HTTP.Addr, _ = cmd.Flags().GetString("addr")
		}
		if cmd.Flags().Changed("redis") {
			cfg.Redis.Addr, _ = cmd.Flags().GetString("redis")
		}
		noHTTP, _ := cmd.Flags().GetBool("no-http")

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		err = cli.Serve(ctx, cfg, cli.Env{Dir: dir, Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()}, cli.ServeOptions{NoHTTP: noHTTP})
		if sig := ctx.Signal(); sig != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "\nStopped by %v\n", sig)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "HTTP address to listen on")
	serveCmd.Flags().String("redis", "", "Redis address of the work queue")
	serveCmd.Flags().Bool("no-http", false, "Serve the Redis queue only")
}
