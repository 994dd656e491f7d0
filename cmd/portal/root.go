package main

import (
	"time"

	"github.com/goliatone/go-portal"
	"github.com/spf13/cobra"
)

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	configFile string
}

// NewRootCmd creates the root command for the portal CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "portal",
		Short: "Login/register portal client",
		Long: `portal keeps an authenticated session against the portal API.
It can log in, register, log out, show the current user, serve the
web portal and run a reference API for local development.`,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "config file path (default $XDG_CONFIG_HOME/portal/config.yaml)")
	pf.String("api-url", portal.DefaultBaseURL, "base URL of the portal API")
	pf.Duration("api-timeout", 10*time.Second, "timeout for each API request")
	pf.String("store", portal.StoreDriverFile, "session store driver: file, sqlite, redis or memory")
	pf.String("store-path", "", "session file or sqlite database path")
	pf.String("redis-addr", "localhost:6379", "redis address for the redis store")
	pf.String("redis-prefix", "portal:session", "redis key prefix for the redis store")
	pf.String("log-format", "text", "log format: text or json")
	pf.String("log-level", "info", "log level: debug, info, warn or error")

	cmd.AddCommand(newLoginCmd(opts))
	cmd.AddCommand(newRegisterCmd(opts))
	cmd.AddCommand(newLogoutCmd(opts))
	cmd.AddCommand(newWhoamiCmd(opts))
	cmd.AddCommand(newUsersCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newAPICmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.Printf("portal %s (commit: %s, built: %s)\n", version, commit, date)
			return nil
		},
	}
}
