package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/goliatone/go-portal"
	"github.com/spf13/cobra"
)

var errNotLoggedIn = errors.New("not logged in")

func newUsersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List registered users",
		Long:  `List the accounts known to the API. Requires a logged in session.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			d, err := buildClientDeps(ctx, cmd, opts, nil)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := d.manager.Restore(ctx); err != nil {
				return err
			}

			if !d.manager.IsAuthenticated() {
				return errNotLoggedIn
			}

			users, err := d.transport.Users(ctx)
			if portal.IsUnauthorized(err) {
				return fmt.Errorf("session expired: %w", errNotLoggedIn)
			}
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tEMAIL")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\t%s\n", u.ID, u.Name, u.Email)
			}
			return w.Flush()
		},
	}
}
