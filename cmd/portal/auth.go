package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/goliatone/go-portal"
	"github.com/spf13/cobra"
)

type loginConfig struct {
	email    string
	password string
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	cfg := &loginConfig{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Long:  `Log in with email and password. The session is kept in the configured store until logout or expiry.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogin(cmd, opts, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.email, "email", "", "account email")
	cmd.Flags().StringVar(&cfg.password, "password", "", "account password")

	return cmd
}

func runLogin(cmd *cobra.Command, opts *rootOptions, cfg *loginConfig) error {
	ctx := cmd.Context()

	d, err := buildClientDeps(ctx, cmd, opts, nil)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.manager.Restore(ctx); err != nil {
		d.logger.Error("restore failed", "error", err)
	}

	page := portal.NewLoginPage(d.manager)
	page.Change(portal.FieldEmail, cfg.email)
	page.Change(portal.FieldPassword, cfg.password)

	return submitPage(cmd, d, page)
}

type registerConfig struct {
	name            string
	email           string
	password        string
	confirmPassword string
}

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	cfg := &registerConfig{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Long:  `Create an account and, on success, log in with the same credentials.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("confirm-password") {
				cfg.confirmPassword = cfg.password
			}
			return runRegister(cmd, opts, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.name, "name", "", "full name")
	cmd.Flags().StringVar(&cfg.email, "email", "", "account email")
	cmd.Flags().StringVar(&cfg.password, "password", "", "account password")
	cmd.Flags().StringVar(&cfg.confirmPassword, "confirm-password", "", "password confirmation (defaults to --password)")

	return cmd
}

func runRegister(cmd *cobra.Command, opts *rootOptions, cfg *registerConfig) error {
	ctx := cmd.Context()

	d, err := buildClientDeps(ctx, cmd, opts, nil)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.manager.Restore(ctx); err != nil {
		d.logger.Error("restore failed", "error", err)
	}

	page := portal.NewRegisterPage(d.manager)
	page.Change(portal.FieldName, cfg.name)
	page.Change(portal.FieldEmail, cfg.email)
	page.Change(portal.FieldPassword, cfg.password)
	page.Change(portal.FieldConfirmPassword, cfg.confirmPassword)

	return submitPage(cmd, d, page)
}

// submitPage submits the page and reports field or submit errors.
func submitPage(cmd *cobra.Command, d *clientDeps, page *portal.Page) error {
	res, err := page.Submit(cmd.Context())
	if errors.Is(err, portal.ErrFormInvalid) {
		state := page.State()
		fields := make([]string, 0, len(state.FieldErrors))
		for f := range state.FieldErrors {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			cmd.PrintErrf("%s: %s\n", f, state.FieldErrors[f])
		}
		return fmt.Errorf("invalid %s form", page.Kind())
	}
	if err != nil {
		return err
	}

	if !res.Success {
		return errors.New(res.Error)
	}

	user := d.manager.User()
	cmd.Printf("Logged in as %s <%s>\n", user.Name, user.Email)
	return nil
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Long:  `Call the remote logout and always clear the local session.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			d, err := buildClientDeps(ctx, cmd, opts, nil)
			if err != nil {
				return err
			}
			defer d.Close()

			d.manager.Logout(ctx)
			cmd.Println("Logged out")
			return nil
		},
	}
}

type whoamiConfig struct {
	jsonOutput bool
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	cfg := &whoamiConfig{}

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Long:  `Restore the stored session and print the logged in user.`,
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

			snap := d.manager.Snapshot()
			if !snap.Authenticated() {
				cmd.Println("Not logged in")
				return nil
			}

			if cfg.jsonOutput {
				data, err := json.MarshalIndent(snap.User, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(data))
				return nil
			}

			cmd.Printf("%s <%s> (id %s)\n", snap.User.Name, snap.User.Email, snap.User.ID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "print the stored user record as JSON")

	return cmd
}
