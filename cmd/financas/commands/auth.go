package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"financas/internal/core"
)

func registerCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "register <name> <email>",
		Short: "Create a new account (does not log in)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.stores.Sessions.Register(cmd.Context(), args[0], args[1], password)
			if err != nil {
				return err
			}
			a.printf("Registered %s <%s>\n", u.Name, u.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (at least 6 characters)")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func loginCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Log in and keep the session for later commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.stores.Sessions.Login(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			a.printf("Logged in as %s\n", u.Name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.stores.Sessions.Logout(cmd.Context()); err != nil {
				return err
			}
			a.printf("Logged out\n")
			return nil
		},
	}
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, ok := a.stores.Sessions.CurrentUser()
			if !ok {
				a.printf("Not logged in\n")
				return nil
			}
			a.printf("%s <%s>\nid: %s\nsince: %s\n", u.Name, u.Email, u.ID, u.CreatedAt.Format("2006-01-02"))
			return nil
		},
	}
}

func usersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List registered users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := a.stores.Sessions.Users(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			defer tw.Flush()
			for _, u := range users {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", u.ID, u.Name, u.Email)
			}
			return nil
		},
	}
}

func profileCmd(a *app) *cobra.Command {
	var name, email, avatar string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update the logged-in user's name, email or avatar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, ok := a.stores.Sessions.CurrentUser()
			if !ok {
				return core.ErrNoSession
			}
			if cmd.Flags().Changed("name") {
				u.Name = name
			}
			if cmd.Flags().Changed("email") {
				u.Email = email
			}
			if cmd.Flags().Changed("avatar") {
				u.Avatar = avatar
			}
			updated, err := a.stores.Sessions.UpdateProfile(cmd.Context(), u)
			if err != nil {
				return err
			}
			a.printf("Profile updated: %s <%s>\n", updated.Name, updated.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new display name")
	cmd.Flags().StringVar(&email, "email", "", "new email")
	cmd.Flags().StringVar(&avatar, "avatar", "", "avatar image URL or data URI")
	return cmd
}
