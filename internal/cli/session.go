package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	var (
		user     string
		password string
		remember bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Verify office credentials and remember them",
		Long: `Verify the office user and password with one authorized call.

The password may also be supplied through OFFICE_PASSWORD. Without
--remember=true later commands cannot reuse the session.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("OFFICE_PASSWORD")
			}
			if err := a.engine.Sessions.Login(cmd.Context(), user, password, remember); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", user)
			if !remember {
				fmt.Fprintln(cmd.OutOrStdout(), "Credential not remembered; other commands will require a new login.")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "Office user")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Office password (or OFFICE_PASSWORD)")
	cmd.Flags().BoolVar(&remember, "remember", true, "Remember the credential for later commands")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the remembered credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.engine.Sessions.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}
