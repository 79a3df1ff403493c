package cmd

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/iksnae/corner/internal"
	"github.com/spf13/cobra"
)

var loginToken string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with an identity token",
	Long: `Verify an identity token issued by the sign-in provider and store it
for later commands. Without --token the token is read from standard input.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		token := loginToken
		if token == "" {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("failed to read token: %w", err)
			}
			token = strings.TrimSpace(line)
		}

		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			if err := env.app.Session.CompleteSignIn(ctx, token); err != nil {
				return fmt.Errorf("sign-in failed: %s", internal.UserMessage(err))
			}
			s, _ := env.app.Session.Current()
			fmt.Fprintf(cmd.OutOrStdout(), "%s Signed in as %s <%s>\n", successStyle.Render("✓"), s.Name, s.ID)
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored credential",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newLocalEnvironment(cmd)
		if err != nil {
			return err
		}
		defer env.Close()
		env.app.Logout()
		fmt.Fprintf(cmd.OutOrStdout(), "%s Signed out\n", successStyle.Render("✓"))
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			if err := env.signIn(ctx); err != nil {
				return err
			}
			s, _ := env.app.Session.Current()
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", authorStyle.Render(s.Name), s.ID)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)

	loginCmd.Flags().StringVar(&loginToken, "token", "", "Identity token (read from stdin when empty)")
}
