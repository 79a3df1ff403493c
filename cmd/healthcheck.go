package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/iksnae/corner/internal"
	"github.com/spf13/cobra"
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that corner is configured and can reach the backend",
	Long: `Check the health of corner by verifying:
  • Configuration (file, environment and flags)
  • Credential store access
  • Backend endpoint reachability
  • Stored credential verification

This command is useful for debugging setup issues.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, sectionStyle.Render("🔍 corner Health Check"))
		fmt.Fprintln(out)

		// Step 1: Configuration
		fmt.Fprintln(out, infoStyle.Render("Step 1: Loading configuration..."))
		env, err := newEnvironment(cmd)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Configuration invalid:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		defer env.Close()
		fmt.Fprintln(out, successStyle.Render("✅ Configuration loaded"))
		if verbose {
			fmt.Fprintf(out, "   Endpoint: %s\n", env.cfg.APIEndpoint)
			fmt.Fprintf(out, "   Data dir: %s\n", env.cfg.DataDir)
			fmt.Fprintf(out, "   Poll interval: %s\n", env.cfg.PollInterval)
		}
		fmt.Fprintln(out)

		// Step 2: Credential store
		fmt.Fprintln(out, infoStyle.Render("Step 2: Checking credential store..."))
		token, err := env.store.LoadToken()
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Credential store unreadable:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		fmt.Fprintln(out, successStyle.Render("✅ Credential store accessible"))
		if verbose {
			fmt.Fprintf(out, "   Database: %s\n", env.store.Path())
		}
		fmt.Fprintln(out)

		// Step 3: Endpoint
		fmt.Fprintln(out, infoStyle.Render("Step 3: Reaching backend endpoint..."))
		if err := pingEndpoint(cmd.Context(), env.cfg); err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Backend unreachable:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		fmt.Fprintln(out, successStyle.Render("✅ Backend reachable"))
		fmt.Fprintln(out)

		// Step 4: Session
		fmt.Fprintln(out, infoStyle.Render("Step 4: Verifying stored credential..."))
		if token == "" {
			fmt.Fprintln(out, warningStyle.Render("⚠️  Not signed in"))
			fmt.Fprintln(out)
			fmt.Fprintln(out, warningStyle.Render("⚠️  Setup works but no user is signed in"))
			return nil
		}
		if state := env.app.Session.RestoreSession(cmd.Context()); state != internal.StateAuthenticated {
			fmt.Fprintln(out, errorStyle.Render("❌ Stored credential was rejected"))
			return fmt.Errorf("health check failed: stored credential is no longer valid")
		}
		s, _ := env.app.Session.Current()
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Signed in as %s", s.ID)))
		fmt.Fprintln(out)

		fmt.Fprintln(out, successStyle.Render("✅ Health check passed!"))
		return nil
	},
}

// pingEndpoint issues a bare GET; any HTTP answer counts as reachable
func pingEndpoint(ctx context.Context, cfg *internal.Config) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.APIEndpoint, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	internal.LogDebug("Endpoint answered %s", resp.Status)
	return nil
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
}
