package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/iksnae/corner/internal"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	endpoint   string
	assumeYes  bool
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"
)

var errNotSignedIn = errors.New("not signed in (run 'corner login --token <id_token>')")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "corner",
	Short: "Group chat, polls and activity teams from the terminal",
	Long: `A terminal client for corner groups.

corner talks to the group backend on your behalf: it keeps your sign-in
credential, follows the group chat, lets you vote on and manage polls, and
organizes activity teams.

Quick Start:
  corner login --token <id_token>        # Sign in with an identity token
  corner groups list                     # List your groups
  corner chat watch <group-id>           # Follow a group's chat
  corner polls vote <group> <poll> <opt> # Cast a vote
  corner activities show <group> <id>    # Show an activity and its teams

Configuration is read from the config file, CORNER_* environment variables
(optionally from a .env file) and flags, in that order.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			internal.PrintWarning(fmt.Sprintf("Failed to load .env: %v", err))
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		internal.PrintError(fmt.Sprintf("Error: %v", err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default <config dir>/corner/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "Backend endpoint URL (overrides CORNER_API_ENDPOINT)")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "Answer yes to confirmation prompts")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// environment is what a command needs to talk to the backend
type environment struct {
	cfg   *internal.Config
	store *internal.SQLiteTokenStore
	ui    *terminalUI
	app   *internal.App
}

// newEnvironment loads the configuration, opens the credential store and wires an App
func newEnvironment(cmd *cobra.Command) (*environment, error) {
	return openEnvironment(cmd, internal.LoadConfig)
}

// newLocalEnvironment is newEnvironment without requiring an endpoint, for
// commands that only touch the credential store
func newLocalEnvironment(cmd *cobra.Command) (*environment, error) {
	return openEnvironment(cmd, internal.LoadLocalConfig)
}

func openEnvironment(cmd *cobra.Command, load func(string, ...func(*internal.Config)) (*internal.Config, error)) (*environment, error) {
	path := configPath
	if path == "" {
		path = internal.DefaultConfigPath()
	}
	cfg, err := load(path, func(c *internal.Config) {
		if endpoint != "" {
			c.APIEndpoint = endpoint
		}
	})
	if err != nil {
		return nil, err
	}
	if !verbose {
		level, _ := internal.ParseLogLevel(cfg.LogLevel)
		internal.SetLogLevel(level)
	}

	store, err := internal.OpenTokenStore(cfg.CredentialDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	ui := newTerminalUI(cmd.OutOrStdout(), cmd.ErrOrStderr(), cmd.InOrStdin(), assumeYes)
	app := internal.NewApp(cfg.APIEndpoint, store, ui.collaborators(), internal.AppOptions{
		PollInterval:   cfg.PollInterval,
		RequestTimeout: cfg.RequestTimeout,
	})
	return &environment{cfg: cfg, store: store, ui: ui, app: app}, nil
}

func (e *environment) Close() {
	e.app.Chat.Stop()
	if err := e.store.Close(); err != nil {
		internal.LogWarn("Failed to close credential store: %v", err)
	}
}

// signIn restores the stored session; it fails when nobody is signed in
func (e *environment) signIn(ctx context.Context) error {
	view, err := e.app.Start(ctx, "")
	if err != nil {
		return err
	}
	if view == internal.ViewLogin {
		return errNotSignedIn
	}
	return nil
}

// openTab signs in and shows tab v of groupID
func (e *environment) openTab(ctx context.Context, groupID string, v internal.View) error {
	if err := e.signIn(ctx); err != nil {
		return err
	}
	e.app.State.EnterGroup(groupID)
	return e.app.SwitchTab(ctx, v)
}

// withEnvironment runs fn with a wired environment that is closed afterwards
func withEnvironment(cmd *cobra.Command, fn func(ctx context.Context, env *environment) error) error {
	return withEnvironmentContext(cmd.Context(), cmd, fn)
}

func withEnvironmentContext(ctx context.Context, cmd *cobra.Command, fn func(ctx context.Context, env *environment) error) error {
	env, err := newEnvironment(cmd)
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(ctx, env)
}
