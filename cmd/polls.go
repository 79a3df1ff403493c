package cmd

import (
	"context"
	"fmt"

	"github.com/iksnae/corner/internal"
	"github.com/spf13/cobra"
)

var (
	pollTitle   string
	pollOptions []string
)

var pollsCmd = &cobra.Command{
	Use:   "polls",
	Short: "View, vote on and manage a group's polls",
}

var pollsListCmd = &cobra.Command{
	Use:   "list <group-id>",
	Short: "Show a group's polls with their results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			if err := env.openTab(ctx, args[0], internal.ViewPolls); err != nil {
				return err
			}
			env.ui.printPolls()
			return nil
		})
	},
}

var pollsVoteCmd = &cobra.Command{
	Use:   "vote <group-id> <poll-id> <option-id>",
	Short: "Vote for a poll option",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			if err := env.openTab(ctx, args[0], internal.ViewPolls); err != nil {
				return err
			}
			if err := env.app.Polls.Vote(ctx, args[1], args[2]); err != nil {
				return err
			}
			env.ui.printPolls()
			return nil
		})
	},
}

var pollsCreateCmd = &cobra.Command{
	Use:   "create <group-id>",
	Short: "Create a poll",
	Long: `Create a poll with a title and at least two options:

  corner polls create <group-id> --title "Lunch?" --option Pizza --option Tacos`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			if err := env.openTab(ctx, args[0], internal.ViewPolls); err != nil {
				return err
			}
			if _, err := env.app.Polls.Create(ctx, pollTitle, pollOptions); err != nil {
				return err
			}
			env.ui.printPolls()
			return nil
		})
	},
}

var pollsInfoCmd = &cobra.Command{
	Use:   "info <group-id> <poll-id>",
	Short: "Show per-option statistics of a poll",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			if err := env.openTab(ctx, args[0], internal.ViewPolls); err != nil {
				return err
			}
			_, err := env.app.Polls.Info(ctx, args[1])
			return err
		})
	},
}

var pollsDeleteCmd = &cobra.Command{
	Use:   "delete <group-id> <poll-id>",
	Short: "Delete a poll",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			if err := env.openTab(ctx, args[0], internal.ViewPolls); err != nil {
				return err
			}
			if err := env.app.Polls.Delete(ctx, args[1]); err != nil {
				return fmt.Errorf("delete poll %s: %w", args[1], err)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(pollsCmd)
	pollsCmd.AddCommand(pollsListCmd)
	pollsCmd.AddCommand(pollsVoteCmd)
	pollsCmd.AddCommand(pollsCreateCmd)
	pollsCmd.AddCommand(pollsInfoCmd)
	pollsCmd.AddCommand(pollsDeleteCmd)

	pollsCreateCmd.Flags().StringVar(&pollTitle, "title", "", "Poll title")
	pollsCreateCmd.Flags().StringArrayVar(&pollOptions, "option", nil, "Poll option (repeat for each option)")
}
