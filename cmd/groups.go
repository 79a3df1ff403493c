package cmd

import (
	"context"
	"fmt"

	"github.com/iksnae/corner/internal"
	"github.com/spf13/cobra"
)

var groupsDetails bool

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List, create and join groups",
}

var groupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your groups",
	Long: `List the groups you belong to. With --details every group's join code
is fetched as well.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			if err := env.signIn(ctx); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if !groupsDetails {
				groups, err := env.app.Groups.List(ctx)
				if err != nil {
					return err
				}
				if len(groups) == 0 {
					fmt.Fprintln(out, infoStyle.Render("You are not in any group yet."))
					return nil
				}
				for _, g := range groups {
					fmt.Fprintln(out, renderGroup(g, nil))
				}
				return nil
			}

			overview, err := env.app.Groups.Overview(ctx)
			if err != nil {
				return err
			}
			for _, entry := range overview {
				if entry.Err != nil {
					fmt.Fprintf(out, "%s  %s\n", renderGroup(entry.Group, nil),
						warningStyle.Render("details unavailable"))
					continue
				}
				fmt.Fprintln(out, renderGroup(entry.Group, &entry.Details))
			}
			return nil
		})
	},
}

var groupsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			if err := env.signIn(ctx); err != nil {
				return err
			}
			res, err := env.app.Groups.Create(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.GroupID)
			return nil
		})
	},
}

var groupsJoinCmd = &cobra.Command{
	Use:   "join <code>",
	Short: "Join a group with its code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			if err := env.signIn(ctx); err != nil {
				return err
			}
			res, err := env.app.Groups.Join(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.GroupID)
			return nil
		})
	},
}

var groupsShowCmd = &cobra.Command{
	Use:   "show <group-id>",
	Short: "Show a group's name, code and invitation link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			if err := env.signIn(ctx); err != nil {
				return err
			}
			env.app.State.EnterGroup(args[0])
			details, err := env.app.Groups.LoadDetails(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, sectionStyle.Render(details.Name))
			fmt.Fprintf(out, "%s %s\n", infoStyle.Render("Code:"), details.Code)
			fmt.Fprintf(out, "%s %s\n", infoStyle.Render("Invite:"), internal.ShareURL(env.cfg.ShareBaseURL, details.Code))
			return nil
		})
	},
}

var groupsResetCodeCmd = &cobra.Command{
	Use:   "reset-code <group-id>",
	Short: "Generate a new join code for a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			if err := env.signIn(ctx); err != nil {
				return err
			}
			env.app.State.EnterGroup(args[0])
			code, err := env.app.Groups.ResetCode(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), code)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(groupsCmd)
	groupsCmd.AddCommand(groupsListCmd)
	groupsCmd.AddCommand(groupsCreateCmd)
	groupsCmd.AddCommand(groupsJoinCmd)
	groupsCmd.AddCommand(groupsShowCmd)
	groupsCmd.AddCommand(groupsResetCodeCmd)

	groupsListCmd.Flags().BoolVar(&groupsDetails, "details", false, "Fetch every group's code")
}
