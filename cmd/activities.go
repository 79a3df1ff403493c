package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/iksnae/corner/internal"
	"github.com/spf13/cobra"
)

var (
	activityTitle       string
	activityDescription string
)

var activitiesCmd = &cobra.Command{
	Use:     "activities",
	Aliases: []string{"activity"},
	Short:   "Plan activities and organize their teams",
}

// openActivity shows the activities tab of groupID and loads activityID
func openActivity(ctx context.Context, env *environment, groupID, activityID string) error {
	if err := env.openTab(ctx, groupID, internal.ViewActivities); err != nil {
		return err
	}
	_, err := env.app.Activities.Open(ctx, activityID)
	return err
}

// teamArg accepts "unassigned", "team3" or a bare team number
func teamArg(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		return fmt.Sprintf("team%d", n)
	}
	return s
}

var activitiesListCmd = &cobra.Command{
	Use:   "list <group-id>",
	Short: "List a group's activities",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			if err := env.openTab(ctx, args[0], internal.ViewActivities); err != nil {
				return err
			}
			return printActivities(ctx, cmd, env)
		})
	},
}

// printActivities lists the activities of the active group
func printActivities(ctx context.Context, cmd *cobra.Command, env *environment) error {
	list, err := env.app.Activities.List(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, infoStyle.Render("No activities yet."))
		return nil
	}
	for _, a := range list {
		fmt.Fprintf(out, "%s  %s\n", authorStyle.Render(a.Title), timeStyle.Render("["+a.ID+"]"))
	}
	return nil
}

var activitiesShowCmd = &cobra.Command{
	Use:   "show <group-id> <activity-id>",
	Short: "Show an activity and its team board",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			if err := openActivity(ctx, env, args[0], args[1]); err != nil {
				return err
			}
			env.ui.printActivity()
			return nil
		})
	},
}

var activitiesCreateCmd = &cobra.Command{
	Use:   "create <group-id>",
	Short: "Create an activity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			if err := env.openTab(ctx, args[0], internal.ViewActivities); err != nil {
				return err
			}
			created, err := env.app.Activities.Create(ctx, activityTitle, activityDescription)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), created.ID)
			return nil
		})
	},
}

var activitiesDeleteCmd = &cobra.Command{
	Use:   "delete <group-id> <activity-id>",
	Short: "Delete an activity",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			if err := env.openTab(ctx, args[0], internal.ViewActivities); err != nil {
				return err
			}
			title := args[1]
			if list, err := env.app.Activities.List(ctx); err == nil {
				for _, a := range list {
					if a.ID == args[1] {
						title = a.Title
					}
				}
			}
			if err := env.app.Activities.Delete(ctx, args[1], title); err != nil {
				return fmt.Errorf("delete activity %s: %w", args[1], err)
			}
			return nil
		})
	},
}

var activitiesEditCmd = &cobra.Command{
	Use:   "edit <group-id> <activity-id> <field> <value...>",
	Short: "Change an activity's title, description, materials or time",
	Args:  cobra.MinimumNArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		field := strings.ToLower(args[2])
		if !internal.IsEditableField(field) {
			return fmt.Errorf("unknown field %q (title, description, materials, time)", args[2])
		}
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			if err := openActivity(ctx, env, args[0], args[1]); err != nil {
				return err
			}
			if err := env.app.Activities.EditField(ctx, field, strings.Join(args[3:], " ")); err != nil {
				return err
			}
			env.ui.printActivity()
			return nil
		})
	},
}

var activitiesTeamsCmd = &cobra.Command{
	Use:       "teams <group-id> <activity-id> add|remove",
	Short:     "Add or remove a team",
	Args:      cobra.ExactArgs(3),
	ValidArgs: []string{"add", "remove"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var change string
		switch args[2] {
		case "add":
			change = internal.TeamIncrement
		case "remove":
			change = internal.TeamDecrement
		default:
			return fmt.Errorf("expected add or remove, got %q", args[2])
		}
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			if err := openActivity(ctx, env, args[0], args[1]); err != nil {
				return err
			}
			if err := env.app.Activities.ChangeTeamCount(ctx, change); err != nil {
				return err
			}
			env.ui.printActivity()
			return nil
		})
	},
}

var activitiesMoveCmd = &cobra.Command{
	Use:   "move <group-id> <activity-id> <member-email> <team>",
	Short: "Move a member to a team",
	Long: `Move a member to another team. <team> is a team number, a team id such
as team2, or "unassigned".`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			if err := openActivity(ctx, env, args[0], args[1]); err != nil {
				return err
			}
			if err := env.app.Activities.MoveMember(ctx, args[2], teamArg(args[3])); err != nil {
				return err
			}
			env.ui.printActivity()
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(activitiesCmd)
	activitiesCmd.AddCommand(activitiesListCmd)
	activitiesCmd.AddCommand(activitiesShowCmd)
	activitiesCmd.AddCommand(activitiesCreateCmd)
	activitiesCmd.AddCommand(activitiesDeleteCmd)
	activitiesCmd.AddCommand(activitiesEditCmd)
	activitiesCmd.AddCommand(activitiesTeamsCmd)
	activitiesCmd.AddCommand(activitiesMoveCmd)

	activitiesCreateCmd.Flags().StringVar(&activityTitle, "title", "", "Activity title")
	activitiesCreateCmd.Flags().StringVar(&activityDescription, "description", "", "Activity description")
}
