package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/iksnae/corner/internal"
	"github.com/spf13/cobra"
)

var (
	openWatch bool
	openTab   string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Read and write a group's chat",
}

// openGroupChat signs in and routes to groupID's chat, printing its history
func openGroupChat(ctx context.Context, env *environment, groupID string) error {
	view, err := env.app.Start(ctx, "group/"+groupID)
	if err != nil {
		return err
	}
	if view == internal.ViewLogin {
		return errNotSignedIn
	}
	return nil
}

// followUntilInterrupted keeps chat polling alive until ctx ends or the user interrupts
func followUntilInterrupted(ctx context.Context, cmd *cobra.Command) {
	fmt.Fprintln(cmd.ErrOrStderr(), timeStyle.Render("Following chat, press Ctrl+C to stop."))
	<-ctx.Done()
}

var chatShowCmd = &cobra.Command{
	Use:   "show <group-id>",
	Short: "Print a group's chat history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			return openGroupChat(ctx, env, args[0])
		})
	},
}

var chatWatchCmd = &cobra.Command{
	Use:   "watch <group-id>",
	Short: "Print a group's chat and follow new messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return withEnvironmentContext(ctx, cmd, func(ctx context.Context, env *environment) error {
			if err := openGroupChat(ctx, env, args[0]); err != nil {
				return err
			}
			followUntilInterrupted(ctx, cmd)
			return nil
		})
	},
}

var chatSendCmd = &cobra.Command{
	Use:   "send <group-id> <message...>",
	Short: "Send a message to a group",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args[1:], " ")
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("message cannot be empty")
		}
		return withEnvironment(cmd, func(ctx context.Context, env *environment) error {
			if err := openGroupChat(ctx, env, args[0]); err != nil {
				return err
			}
			return env.app.Chat.SendMessage(ctx, args[0], text)
		})
	},
}

var openCmd = &cobra.Command{
	Use:   "open <link>",
	Short: "Open an invitation or group link",
	Long: `Open a location fragment the way the web client does:

  corner open '#join=ABC123'   # join a group by code, then show its chat
  corner open '#group/<id>'    # show a group's chat
  corner open ''               # list your groups

Use --tab to land on a group's polls or activities instead of its chat.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fragment := ""
		if len(args) == 1 {
			fragment = args[0]
		}
		tab, ok := internal.ParseView(openTab)
		if !ok {
			return &internal.ValidationError{Field: "tab", Reason: fmt.Sprintf("unknown tab %q (chat, polls, activities)", openTab)}
		}
		ctx := cmd.Context()
		if openWatch {
			var stop context.CancelFunc
			ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
		}

		return withEnvironmentContext(ctx, cmd, func(ctx context.Context, env *environment) error {
			view, err := env.app.Start(ctx, fragment)
			if err != nil {
				return err
			}
			switch view {
			case internal.ViewLogin:
				return errNotSignedIn
			case internal.ViewGroupList:
				groups, err := env.app.Groups.List(ctx)
				if err != nil {
					return err
				}
				for _, g := range groups {
					fmt.Fprintln(cmd.OutOrStdout(), renderGroup(g, nil))
				}
				return nil
			}
			switch tab {
			case internal.ViewPolls:
				if err := env.app.SwitchTab(ctx, tab); err != nil {
					return err
				}
				env.ui.printPolls()
				return nil
			case internal.ViewActivities:
				if err := env.app.SwitchTab(ctx, tab); err != nil {
					return err
				}
				return printActivities(ctx, cmd, env)
			}
			if openWatch {
				followUntilInterrupted(ctx, cmd)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(openCmd)
	chatCmd.AddCommand(chatShowCmd)
	chatCmd.AddCommand(chatWatchCmd)
	chatCmd.AddCommand(chatSendCmd)

	openCmd.Flags().BoolVar(&openWatch, "watch", false, "Keep following the chat after opening a group")
	openCmd.Flags().StringVar(&openTab, "tab", "chat", "Tab to show after opening a group (chat, polls, activities)")
}
