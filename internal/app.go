package internal

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// AppOptions tunes the wiring of an App
type AppOptions struct {
	PollInterval   time.Duration
	RequestTimeout time.Duration
	HTTPClient     *http.Client
}

// App wires the gateway, session and view components around one AppState
type App struct {
	State      *AppState
	Gateway    *Gateway
	Client     *Client
	Session    *SessionManager
	Chat       *ChatSynchronizer
	Polls      *Polls
	Activities *Activities
	Groups     *Groups

	ui           Collaborators
	pollInterval time.Duration

	mu      sync.Mutex
	chatCtx context.Context
}

// NewApp builds an App talking to endpoint with credentials from tokens
func NewApp(endpoint string, tokens TokenStore, ui Collaborators, opts AppOptions) *App {
	ui = ui.withDefaults()
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultChatPollInterval
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = DefaultRequestTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	a := &App{
		State:        NewAppState(),
		ui:           ui,
		pollInterval: opts.PollInterval,
		chatCtx:      context.Background(),
	}
	a.Gateway = NewGateway(endpoint, tokens, WithHTTPClient(httpClient))
	a.Client = NewClient(a.Gateway)
	a.Session = NewSessionManager(tokens, a.Client, ui.Identity, appNavigator{a})
	a.Gateway.SetAuthFailureHandler(a.Session.Logout)

	a.Chat = NewChatSynchronizer(a.Client, a.State, ui.Chat, ui.Notifier)
	ctrl := NewMutationController(a.Session, a.Chat, ui.Notifier)
	a.Polls = NewPolls(a.Client, a.State, ctrl, ui)
	a.Activities = NewActivities(a.Client, a.State, ctrl, ui)
	a.Groups = NewGroups(a.Client, a.State, ui)
	return a
}

// appNavigator tears down the group views before handing over to the login view
type appNavigator struct{ app *App }

func (n appNavigator) ShowLogin() {
	n.app.Chat.Stop()
	n.app.State.Reset()
	n.app.ui.Navigator.ShowLogin()
}

// RouteKind identifies a location fragment
type RouteKind int

const (
	RouteHome RouteKind = iota
	RouteGroup
	RouteJoin
)

// Route is a parsed location fragment
type Route struct {
	Kind    RouteKind
	GroupID string
	Code    string
}

// ParseRoute parses "", "group/<id>" and "join=<code>", with or without a leading '#'.
// Anything else routes home.
func ParseRoute(fragment string) Route {
	fragment = strings.TrimPrefix(strings.TrimSpace(fragment), "#")
	switch {
	case strings.HasPrefix(fragment, "group/"):
		if id := strings.TrimPrefix(fragment, "group/"); id != "" {
			return Route{Kind: RouteGroup, GroupID: id}
		}
	case strings.HasPrefix(fragment, "join="):
		if code := NormalizeGroupCode(strings.TrimPrefix(fragment, "join=")); code != "" {
			return Route{Kind: RouteJoin, Code: code}
		}
	case fragment != "":
		LogWarn("Unknown route %q, showing group list", fragment)
	}
	return Route{Kind: RouteHome}
}

// Start restores the stored session and routes to fragment. ctx bounds
// the lifetime of background chat polling.
func (a *App) Start(ctx context.Context, fragment string) (View, error) {
	a.mu.Lock()
	a.chatCtx = ctx
	a.mu.Unlock()

	a.Session.RestoreSession(ctx)
	return a.Navigate(ctx, fragment)
}

// Navigate shows the view for fragment. Chat polling is stopped on every
// navigation; unauthenticated users always land on the login view.
func (a *App) Navigate(ctx context.Context, fragment string) (View, error) {
	a.Chat.Stop()

	if a.Session.State() != StateAuthenticated {
		a.State.Reset()
		a.ui.Navigator.ShowLogin()
		return ViewLogin, nil
	}

	route := ParseRoute(fragment)
	switch route.Kind {
	case RouteGroup:
		return ViewChat, a.OpenGroup(ctx, route.GroupID)
	case RouteJoin:
		res, err := a.Groups.Join(ctx, route.Code)
		if err != nil {
			a.State.LeaveGroup()
			return ViewGroupList, err
		}
		return ViewChat, a.OpenGroup(ctx, res.GroupID)
	}
	a.State.LeaveGroup()
	return ViewGroupList, nil
}

// OpenGroup makes groupID active, loads its details and starts chat polling
func (a *App) OpenGroup(ctx context.Context, groupID string) error {
	if strings.TrimSpace(groupID) == "" {
		return &ValidationError{Field: "group", Reason: "group id is required"}
	}
	a.Chat.Stop()
	a.State.EnterGroup(groupID)

	if _, err := a.Groups.LoadDetails(ctx, groupID); err != nil {
		LogWarn("Failed to load details of group %s: %v", groupID, err)
		if IsKind(err, KindSessionInvalid) || IsKind(err, KindAuthMissing) {
			return err
		}
	}
	a.Chat.Start(a.pollContext(), groupID, a.pollInterval)
	return nil
}

func (a *App) pollContext() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.chatCtx
}

// SwitchTab changes the tab of the active group. The chat tab restarts
// polling; the polls tab reloads the poll list.
func (a *App) SwitchTab(ctx context.Context, v View) error {
	groupID := a.State.GroupID()
	if groupID == "" {
		return ErrNoActiveGroup
	}
	if v != ViewChat && v != ViewPolls && v != ViewActivities {
		return &ValidationError{Field: "tab", Reason: fmt.Sprintf("%s is not a group tab", v)}
	}

	a.Chat.Stop()
	a.State.SwitchView(v)

	switch v {
	case ViewChat:
		a.Chat.Start(a.pollContext(), groupID, a.pollInterval)
	case ViewPolls:
		_, err := a.Polls.Load(ctx)
		return err
	}
	return nil
}

// Logout signs out and returns to the login view
func (a *App) Logout() {
	a.Session.Logout()
}

// BuildTranscript collects the chat history, polls and activities of
// groupID for export. Activity details are fetched concurrently.
func (a *App) BuildTranscript(ctx context.Context, groupID string) (*Transcript, error) {
	t := &Transcript{GroupID: groupID, ExportedAt: time.Now().UTC()}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		details, err := a.Client.GetGroupDetails(egCtx, groupID)
		if err != nil {
			return fmt.Errorf("group details: %w", err)
		}
		t.GroupName = details.Name
		return nil
	})
	eg.Go(func() error {
		msgs, err := a.Client.GetChat(egCtx, groupID, 0)
		if err != nil {
			return fmt.Errorf("chat: %w", err)
		}
		log := NewChatLog()
		log.Merge(msgs)
		t.Messages = log.Messages()
		return nil
	})
	eg.Go(func() error {
		polls, err := a.Client.GetPolls(egCtx, groupID)
		if err != nil {
			return fmt.Errorf("polls: %w", err)
		}
		t.Polls = polls
		return nil
	})
	var summaries []ActivitySummary
	eg.Go(func() error {
		var err error
		summaries, err = a.Client.GetActivities(egCtx, groupID)
		if err != nil {
			return fmt.Errorf("activities: %w", err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	activities := make([]Activity, len(summaries))
	eg, egCtx = errgroup.WithContext(ctx)
	eg.SetLimit(maxOverviewFetches)
	for i, s := range summaries {
		i, s := i, s
		eg.Go(func() error {
			act, err := a.Client.GetActivityDetail(egCtx, groupID, s.ID)
			if err != nil {
				return fmt.Errorf("activity %s: %w", s.ID, err)
			}
			activities[i] = *act
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	sort.SliceStable(activities, func(i, j int) bool { return activities[i].Title < activities[j].Title })
	t.Activities = activities
	return t, nil
}
