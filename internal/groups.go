package internal

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"
)

// maxOverviewFetches bounds concurrent getGroupDetails calls
const maxOverviewFetches = 4

// GroupClient is the subset of Client used for group management
type GroupClient interface {
	GetGroups(ctx context.Context) ([]Group, error)
	CreateGroup(ctx context.Context, name string) (GroupResult, error)
	JoinGroup(ctx context.Context, code string) (GroupResult, error)
	GetGroupDetails(ctx context.Context, groupID string) (GroupDetails, error)
	ResetGroupCode(ctx context.Context, groupID string) (ResetCodeResult, error)
}

// GroupOverview pairs a group with its details
type GroupOverview struct {
	Group   Group
	Details GroupDetails
	Err     error
}

// Groups handles the group list and group settings
type Groups struct {
	client GroupClient
	state  *AppState
	ui     Collaborators
}

// NewGroups creates the group component
func NewGroups(client GroupClient, state *AppState, ui Collaborators) *Groups {
	return &Groups{client: client, state: state, ui: ui.withDefaults()}
}

// List fetches the groups the user belongs to
func (g *Groups) List(ctx context.Context) ([]Group, error) {
	g.ui.Loader.Show("Loading groups...")
	defer g.ui.Loader.Hide()
	groups, err := g.client.GetGroups(ctx)
	if err != nil {
		g.ui.Notifier.Notify(fmt.Sprintf("Failed to load groups: %s", UserMessage(err)))
		return nil, err
	}
	return groups, nil
}

// Overview fetches the details of every group concurrently. A failed
// lookup is recorded on its entry and does not abort the others.
func (g *Groups) Overview(ctx context.Context) ([]GroupOverview, error) {
	groups, err := g.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]GroupOverview, len(groups))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxOverviewFetches)
	for i, group := range groups {
		i, group := i, group
		out[i].Group = group
		eg.Go(func() error {
			details, err := g.client.GetGroupDetails(egCtx, group.ID)
			if err != nil {
				if IsKind(err, KindSessionInvalid) || IsKind(err, KindAuthMissing) {
					return err
				}
				LogWarn("Details of group %s unavailable: %v", group.ID, err)
				out[i].Err = err
				return nil
			}
			out[i].Details = details
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Create creates a group named name
func (g *Groups) Create(ctx context.Context, name string) (GroupResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return GroupResult{}, &ValidationError{Field: "name", Reason: "Group name cannot be empty."}
	}
	res, err := g.client.CreateGroup(ctx, name)
	if err == nil && res.GroupID == "" {
		err = &APIError{Kind: KindRemote, Action: "createGroup", Message: messageOr(res.Message, "Failed to create group.")}
	}
	if err != nil {
		g.ui.Notifier.Notify(UserMessage(err))
		return GroupResult{}, err
	}
	g.ui.Notifier.Notify(fmt.Sprintf("Group %q created! Code: %s", name, res.Code))
	return res, nil
}

// NormalizeGroupCode trims and upper-cases a join code
func NormalizeGroupCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Join joins the group identified by a join code
func (g *Groups) Join(ctx context.Context, code string) (GroupResult, error) {
	code = NormalizeGroupCode(code)
	if code == "" {
		return GroupResult{}, &ValidationError{Field: "code", Reason: "Please enter a group code."}
	}
	res, err := g.client.JoinGroup(ctx, code)
	if err == nil && res.GroupID == "" {
		err = &APIError{Kind: KindRemote, Action: "joinGroup", Message: messageOr(res.Message, "Failed to join group.")}
	}
	if err != nil {
		g.ui.Notifier.Notify(UserMessage(err))
		return GroupResult{}, err
	}
	g.ui.Notifier.Notify("Successfully joined group!")
	return res, nil
}

// LoadDetails fetches the name and code of groupID and records them when
// the group is still active
func (g *Groups) LoadDetails(ctx context.Context, groupID string) (GroupDetails, error) {
	details, err := g.client.GetGroupDetails(ctx, groupID)
	if err != nil {
		return GroupDetails{}, err
	}
	if !g.state.SetGroupDetails(groupID, details) {
		LogDebug("Group %s no longer active, details not applied", groupID)
	}
	return details, nil
}

// ResetCode replaces the active group's join code after confirmation
func (g *Groups) ResetCode(ctx context.Context) (string, error) {
	groupID := g.state.GroupID()
	if groupID == "" {
		return "", ErrNoActiveGroup
	}
	if !g.ui.Confirmer.Confirm("Are you sure you want to generate a new code? The old one will stop working.") {
		return "", ErrCancelled
	}

	res, err := g.client.ResetGroupCode(ctx, groupID)
	if err == nil && res.NewCode == "" {
		err = &APIError{Kind: KindRemote, Action: "resetGroupCode", Message: messageOr(res.Message, "Failed to reset code.")}
	}
	if err != nil {
		g.ui.Notifier.Notify(UserMessage(err))
		return "", err
	}
	g.state.SetGroupCode(groupID, res.NewCode)
	g.ui.Notifier.Notify(messageOr(res.Message, "Group code has been reset."))
	return res.NewCode, nil
}

// ShareURL builds the invitation link for a join code
func ShareURL(base, code string) string {
	if i := strings.IndexByte(base, '#'); i >= 0 {
		base = base[:i]
	}
	return base + "#join=" + url.QueryEscape(NormalizeGroupCode(code))
}

func messageOr(msg, fallback string) string {
	if strings.TrimSpace(msg) == "" {
		return fallback
	}
	return msg
}
