package internal

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// DetailState is the view-model of the open activity
type DetailState struct {
	Activity         Activity
	Hidden           map[string]bool // member cards hidden pending a move
	Saving           string          // field or "teams" awaiting a reply
	ControlsDisabled bool
}

// Clone returns a deep copy of the detail state
func (d DetailState) Clone() DetailState {
	out := d
	out.Activity = d.Activity.Clone()
	out.Hidden = make(map[string]bool, len(d.Hidden))
	for k, v := range d.Hidden {
		out.Hidden[k] = v
	}
	return out
}

func detailFrom(a *Activity) *DetailState {
	return &DetailState{Activity: *a, Hidden: map[string]bool{}}
}

// ActivityClient is the subset of Client used for activities
type ActivityClient interface {
	GetActivities(ctx context.Context, groupID string) ([]ActivitySummary, error)
	GetActivityDetail(ctx context.Context, groupID, activityID string) (*Activity, error)
	CreateActivity(ctx context.Context, groupID, title, description string) (ActivitySummary, error)
	DeleteActivity(ctx context.Context, groupID, activityID string) error
	UpdateActivityDetail(ctx context.Context, groupID, activityID, field, value string) (*Activity, error)
	UpdateTeams(ctx context.Context, groupID, activityID, change string) (*Activity, error)
	AssignTeamMember(ctx context.Context, groupID, activityID, memberID, teamID string) (*Activity, error)
}

// Activities manages the activity list and the open activity detail
type Activities struct {
	client ActivityClient
	state  *AppState
	ctrl   *MutationController
	ui     Collaborators

	mu     sync.Mutex
	detail *DetailState
}

// NewActivities creates the activity component
func NewActivities(client ActivityClient, state *AppState, ctrl *MutationController, ui Collaborators) *Activities {
	return &Activities{client: client, state: state, ctrl: ctrl, ui: ui.withDefaults()}
}

// Snapshot implements ViewModel
func (a *Activities) Snapshot() DetailState {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.detail == nil {
		return DetailState{Hidden: map[string]bool{}}
	}
	return a.detail.Clone()
}

// Restore implements ViewModel: replace the cache and re-render the board
func (a *Activities) Restore(d DetailState) {
	a.mu.Lock()
	cp := d.Clone()
	a.detail = &cp
	a.mu.Unlock()
	a.render(cp)
}

func (a *Activities) render(d DetailState) {
	a.ui.Activities.RenderActivity(d, BuildTeamBoard(d))
}

// Detail returns the open activity detail
func (a *Activities) Detail() (DetailState, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.detail == nil {
		return DetailState{}, false
	}
	return a.detail.Clone(), true
}

func (a *Activities) openDetail() (groupID string, d DetailState, err error) {
	groupID = a.state.GroupID()
	d, ok := a.Detail()
	if !ok || !a.state.IsActivityOpen(groupID, d.Activity.ID) {
		return "", DetailState{}, ErrNoActivityOpen
	}
	return groupID, d, nil
}

func (a *Activities) activeGroup() (string, error) {
	groupID := a.state.GroupID()
	if groupID == "" {
		return "", ErrNoActiveGroup
	}
	return groupID, nil
}

// List fetches the activity summaries of the active group
func (a *Activities) List(ctx context.Context) ([]ActivitySummary, error) {
	groupID, err := a.activeGroup()
	if err != nil {
		return nil, err
	}
	list, err := a.client.GetActivities(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !a.state.IsActiveGroup(groupID) {
		return nil, ErrStaleResponse
	}
	return list, nil
}

// Open loads an activity detail and makes it the view on screen
func (a *Activities) Open(ctx context.Context, activityID string) (DetailState, error) {
	groupID, err := a.activeGroup()
	if err != nil {
		return DetailState{}, err
	}
	gen := a.state.OpenActivity(activityID)

	a.ui.Loader.Show("Loading activity...")
	act, err := a.client.GetActivityDetail(ctx, groupID, activityID)
	a.ui.Loader.Hide()

	if !a.state.IsCurrent(gen) {
		LogDebug("Discarding detail of %s: navigated away", activityID)
		return DetailState{}, ErrStaleResponse
	}
	if err != nil {
		a.ui.Notifier.Notify(fmt.Sprintf("Failed to load activity: %s", UserMessage(err)))
		return DetailState{}, err
	}

	d := detailFrom(act)
	a.Restore(*d)
	return *d, nil
}

// Close returns to the activity list
func (a *Activities) Close() {
	a.state.CloseActivity()
	a.mu.Lock()
	a.detail = nil
	a.mu.Unlock()
}

func (a *Activities) isOpen(groupID, activityID string) func() bool {
	return func() bool { return a.state.IsActivityOpen(groupID, activityID) }
}

func displayTitle(a Activity) string {
	if a.Title == "" {
		return "this activity"
	}
	return a.Title
}

// EditField saves one editable field. An unchanged value is a no-op.
func (a *Activities) EditField(ctx context.Context, field, value string) error {
	if !IsEditableField(field) {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("%q cannot be edited", field)}
	}
	groupID, d, err := a.openDetail()
	if err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	if value == d.Activity.Field(field) {
		LogDebug("No change detected for %s", field)
		return nil
	}
	activityID := d.Activity.ID

	_, err = RunMutation[DetailState](ctx, a.ctrl, a, Mutation[DetailState]{
		Name:    "update " + field,
		GroupID: groupID,
		Apply: func(s DetailState) DetailState {
			s.Activity.SetField(field, value)
			s.Saving = field
			return s
		},
		Send: func(ctx context.Context) (*DetailState, error) {
			act, err := a.client.UpdateActivityDetail(ctx, groupID, activityID, field, value)
			if err != nil || act == nil {
				return nil, err
			}
			return detailFrom(act), nil
		},
		Merge: func(s DetailState) DetailState {
			s.Activity.SetField(field, value)
			s.Saving = ""
			return s
		},
		Active: a.isOpen(groupID, activityID),
		Describe: func(s DetailState, actor *Session) string {
			if actor == nil {
				return ""
			}
			return strings.ToUpper(fmt.Sprintf("%s UPDATED %s FOR ACTIVITY '%s'",
				actor.Name, field, displayTitle(s.Activity)))
		},
		FailureMessage: fmt.Sprintf("Failed to save %s. Reverting changes.", field),
	})
	return err
}

// ChangeTeamCount adds (+1) or removes (-1) a team within MinTeams..MaxTeams
func (a *Activities) ChangeTeamCount(ctx context.Context, change string) error {
	groupID, d, err := a.openDetail()
	if err != nil {
		return err
	}
	count := d.Activity.TeamCount
	switch change {
	case TeamIncrement:
		if count >= MaxTeams {
			return &ValidationError{Field: "teams", Reason: fmt.Sprintf("An activity can have at most %d teams.", MaxTeams)}
		}
	case TeamDecrement:
		if count <= MinTeams {
			return &ValidationError{Field: "teams", Reason: fmt.Sprintf("An activity needs at least %d team.", MinTeams)}
		}
	default:
		return &ValidationError{Field: "change", Reason: fmt.Sprintf("change must be %q or %q", TeamIncrement, TeamDecrement)}
	}
	activityID := d.Activity.ID

	_, err = RunMutation[DetailState](ctx, a.ctrl, a, Mutation[DetailState]{
		Name:    "update teams",
		GroupID: groupID,
		Apply: func(s DetailState) DetailState {
			s.Saving = "teams"
			s.ControlsDisabled = true
			return s
		},
		Send: func(ctx context.Context) (*DetailState, error) {
			act, err := a.client.UpdateTeams(ctx, groupID, activityID, change)
			if err != nil {
				return nil, err
			}
			return detailFrom(act), nil
		},
		Active: a.isOpen(groupID, activityID),
		Describe: func(s DetailState, actor *Session) string {
			if actor == nil {
				return ""
			}
			return strings.ToUpper(fmt.Sprintf("%s ADJUSTED TEAMS FOR ACTIVITY '%s'",
				actor.Name, displayTitle(s.Activity)))
		},
		FailureMessage: "Failed to update teams.",
	})
	return err
}

// MoveMember drops member email onto targetTeam. The source team is read
// from the current board; dropping on the same team does nothing.
func (a *Activities) MoveMember(ctx context.Context, email, targetTeam string) error {
	groupID, d, err := a.openDetail()
	if err != nil {
		return err
	}
	board := BuildTeamBoard(d)
	if !board.HasZone(targetTeam) {
		return &ValidationError{Field: "team", Reason: fmt.Sprintf("unknown team %q", targetTeam)}
	}
	source, ok := board.ResolveSource(email)
	if !ok {
		LogError("Drop aborted: %s not found in any team of activity %s", email, d.Activity.ID)
		return fmt.Errorf("%s: %w", email, ErrUnresolvedSource)
	}
	if source == targetTeam {
		return nil
	}
	activityID := d.Activity.ID

	_, err = RunMutation[DetailState](ctx, a.ctrl, a, Mutation[DetailState]{
		Name:    "assign team member",
		GroupID: groupID,
		Apply: func(s DetailState) DetailState {
			s.Hidden[email] = true
			return s
		},
		Send: func(ctx context.Context) (*DetailState, error) {
			act, err := a.client.AssignTeamMember(ctx, groupID, activityID, email, targetTeam)
			if err != nil {
				return nil, err
			}
			return detailFrom(act), nil
		},
		Active: a.isOpen(groupID, activityID),
		Describe: func(s DetailState, actor *Session) string {
			if m, ok := s.Activity.Members[email]; actor != nil && ok {
				name := m.Name
				if name == "" {
					name = email
				}
				return strings.ToUpper(fmt.Sprintf("%s MOVED %s TO %s FOR ACTIVITY '%s'",
					actor.Name, name, targetTeam, displayTitle(s.Activity)))
			}
			LogWarn("Cannot compose move message: missing member or current user")
			return strings.ToUpper(fmt.Sprintf("TEAMS UPDATED FOR ACTIVITY '%s'", displayTitle(s.Activity)))
		},
		FailureMessage: "Failed to move member.",
	})
	return err
}

// Create adds an activity to the active group
func (a *Activities) Create(ctx context.Context, title, description string) (ActivitySummary, error) {
	groupID, err := a.activeGroup()
	if err != nil {
		return ActivitySummary{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return ActivitySummary{}, &ValidationError{Field: "title", Reason: "Please enter an activity title."}
	}
	created, err := a.client.CreateActivity(ctx, groupID, title, strings.TrimSpace(description))
	if err != nil {
		a.ui.Notifier.Notify(fmt.Sprintf("Failed to create activity: %s", UserMessage(err)))
		return ActivitySummary{}, err
	}
	return created, nil
}

// Delete removes an activity after confirmation
func (a *Activities) Delete(ctx context.Context, activityID, title string) error {
	groupID, err := a.activeGroup()
	if err != nil {
		return err
	}
	prompt := fmt.Sprintf("Are you sure you want to permanently delete the activity %q? This cannot be undone.", title)
	if !a.ui.Confirmer.Confirm(prompt) {
		return ErrCancelled
	}

	a.ui.Loader.Show("Deleting activity...")
	err = a.client.DeleteActivity(ctx, groupID, activityID)
	a.ui.Loader.Hide()
	if err != nil {
		a.ui.Notifier.Notify(fmt.Sprintf("Failed to delete activity: %s", UserMessage(err)))
		return err
	}

	if d, ok := a.Detail(); ok && d.Activity.ID == activityID {
		a.Close()
	}
	a.ui.Notifier.Notify(fmt.Sprintf("Activity %q deleted successfully.", title))
	return nil
}
