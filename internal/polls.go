package internal

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// PollState is one poll as rendered, with its vote in flight flag
type PollState struct {
	Poll    Poll
	Pending bool
}

// PollClient is the subset of Client used for polls
type PollClient interface {
	GetPolls(ctx context.Context, groupID string) ([]Poll, error)
	CreatePoll(ctx context.Context, groupID, title string, options []string) (Poll, error)
	DeletePoll(ctx context.Context, groupID, pollID string) error
	CastVote(ctx context.Context, groupID, pollID, optionID string) error
	GetPollInfo(ctx context.Context, groupID, pollID string) (PollInfo, error)
}

// Polls manages the poll list of the active group
type Polls struct {
	client PollClient
	state  *AppState
	ctrl   *MutationController
	ui     Collaborators

	mu    sync.Mutex
	polls []PollState
}

// NewPolls creates the poll component
func NewPolls(client PollClient, state *AppState, ctrl *MutationController, ui Collaborators) *Polls {
	return &Polls{client: client, state: state, ctrl: ctrl, ui: ui.withDefaults()}
}

func clonePolls(in []PollState) []PollState {
	out := make([]PollState, len(in))
	for i, p := range in {
		out[i] = PollState{Poll: p.Poll.Clone(), Pending: p.Pending}
	}
	return out
}

// Snapshot implements ViewModel
func (p *Polls) Snapshot() []PollState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return clonePolls(p.polls)
}

// Restore implements ViewModel
func (p *Polls) Restore(polls []PollState) {
	p.mu.Lock()
	p.polls = clonePolls(polls)
	rendered := clonePolls(p.polls)
	p.mu.Unlock()
	p.ui.Polls.RenderPolls(rendered)
}

// Find returns a cached poll by id
func (p *Polls) Find(pollID string) (Poll, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ps := range p.polls {
		if ps.Poll.ID == pollID {
			return ps.Poll.Clone(), true
		}
	}
	return Poll{}, false
}

func (p *Polls) activeGroup() (string, error) {
	groupID := p.state.GroupID()
	if groupID == "" {
		return "", ErrNoActiveGroup
	}
	return groupID, nil
}

func (p *Polls) visible(groupID string) func() bool {
	return func() bool { return p.state.IsActiveView(groupID, ViewPolls) }
}

// Load fetches the poll list and renders it
func (p *Polls) Load(ctx context.Context) ([]PollState, error) {
	groupID, err := p.activeGroup()
	if err != nil {
		return nil, err
	}
	polls, err := p.client.GetPolls(ctx, groupID)
	if !p.visible(groupID)() {
		LogDebug("Discarding polls of %s: view changed", groupID)
		return nil, ErrStaleResponse
	}
	if err != nil {
		p.ui.Notifier.Notify(fmt.Sprintf("Failed to load polls: %s", UserMessage(err)))
		return nil, err
	}

	states := make([]PollState, 0, len(polls))
	for _, poll := range polls {
		if err := poll.CheckTotals(); err != nil {
			LogWarn("%v", err)
		}
		states = append(states, PollState{Poll: poll})
	}
	p.Restore(states)
	return states, nil
}

// Vote records the user's choice. Voting for the current choice is a no-op.
func (p *Polls) Vote(ctx context.Context, pollID, optionID string) error {
	groupID, err := p.activeGroup()
	if err != nil {
		return err
	}
	poll, ok := p.Find(pollID)
	if !ok {
		return &ValidationError{Field: "poll", Reason: fmt.Sprintf("unknown poll %q", pollID)}
	}
	if _, ok := poll.Option(optionID); !ok {
		return &ValidationError{Field: "option", Reason: fmt.Sprintf("poll %q has no option %q", pollID, optionID)}
	}
	if poll.UserVote == optionID {
		return nil
	}

	update := func(polls []PollState, fn func(PollState) PollState) []PollState {
		for i := range polls {
			if polls[i].Poll.ID == pollID {
				polls[i] = fn(polls[i])
			}
		}
		return polls
	}

	_, err = RunMutation[[]PollState](ctx, p.ctrl, p, Mutation[[]PollState]{
		Name:    "cast vote",
		GroupID: groupID,
		Apply: func(polls []PollState) []PollState {
			return update(polls, func(ps PollState) PollState {
				return PollState{Poll: ps.Poll.WithVote(optionID), Pending: true}
			})
		},
		Send: func(ctx context.Context) (*[]PollState, error) {
			return nil, p.client.CastVote(ctx, groupID, pollID, optionID)
		},
		Merge: func(polls []PollState) []PollState {
			return update(polls, func(ps PollState) PollState {
				ps.Pending = false
				return ps
			})
		},
		Active:         p.visible(groupID),
		FailureMessage: "Failed to record vote.",
	})
	return err
}

// Create validates and creates a poll, then reloads the list
func (p *Polls) Create(ctx context.Context, title string, options []string) (Poll, error) {
	groupID, err := p.activeGroup()
	if err != nil {
		return Poll{}, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return Poll{}, &ValidationError{Field: "title", Reason: "Please enter a poll title."}
	}
	var cleaned []string
	for _, opt := range options {
		if opt = strings.TrimSpace(opt); opt != "" {
			cleaned = append(cleaned, opt)
		}
	}
	if len(cleaned) < 2 {
		return Poll{}, &ValidationError{Field: "options", Reason: "Please provide at least two non-empty options."}
	}

	p.ui.Loader.Show("Creating poll...")
	created, err := p.client.CreatePoll(ctx, groupID, title, cleaned)
	p.ui.Loader.Hide()
	if err != nil {
		p.ui.Notifier.Notify(fmt.Sprintf("Failed to create poll: %s", UserMessage(err)))
		return Poll{}, err
	}
	p.ui.Notifier.Notify("Poll created successfully!")

	if p.visible(groupID)() {
		if _, err := p.Load(ctx); err != nil {
			LogWarn("Reload after poll creation failed: %v", err)
		}
	}
	return created, nil
}

// Delete removes a poll after confirmation
func (p *Polls) Delete(ctx context.Context, pollID string) error {
	groupID, err := p.activeGroup()
	if err != nil {
		return err
	}
	title := pollID
	if poll, ok := p.Find(pollID); ok {
		title = poll.Title
	}
	prompt := fmt.Sprintf("Are you sure you want to permanently delete the poll %q? This cannot be undone.", title)
	if !p.ui.Confirmer.Confirm(prompt) {
		return ErrCancelled
	}

	p.ui.Loader.Show("Deleting poll...")
	err = p.client.DeletePoll(ctx, groupID, pollID)
	p.ui.Loader.Hide()
	if err != nil {
		p.ui.Notifier.Notify(fmt.Sprintf("Failed to delete poll: %s", UserMessage(err)))
		return err
	}
	p.ui.Notifier.Notify(fmt.Sprintf("Poll %q deleted successfully.", title))

	if p.visible(groupID)() {
		var kept []PollState
		for _, ps := range p.Snapshot() {
			if ps.Poll.ID != pollID {
				kept = append(kept, ps)
			}
		}
		p.Restore(kept)
	}
	return nil
}

// Info fetches the per-option statistics of a poll and shows them in the modal
func (p *Polls) Info(ctx context.Context, pollID string) (PollStats, error) {
	groupID, err := p.activeGroup()
	if err != nil {
		return PollStats{}, err
	}
	poll, ok := p.Find(pollID)
	if !ok {
		return PollStats{}, &ValidationError{Field: "poll", Reason: fmt.Sprintf("unknown poll %q", pollID)}
	}

	p.ui.Loader.Show("Loading poll info...")
	info, err := p.client.GetPollInfo(ctx, groupID, pollID)
	p.ui.Loader.Hide()
	if err != nil {
		p.ui.Notifier.Notify(fmt.Sprintf("Failed to load poll info: %s", UserMessage(err)))
		return PollStats{}, err
	}

	stats := BuildPollStats(poll, info)
	p.ui.Modal.Show(FormatPollStats(stats))
	return stats, nil
}

// BuildPollStats combines a poll's options with the counts of getPollInfo.
// Options missing from the stats count as zero.
func BuildPollStats(poll Poll, info PollInfo) PollStats {
	stats := PollStats{PollID: poll.ID, Title: poll.Title}
	for _, opt := range poll.Options {
		stats.Total += info.Stats[opt.ID]
	}
	for _, opt := range poll.Options {
		line := PollStatLine{OptionID: opt.ID, Text: opt.Text, Count: info.Stats[opt.ID]}
		if stats.Total > 0 {
			line.Percent = float64(line.Count) / float64(stats.Total) * 100
		}
		stats.Lines = append(stats.Lines, line)
	}
	return stats
}

// FormatPollStats renders stats as plain text for the modal
func FormatPollStats(s PollStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Poll: %s\n", s.Title)
	if s.Total == 0 {
		b.WriteString("No votes recorded yet.\n")
		return b.String()
	}
	for _, l := range s.Lines {
		fmt.Fprintf(&b, "%s: %d vote(s) (%.1f%%)\n", l.Text, l.Count, l.Percent)
	}
	fmt.Fprintf(&b, "Total votes: %d\n", s.Total)
	return b.String()
}
