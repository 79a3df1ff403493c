package internal

// Notifier shows a dismissable message to the user
type Notifier interface {
	Notify(message string)
}

// Confirmer asks a blocking yes/no question
type Confirmer interface {
	Confirm(prompt string) bool
}

// Loader toggles a loading indicator
type Loader interface {
	Show(message string)
	Hide()
}

// Modal presents auxiliary content such as poll statistics or group settings
type Modal interface {
	Show(content string)
	Hide()
}

// IdentityWidget is the external sign-in provider
type IdentityWidget interface {
	// DisableAutoSelect stops silent re-authentication after logout
	DisableAutoSelect()
}

// Navigator switches to the login view
type Navigator interface {
	ShowLogin()
}

// PollsView renders the poll list of the active group
type PollsView interface {
	RenderPolls(polls []PollState)
}

// ActivityView renders the open activity detail
type ActivityView interface {
	RenderActivity(detail DetailState, board TeamBoard)
}

// Collaborators bundles the UI dependencies of the core components
type Collaborators struct {
	Notifier   Notifier
	Confirmer  Confirmer
	Loader     Loader
	Modal      Modal
	Identity   IdentityWidget
	Navigator  Navigator
	Chat       ChatView
	Polls      PollsView
	Activities ActivityView
}

// withDefaults fills unset collaborators with no-op implementations
func (c Collaborators) withDefaults() Collaborators {
	if c.Notifier == nil {
		c.Notifier = nopUI{}
	}
	if c.Confirmer == nil {
		c.Confirmer = nopUI{}
	}
	if c.Loader == nil {
		c.Loader = nopUI{}
	}
	if c.Modal == nil {
		c.Modal = nopUI{}
	}
	if c.Identity == nil {
		c.Identity = nopUI{}
	}
	if c.Navigator == nil {
		c.Navigator = nopUI{}
	}
	if c.Chat == nil {
		c.Chat = nopUI{}
	}
	if c.Polls == nil {
		c.Polls = nopUI{}
	}
	if c.Activities == nil {
		c.Activities = nopUI{}
	}
	return c
}

// nopUI implements every collaborator; confirmations are declined
type nopUI struct{}

func (nopUI) Notify(string) {}
func (nopUI) Confirm(string) bool { return false }
func (nopUI) Show(string) {}
func (nopUI) Hide() {}
func (nopUI) DisableAutoSelect() {}
func (nopUI) ShowLogin() {}
func (nopUI) Replace([]ChatMessage) {}
func (nopUI) Append([]ChatMessage) {}
func (nopUI) NearBottom(int) bool { return true }
func (nopUI) ScrollToBottom() {}
func (nopUI) RenderPolls([]PollState) {}
func (nopUI) RenderActivity(DetailState, TeamBoard) {}
