package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/iksnae/corner/internal"
)

// terminalUI implements the collaborator interfaces on a pair of writers
type terminalUI struct {
	out       io.Writer
	errOut    io.Writer
	in        *bufio.Reader
	assumeYes bool
	spinner   *internal.Spinner
	now       func() time.Time

	mu      sync.Mutex
	printed map[string]bool
	polls   []internal.PollState
	detail  *internal.DetailState
	board   internal.TeamBoard
}

func newTerminalUI(out, errOut io.Writer, in io.Reader, assumeYes bool) *terminalUI {
	return &terminalUI{
		out:       out,
		errOut:    errOut,
		in:        bufio.NewReader(in),
		assumeYes: assumeYes,
		spinner:   internal.NewSpinner(errOut),
		now:       time.Now,
	}
}

func (u *terminalUI) collaborators() internal.Collaborators {
	return internal.Collaborators{
		Notifier:   u,
		Confirmer:  u,
		Loader:     u.spinner,
		Modal:      u,
		Identity:   u,
		Navigator:  u,
		Chat:       u,
		Polls:      u,
		Activities: u,
	}
}

func (u *terminalUI) Notify(message string) {
	fmt.Fprintf(u.errOut, "%s %s\n", warningStyle.Render("!"), message)
}

func (u *terminalUI) Confirm(prompt string) bool {
	if u.assumeYes {
		return true
	}
	fmt.Fprintf(u.errOut, "%s [y/N]: ", prompt)
	answer, err := u.in.ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// Show implements Modal
func (u *terminalUI) Show(content string) {
	fmt.Fprint(u.out, content)
}

// Hide implements Modal
func (u *terminalUI) Hide() {}

func (u *terminalUI) DisableAutoSelect() {
	internal.LogDebug("Silent sign-in disabled")
}

func (u *terminalUI) ShowLogin() {
	fmt.Fprintln(u.errOut, warningStyle.Render("Not signed in.")+" Run 'corner login --token <id_token>' to sign in.")
}

// Replace implements ChatView. A terminal cannot redraw, so only messages
// not printed yet are written; an empty log starts over.
func (u *terminalUI) Replace(msgs []internal.ChatMessage) {
	if len(msgs) == 0 {
		u.mu.Lock()
		u.printed = nil
		u.mu.Unlock()
		return
	}
	u.Append(msgs)
}

// Append implements ChatView
func (u *terminalUI) Append(msgs []internal.ChatMessage) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.printed == nil {
		u.printed = make(map[string]bool)
	}
	now := u.now()
	for _, m := range msgs {
		if u.printed[m.ID] {
			continue
		}
		u.printed[m.ID] = true
		fmt.Fprintln(u.out, renderMessage(m, now))
	}
}

// NearBottom implements ChatView; a terminal always follows new output
func (u *terminalUI) NearBottom(int) bool { return true }

// ScrollToBottom implements ChatView
func (u *terminalUI) ScrollToBottom() {}

// RenderPolls keeps the latest poll list; printPolls draws it
func (u *terminalUI) RenderPolls(polls []internal.PollState) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.polls = polls
}

// RenderActivity keeps the latest activity detail; printActivity draws it
func (u *terminalUI) RenderActivity(d internal.DetailState, board internal.TeamBoard) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.detail = &d
	u.board = board
}

func (u *terminalUI) printPolls() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.polls) == 0 {
		fmt.Fprintln(u.out, infoStyle.Render("No polls yet."))
		return
	}
	for _, ps := range u.polls {
		fmt.Fprintln(u.out, renderPoll(ps))
	}
}

func (u *terminalUI) printActivity() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.detail == nil {
		return
	}
	fmt.Fprint(u.out, renderActivity(*u.detail, u.board))
}
