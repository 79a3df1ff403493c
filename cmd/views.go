package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/iksnae/corner/internal"
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)

	authorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Italic(true)

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62"))

	zoneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1).
			Width(22)
)

const pollBarWidth = 20

// renderMessage formats one chat line relative to now
func renderMessage(msg internal.ChatMessage, now time.Time) string {
	when := timeStyle.Render(humanize.RelTime(msg.Time(), now, "ago", "from now"))
	if msg.IsSystem() {
		return fmt.Sprintf("%s %s", when, systemStyle.Render(msg.DisplayText()))
	}
	author := msg.UserName
	if author == "" {
		author = msg.UserID
	}
	return fmt.Sprintf("%s %s: %s", when, authorStyle.Render(author), msg.DisplayText())
}

// renderPoll formats a poll with one bar per option
func renderPoll(ps internal.PollState) string {
	var b strings.Builder
	title := ps.Poll.Title
	if ps.Pending {
		title += " (saving...)"
	}
	fmt.Fprintf(&b, "%s  %s\n", sectionStyle.Render(title), timeStyle.Render("["+ps.Poll.ID+"]"))
	for _, opt := range ps.Poll.Options {
		pct := ps.Poll.Percent(opt.ID)
		filled := min(max(int(pct/100*pollBarWidth), 0), pollBarWidth)
		bar := strings.Repeat("█", filled) + strings.Repeat("░", pollBarWidth-filled)
		mark := " "
		if opt.ID == ps.Poll.UserVote {
			mark = successStyle.Render("✓")
		}
		fmt.Fprintf(&b, " %s %-4s %s %-6s %s (%d)\n", mark, opt.ID, barStyle.Render(bar),
			internal.FormatPercent(pct), opt.Text, opt.VoteCount)
	}
	fmt.Fprintf(&b, "   %s\n", timeStyle.Render(fmt.Sprintf("%d vote(s)", ps.Poll.TotalVotes)))
	return b.String()
}

// renderActivity formats the activity fields and its team board
func renderActivity(d internal.DetailState, board internal.TeamBoard) string {
	var b strings.Builder
	a := d.Activity
	fmt.Fprintf(&b, "%s  %s\n", sectionStyle.Render(a.Title), timeStyle.Render("["+a.ID+"]"))
	for _, field := range []string{internal.FieldDescription, internal.FieldMaterials, internal.FieldTime} {
		label := strings.ToUpper(field[:1]) + field[1:]
		value := a.Field(field)
		if d.Saving == field {
			value += " (saving...)"
		}
		if value != "" {
			fmt.Fprintf(&b, "%s %s\n", infoStyle.Render(label+":"), value)
		}
	}

	zones := make([]string, 0, len(board.Zones))
	for _, z := range board.Zones {
		var lines []string
		lines = append(lines, authorStyle.Render(z.Label))
		for _, m := range z.Members {
			if m.Hidden {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s\n%s", m.Name, timeStyle.Render(m.Email)))
		}
		zones = append(zones, zoneStyle.Render(strings.Join(lines, "\n")))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, zones...))
	b.WriteString("\n")

	controls := fmt.Sprintf("Teams: %d/%d", board.TeamCount, internal.MaxTeams)
	if !board.CanAdd {
		controls += "  (cannot add)"
	}
	if !board.CanRemove {
		controls += "  (cannot remove)"
	}
	b.WriteString(timeStyle.Render(controls))
	b.WriteString("\n")
	return b.String()
}

// renderGroup formats one group entry
func renderGroup(g internal.Group, details *internal.GroupDetails) string {
	line := fmt.Sprintf("%s  %s", authorStyle.Render(g.Name), timeStyle.Render("["+g.ID+"]"))
	if details != nil && details.Code != "" {
		line += "  code " + successStyle.Render(details.Code)
	}
	return line
}
