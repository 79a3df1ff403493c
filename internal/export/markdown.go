package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iksnae/corner/internal"
)

// MarkdownExporter exports transcripts in Markdown format
type MarkdownExporter struct{}

// Export exports a transcript to Markdown format
func (e *MarkdownExporter) Export(transcript *internal.Transcript, w io.Writer) error {
	title := transcript.GroupName
	if title == "" {
		title = transcript.GroupID
	}
	_, _ = fmt.Fprintf(w, "# Group %s\n\n", title)
	_, _ = fmt.Fprintf(w, "**Group ID:** %s  \n", transcript.GroupID)
	if !transcript.ExportedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "**Exported:** %s  \n", transcript.ExportedAt.UTC().Format(time.RFC3339))
	}
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(transcript.Messages))

	_, _ = fmt.Fprintf(w, "---\n\n")
	_, _ = fmt.Fprintf(w, "## Chat\n\n")

	for i, msg := range transcript.Messages {
		author := msg.UserName
		if msg.IsSystem() || author == "" {
			author = "system"
		}
		timestamp := ""
		if msg.Timestamp > 0 {
			timestamp = fmt.Sprintf(" (%s)", msg.Time().UTC().Format(time.RFC3339))
		}
		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", author, timestamp, escapeMarkdown(msg.DisplayText()))

		if i < len(transcript.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	if len(transcript.Polls) > 0 {
		_, _ = fmt.Fprintf(w, "## Polls\n\n")
		for _, poll := range transcript.Polls {
			_, _ = fmt.Fprintf(w, "### %s\n\n", escapeMarkdown(poll.Title))
			for _, opt := range poll.Options {
				mark := ""
				if opt.ID == poll.UserVote {
					mark = " ✓"
				}
				_, _ = fmt.Fprintf(w, "- %s: %d (%s)%s\n", escapeMarkdown(opt.Text), opt.VoteCount,
					internal.FormatPercent(poll.Percent(opt.ID)), mark)
			}
			_, _ = fmt.Fprintf(w, "\n**Total votes:** %d\n\n", poll.TotalVotes)
		}
	}

	if len(transcript.Activities) > 0 {
		_, _ = fmt.Fprintf(w, "## Activities\n\n")
		for _, act := range transcript.Activities {
			writeActivity(w, act)
		}
	}

	return nil
}

func writeActivity(w io.Writer, act internal.Activity) {
	_, _ = fmt.Fprintf(w, "### %s\n\n", escapeMarkdown(act.Title))
	for _, field := range []string{internal.FieldDescription, internal.FieldMaterials, internal.FieldTime} {
		if v := act.Field(field); v != "" {
			_, _ = fmt.Fprintf(w, "**%s:** %s  \n", strings.ToUpper(field[:1])+field[1:], escapeMarkdown(v))
		}
	}
	_, _ = fmt.Fprintln(w)

	teams := append(act.TeamIDs(), internal.UnassignedTeam)
	for _, teamID := range teams {
		var names []string
		for _, email := range act.Teams[teamID] {
			names = append(names, act.MemberName(email))
		}
		if len(names) == 0 {
			names = []string{"_(empty)_"}
		}
		_, _ = fmt.Fprintf(w, "- **%s:** %s\n", internal.TeamLabel(teamID), strings.Join(names, ", "))
	}
	_, _ = fmt.Fprintln(w)
}

// escapeMarkdown escapes markdown special characters
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
