package internal

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"time"
)

// Chat message types
const (
	MessageTypeUser   = "user"
	MessageTypeSystem = "system"
)

// Session is the verified identity of the signed-in user
type Session struct {
	ID         string `json:"id" yaml:"id"` // email
	Name       string `json:"name" yaml:"name"`
	PictureURL string `json:"pictureUrl,omitempty" yaml:"picture_url,omitempty"`
}

// VerifyResult is the payload of the verifyToken action
type VerifyResult struct {
	Verified bool   `json:"verified"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Pfp      string `json:"pfp,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ChatMessage represents one entry of a group's chat log
type ChatMessage struct {
	ID        string `json:"id" yaml:"id"`
	Type      string `json:"type" yaml:"type"`
	Text      string `json:"text" yaml:"text"`
	Timestamp int64  `json:"timestamp" yaml:"timestamp"` // unix millis
	UserID    string `json:"userId,omitempty" yaml:"user_id,omitempty"`
	UserName  string `json:"userName,omitempty" yaml:"user_name,omitempty"`
	UserPfp   string `json:"userPfp,omitempty" yaml:"user_pfp,omitempty"`
}

// IsSystem reports whether the message is a system notice
func (m ChatMessage) IsSystem() bool {
	return m.Type == MessageTypeSystem
}

// DisplayText returns the message text with URL component encoding removed
func (m ChatMessage) DisplayText() string {
	decoded, err := url.PathUnescape(m.Text)
	if err != nil {
		return m.Text
	}
	return decoded
}

// Time returns the message timestamp as a time.Time
func (m ChatMessage) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// PollOption is one choice of a poll
type PollOption struct {
	ID        string `json:"id" yaml:"id"`
	Text      string `json:"text" yaml:"text"`
	VoteCount int    `json:"voteCount" yaml:"vote_count"`
}

// Poll is a group poll as seen by the requesting user
type Poll struct {
	ID         string       `json:"id" yaml:"id"`
	Title      string       `json:"title" yaml:"title"`
	Options    []PollOption `json:"options" yaml:"options"`
	TotalVotes int          `json:"totalVotes" yaml:"total_votes"`
	UserVote   string       `json:"userVote,omitempty" yaml:"user_vote,omitempty"`
}

// Clone returns a deep copy of the poll
func (p Poll) Clone() Poll {
	p.Options = append([]PollOption(nil), p.Options...)
	return p
}

// Option looks up an option by id
func (p Poll) Option(optionID string) (PollOption, bool) {
	for _, opt := range p.Options {
		if opt.ID == optionID {
			return opt, true
		}
	}
	return PollOption{}, false
}

// Percent returns the share of votes an option holds, 0..100
func (p Poll) Percent(optionID string) float64 {
	opt, ok := p.Option(optionID)
	if !ok || p.TotalVotes <= 0 {
		return 0
	}
	return float64(opt.VoteCount) / float64(p.TotalVotes) * 100
}

// WithVote returns a copy of the poll with the user's vote moved to optionID.
// Counts are adjusted so that the option counts keep summing to TotalVotes.
func (p Poll) WithVote(optionID string) Poll {
	next := p.Clone()
	if next.UserVote == optionID {
		return next
	}
	for i := range next.Options {
		switch next.Options[i].ID {
		case next.UserVote:
			if next.Options[i].VoteCount > 0 {
				next.Options[i].VoteCount--
				next.TotalVotes--
			}
		case optionID:
			next.Options[i].VoteCount++
			next.TotalVotes++
		}
	}
	next.UserVote = optionID
	return next
}

// CheckTotals verifies that option counts sum to TotalVotes
func (p Poll) CheckTotals() error {
	sum := 0
	for _, opt := range p.Options {
		sum += opt.VoteCount
	}
	if sum != p.TotalVotes {
		return fmt.Errorf("poll %s: option votes sum to %d, totalVotes is %d", p.ID, sum, p.TotalVotes)
	}
	return nil
}

// FormatPercent renders a percentage with at most one decimal place
func FormatPercent(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64) + "%"
}

// PollInfo is the payload of the getPollInfo action
type PollInfo struct {
	Stats map[string]int `json:"stats"`
}

// PollStatLine is one row of the poll statistics view
type PollStatLine struct {
	OptionID string
	Text     string
	Count    int
	Percent  float64
}

// PollStats summarizes a poll's results for the info view
type PollStats struct {
	PollID string
	Title  string
	Lines  []PollStatLine
	Total  int
}

// Member is a group member as shown on a team board
type Member struct {
	Name   string `json:"name" yaml:"name"`
	PfpURL string `json:"pfp,omitempty" yaml:"pfp,omitempty"`
}

// ActivitySummary is an entry of the activity list
type ActivitySummary struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
}

// Activity is the full detail of one activity, including team assignments
type Activity struct {
	ID          string              `json:"id" yaml:"id"`
	Title       string              `json:"title" yaml:"title"`
	Description string              `json:"description,omitempty" yaml:"description,omitempty"`
	Materials   string              `json:"materials,omitempty" yaml:"materials,omitempty"`
	Time        string              `json:"time,omitempty" yaml:"time,omitempty"`
	TeamCount   int                 `json:"teamCount" yaml:"team_count"`
	Teams       map[string][]string `json:"teams" yaml:"teams"`
	Members     map[string]Member   `json:"members" yaml:"members"`
}

// Editable activity fields
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldMaterials   = "materials"
	FieldTime        = "time"
)

// IsEditableField reports whether an activity field can be edited in place
func IsEditableField(field string) bool {
	switch field {
	case FieldTitle, FieldDescription, FieldMaterials, FieldTime:
		return true
	}
	return false
}

// Field returns the value of an editable field
func (a Activity) Field(field string) string {
	switch field {
	case FieldTitle:
		return a.Title
	case FieldDescription:
		return a.Description
	case FieldMaterials:
		return a.Materials
	case FieldTime:
		return a.Time
	}
	return ""
}

// SetField sets an editable field; unknown fields are ignored
func (a *Activity) SetField(field, value string) {
	switch field {
	case FieldTitle:
		a.Title = value
	case FieldDescription:
		a.Description = value
	case FieldMaterials:
		a.Materials = value
	case FieldTime:
		a.Time = value
	}
}

// Clone returns a deep copy of the activity
func (a Activity) Clone() Activity {
	out := a
	out.Teams = make(map[string][]string, len(a.Teams))
	for id, members := range a.Teams {
		out.Teams[id] = append([]string(nil), members...)
	}
	out.Members = make(map[string]Member, len(a.Members))
	for email, m := range a.Members {
		out.Members[email] = m
	}
	return out
}

// TeamIDs returns the numbered team ids in display order
func (a Activity) TeamIDs() []string {
	ids := make([]string, 0, len(a.Teams))
	for id := range a.Teams {
		if id != UnassignedTeam {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Normalize fills in the implicit parts of a decoded activity: the
// unassigned pool always exists and a missing TeamCount follows the team
// keys. A TeamCount sent by the backend is kept so Validate can check it.
func (a *Activity) Normalize() {
	if a.Teams == nil {
		a.Teams = make(map[string][]string)
	}
	if _, ok := a.Teams[UnassignedTeam]; !ok {
		a.Teams[UnassignedTeam] = []string{}
	}
	if a.Members == nil {
		a.Members = make(map[string]Member)
	}
	if a.TeamCount == 0 {
		a.TeamCount = len(a.TeamIDs())
	}
}

// Validate checks the team invariants of an activity
func (a Activity) Validate() error {
	if _, ok := a.Teams[UnassignedTeam]; !ok {
		return fmt.Errorf("activity %s: missing %q team", a.ID, UnassignedTeam)
	}
	if n := len(a.TeamIDs()); n != a.TeamCount {
		return fmt.Errorf("activity %s: teamCount %d but %d teams", a.ID, a.TeamCount, n)
	}
	for teamID, emails := range a.Teams {
		for _, email := range emails {
			if _, ok := a.Members[email]; !ok {
				return fmt.Errorf("activity %s: member %s in %s has no details", a.ID, email, teamID)
			}
		}
	}
	return nil
}

// MemberName returns the display name of a member, falling back to the email
func (a Activity) MemberName(email string) string {
	if m, ok := a.Members[email]; ok && m.Name != "" {
		return m.Name
	}
	return email
}

// Group is an entry of the user's group list
type Group struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// GroupDetails is the payload of getGroupDetails
type GroupDetails struct {
	Name string `json:"name" yaml:"name"`
	Code string `json:"code" yaml:"code"`
}

// GroupResult is returned by createGroup and joinGroup
type GroupResult struct {
	GroupID string `json:"groupId"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// ResetCodeResult is returned by resetGroupCode
type ResetCodeResult struct {
	NewCode string `json:"newCode"`
	Message string `json:"message,omitempty"`
}

// DeleteResult is returned by deletePoll and deleteActivity
type DeleteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Transcript bundles everything exported for one group
type Transcript struct {
	GroupID    string        `json:"group_id" yaml:"group_id"`
	GroupName  string        `json:"group_name,omitempty" yaml:"group_name,omitempty"`
	ExportedAt time.Time     `json:"exported_at" yaml:"exported_at"`
	Messages   []ChatMessage `json:"messages,omitempty" yaml:"messages,omitempty"`
	Polls      []Poll        `json:"polls,omitempty" yaml:"polls,omitempty"`
	Activities []Activity    `json:"activities,omitempty" yaml:"activities,omitempty"`
}
