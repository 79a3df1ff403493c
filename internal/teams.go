package internal

import (
	"strings"
)

const (
	MinTeams = 1
	MaxTeams = 5

	// UnassignedTeam is the implicit pool of members without a team
	UnassignedTeam = "unassigned"

	TeamIncrement = "+1"
	TeamDecrement = "-1"
)

// MemberCard is one draggable member on the board
type MemberCard struct {
	Email  string
	Name   string
	PfpURL string
	Hidden bool
}

// DropZone is one team container
type DropZone struct {
	TeamID  string
	Label   string
	Members []MemberCard
}

// TeamBoard is the rendered team layout of one activity. It is rebuilt from
// the detail state on every render and never patched in place.
type TeamBoard struct {
	Zones     []DropZone
	TeamCount int
	CanAdd    bool
	CanRemove bool
}

// TeamLabel returns the display name of a team id
func TeamLabel(teamID string) string {
	if teamID == UnassignedTeam {
		return "Unassigned"
	}
	if n, ok := strings.CutPrefix(teamID, "team"); ok && n != "" {
		return "Team " + n
	}
	return teamID
}

// BuildTeamBoard derives the board from a detail state: numbered teams in
// order, then the unassigned pool.
func BuildTeamBoard(d DetailState) TeamBoard {
	a := d.Activity
	board := TeamBoard{TeamCount: a.TeamCount}

	zoneIDs := append(a.TeamIDs(), UnassignedTeam)
	for _, teamID := range zoneIDs {
		zone := DropZone{TeamID: teamID, Label: TeamLabel(teamID)}
		for _, email := range a.Teams[teamID] {
			m := a.Members[email]
			zone.Members = append(zone.Members, MemberCard{
				Email:  email,
				Name:   a.MemberName(email),
				PfpURL: m.PfpURL,
				Hidden: d.Hidden[email],
			})
		}
		board.Zones = append(board.Zones, zone)
	}

	board.CanAdd = !d.ControlsDisabled && a.TeamCount < MaxTeams
	board.CanRemove = !d.ControlsDisabled && a.TeamCount > MinTeams
	return board
}

// HasZone reports whether teamID is a container on the board
func (b TeamBoard) HasZone(teamID string) bool {
	for _, z := range b.Zones {
		if z.TeamID == teamID {
			return true
		}
	}
	return false
}

// ResolveSource finds the container currently holding a visible card for email
func (b TeamBoard) ResolveSource(email string) (string, bool) {
	for _, z := range b.Zones {
		for _, m := range z.Members {
			if m.Email == email && !m.Hidden {
				return z.TeamID, true
			}
		}
	}
	return "", false
}

// VisibleCount returns how many cards are shown across all zones
func (b TeamBoard) VisibleCount() int {
	n := 0
	for _, z := range b.Zones {
		for _, m := range z.Members {
			if !m.Hidden {
				n++
			}
		}
	}
	return n
}
