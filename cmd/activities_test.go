package cmd

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/iksnae/corner/internal"
	"github.com/iksnae/corner/testutil"
)

func newActivitiesCLI(t *testing.T) *cli {
	t.Helper()
	c := newCLI(t, "stored-token")
	c.backend.Respond("getActivityDetail", testutil.SampleActivity())
	c.backend.Respond("getActivities", []map[string]any{{"id": "act1", "title": "Hike"}})
	return c
}

func TestTeamArg(t *testing.T) {
	tests := map[string]string{
		"2":          "team2",
		"team3":      "team3",
		"Unassigned": "unassigned",
		" 1 ":        "team1",
	}
	for in, want := range tests {
		if got := teamArg(in); got != want {
			t.Errorf("teamArg(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestActivitiesList(t *testing.T) {
	c := newActivitiesCLI(t)

	stdout, _, err := c.run("activities", "list", "g1")
	if err != nil {
		t.Fatalf("activities list error = %v", err)
	}
	if !strings.Contains(stdout, "Hike") || !strings.Contains(stdout, "[act1]") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestActivitiesShow(t *testing.T) {
	c := newActivitiesCLI(t)

	stdout, _, err := c.run("activities", "show", "g1", "act1")
	if err != nil {
		t.Fatalf("activities show error = %v", err)
	}
	for _, want := range []string{"Hike", "Saturday trail", "Team 1", "Team 2", "Unassigned", "Ann", "Bob", "Teams: 2/5"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout)
		}
	}
}

func TestActivitiesMove(t *testing.T) {
	c := newActivitiesCLI(t)
	moved := testutil.SampleActivity()
	moved["teams"] = map[string]any{
		"team1":      []string{"b@x.com"},
		"team2":      []string{"a@x.com"},
		"unassigned": []string{},
	}
	c.backend.Respond("assignTeamMember", moved)

	stdout, _, err := c.run("activities", "move", "g1", "act1", "a@x.com", "2")
	if err != nil {
		t.Fatalf("activities move error = %v", err)
	}
	calls := c.backend.CallsFor("assignTeamMember")
	if len(calls) != 1 {
		t.Fatalf("assignTeamMember calls = %d, want 1", len(calls))
	}
	want := url.Values{"memberId": {"a@x.com"}, "teamId": {"team2"}, "activityId": {"act1"}, "groupId": {"g1"}}
	for key, v := range want {
		if got := calls[0].Params.Get(key); got != v[0] {
			t.Errorf("param %s = %q, want %q", key, got, v[0])
		}
	}
	if !strings.Contains(stdout, "Ann") {
		t.Errorf("moved member missing from board:\n%s", stdout)
	}
}

func TestActivitiesMoveSameTeamIsNoop(t *testing.T) {
	c := newActivitiesCLI(t)

	if _, _, err := c.run("activities", "move", "g1", "act1", "b@x.com", "team1"); err != nil {
		t.Fatalf("activities move error = %v", err)
	}
	if got := c.backend.CallCount("assignTeamMember"); got != 0 {
		t.Errorf("assignTeamMember calls = %d, want 0", got)
	}
}

func TestActivitiesTeams(t *testing.T) {
	tests := []struct {
		name       string
		teamCount  int
		change     string
		wantCalls  int
		wantChange string
	}{
		{"add", 2, "add", 1, internal.TeamIncrement},
		{"remove", 2, "remove", 1, internal.TeamDecrement},
		{"add at max", 5, "add", 0, ""},
		{"remove at min", 1, "remove", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCLI(t, "stored-token")
			act := testutil.SampleActivity()
			teams := map[string]any{"unassigned": []string{"a@x.com", "b@x.com"}}
			for i := 1; i <= tt.teamCount; i++ {
				teams[fmt.Sprintf("team%d", i)] = []string{}
			}
			act["teams"] = teams
			act["teamCount"] = tt.teamCount
			c.backend.Respond("getActivityDetail", act)
			c.backend.Respond("updateTeams", act)

			_, _, err := c.run("activities", "teams", "g1", "act1", tt.change)
			if got := c.backend.CallCount("updateTeams"); got != tt.wantCalls {
				t.Fatalf("updateTeams calls = %d, want %d (err %v)", got, tt.wantCalls, err)
			}
			if tt.wantCalls == 0 {
				var valErr *internal.ValidationError
				if !errors.As(err, &valErr) {
					t.Errorf("error = %v, want ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if got := c.backend.CallsFor("updateTeams")[0].Params.Get("change"); got != tt.wantChange {
				t.Errorf("change = %q, want %q", got, tt.wantChange)
			}
		})
	}
}

func TestActivitiesEdit(t *testing.T) {
	c := newActivitiesCLI(t)
	c.backend.Respond("updateActivityDetail", "ok")

	stdout, _, err := c.run("activities", "edit", "g1", "act1", "materials", "water", "and", "snacks")
	if err != nil {
		t.Fatalf("activities edit error = %v", err)
	}
	calls := c.backend.CallsFor("updateActivityDetail")
	if len(calls) != 1 || calls[0].Params.Get("value") != "water and snacks" || calls[0].Params.Get("field") != "materials" {
		t.Errorf("updateActivityDetail calls = %+v", calls)
	}
	if !strings.Contains(stdout, "water and snacks") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestActivitiesEditRejectsUnknownField(t *testing.T) {
	c := newActivitiesCLI(t)

	if _, _, err := c.run("activities", "edit", "g1", "act1", "colour", "red"); err == nil {
		t.Fatal("unknown field should be rejected")
	}
	if n := len(c.backend.Calls()); n != 0 {
		t.Errorf("backend calls = %d, want 0", n)
	}
}

func TestActivitiesCreateAndDelete(t *testing.T) {
	c := newActivitiesCLI(t)
	c.backend.Respond("createActivity", map[string]any{"id": "act2", "title": "Picnic"})
	c.backend.Respond("deleteActivity", map[string]any{"success": true})

	stdout, _, err := c.run("activities", "create", "g1", "--title", "Picnic")
	if err != nil {
		t.Fatalf("activities create error = %v", err)
	}
	if strings.TrimSpace(stdout) != "act2" {
		t.Errorf("stdout = %q, want new id", stdout)
	}

	if _, _, err := c.run("--yes", "activities", "delete", "g1", "act1"); err != nil {
		t.Fatalf("activities delete error = %v", err)
	}
	if got := c.backend.CallCount("deleteActivity"); got != 1 {
		t.Errorf("deleteActivity calls = %d, want 1", got)
	}
}
