package internal

import (
	"context"
	"testing"

	"github.com/iksnae/corner/testutil"
)

func newTestClient(t *testing.T) (*Client, *testutil.FakeBackend) {
	t.Helper()
	backend := testutil.NewFakeBackend(t)
	gw := NewGateway(backend.Endpoint(), NewMemoryTokenStore("tok"))
	return NewClient(gw), backend
}

func TestClientGetChatSince(t *testing.T) {
	client, backend := newTestClient(t)
	backend.Respond("getChat", testutil.SampleMessages([]string{"m1"}, []int64{1000}))

	msgs, err := client.GetChat(context.Background(), "g1", 0)
	if err != nil {
		t.Fatalf("GetChat() error = %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != "m1" || msgs[0].Timestamp != 1000 {
		t.Errorf("GetChat() = %+v", msgs)
	}
	if _, err := client.GetChat(context.Background(), "g1", 1000); err != nil {
		t.Fatalf("GetChat(since) error = %v", err)
	}

	calls := backend.CallsFor("getChat")
	if calls[0].Params.Has("since") {
		t.Error("first fetch should omit since")
	}
	if calls[1].Params.Get("since") != "1000" {
		t.Errorf("since = %q, want 1000", calls[1].Params.Get("since"))
	}
}

func TestClientSendMessageEncodesText(t *testing.T) {
	client, backend := newTestClient(t)
	backend.Respond("sendMessage", map[string]bool{"ok": true})

	if err := client.SendMessage(context.Background(), "g1", "hi there & bye?"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	got := backend.CallsFor("sendMessage")[0].Params.Get("message")
	if got != "hi%20there%20%26%20bye%3F" {
		t.Errorf("message param = %q", got)
	}
	if (ChatMessage{Text: got}).DisplayText() != "hi there & bye?" {
		t.Error("encoded text should decode back for display")
	}
}

func TestClientActivityDecoding(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		client, backend := newTestClient(t)
		backend.Respond("getActivityDetail", testutil.SampleActivity())

		a, err := client.GetActivityDetail(context.Background(), "g1", "act1")
		if err != nil {
			t.Fatalf("GetActivityDetail() error = %v", err)
		}
		if a.TeamCount != 2 || a.Members["a@x.com"].Name != "Ann" {
			t.Errorf("GetActivityDetail() = %+v", a)
		}
	})

	t.Run("invariant violation", func(t *testing.T) {
		client, backend := newTestClient(t)
		broken := testutil.SampleActivity()
		broken["teams"] = map[string]any{"team1": []string{"ghost@x.com"}}
		backend.Respond("assignTeamMember", broken)

		_, err := client.AssignTeamMember(context.Background(), "g1", "act1", "ghost@x.com", "team1")
		if !IsKind(err, KindProtocol) {
			t.Errorf("AssignTeamMember() error = %v, want protocol", err)
		}
	})

	t.Run("team count disagrees with teams", func(t *testing.T) {
		client, backend := newTestClient(t)
		wrong := testutil.SampleActivity()
		wrong["teamCount"] = 4
		backend.Respond("updateTeams", wrong)

		if _, err := client.UpdateTeams(context.Background(), "g1", "act1", TeamIncrement); !IsKind(err, KindProtocol) {
			t.Errorf("UpdateTeams() error = %v, want protocol", err)
		}
	})

	t.Run("team count omitted", func(t *testing.T) {
		client, backend := newTestClient(t)
		bare := testutil.SampleActivity()
		delete(bare, "teamCount")
		backend.Respond("getActivityDetail", bare)

		a, err := client.GetActivityDetail(context.Background(), "g1", "act1")
		if err != nil {
			t.Fatalf("GetActivityDetail() error = %v", err)
		}
		if a.TeamCount != 2 {
			t.Errorf("TeamCount = %d, want 2 derived from the teams", a.TeamCount)
		}
	})

	t.Run("missing entity", func(t *testing.T) {
		client, backend := newTestClient(t)
		backend.Respond("updateTeams", nil)

		if _, err := client.UpdateTeams(context.Background(), "g1", "act1", TeamIncrement); !IsKind(err, KindProtocol) {
			t.Errorf("UpdateTeams() error = %v, want protocol", err)
		}
	})
}

func TestClientUpdateActivityDetailAck(t *testing.T) {
	client, backend := newTestClient(t)
	backend.Respond("updateActivityDetail", map[string]any{"success": true})

	a, err := client.UpdateActivityDetail(context.Background(), "g1", "act1", FieldTime, "10am")
	if err != nil {
		t.Fatalf("UpdateActivityDetail() error = %v", err)
	}
	if a != nil {
		t.Errorf("ack-only reply should yield no entity, got %+v", a)
	}

	backend.Respond("updateActivityDetail", testutil.SampleActivity())
	a, err = client.UpdateActivityDetail(context.Background(), "g1", "act1", FieldTime, "10am")
	if err != nil || a == nil {
		t.Fatalf("UpdateActivityDetail() = %v, %v; want entity", a, err)
	}
}

func TestClientDeleteOutcome(t *testing.T) {
	client, backend := newTestClient(t)

	backend.Respond("deletePoll", map[string]any{"success": false, "message": "Only the creator can delete."})
	err := client.DeletePoll(context.Background(), "g1", "p1")
	if !IsKind(err, KindRemote) || UserMessage(err) != "Only the creator can delete." {
		t.Errorf("DeletePoll() error = %v", err)
	}

	backend.Respond("deleteActivity", map[string]any{"success": true})
	if err := client.DeleteActivity(context.Background(), "g1", "act1"); err != nil {
		t.Errorf("DeleteActivity() error = %v", err)
	}
}

func TestClientPollInfoRequiresStats(t *testing.T) {
	client, backend := newTestClient(t)
	backend.Respond("getPollInfo", map[string]any{})

	if _, err := client.GetPollInfo(context.Background(), "g1", "p1"); !IsKind(err, KindProtocol) {
		t.Errorf("GetPollInfo() error = %v, want protocol", err)
	}
}
