package cmd

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/iksnae/corner/internal"
	"github.com/iksnae/corner/testutil"
)

func newChatCLI(t *testing.T) *cli {
	t.Helper()
	c := newCLI(t, "stored-token")
	c.backend.Respond("getGroupDetails", map[string]any{"name": "Book club", "code": "BOOK42"})
	c.backend.Respond("getChat", testutil.SampleMessages([]string{"m2", "m1"}, []int64{2000, 1000}))
	return c
}

func TestRenderMessage(t *testing.T) {
	now := time.UnixMilli(3_600_000)
	tests := []struct {
		name string
		msg  internal.ChatMessage
		want []string
	}{
		{
			name: "user message",
			msg:  internal.ChatMessage{Type: internal.MessageTypeUser, Text: "hello%20there", UserName: "Ann", Timestamp: 0},
			want: []string{"Ann", "hello there", "1 hour ago"},
		},
		{
			name: "falls back to user id",
			msg:  internal.ChatMessage{Type: internal.MessageTypeUser, Text: "hi", UserID: "bob@x.com", Timestamp: 3_600_000},
			want: []string{"bob@x.com", "hi", "now"},
		},
		{
			name: "system notice",
			msg:  internal.ChatMessage{ID: "sys-1", Type: internal.MessageTypeSystem, Text: "ANN MOVED BOB TO TEAM2", Timestamp: 3_600_000},
			want: []string{"ANN MOVED BOB TO TEAM2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderMessage(tt.msg, now)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("renderMessage() = %q, missing %q", got, want)
				}
			}
		})
	}
}

func TestTerminalChatReplacePrintsOnlyNewMessages(t *testing.T) {
	var out bytes.Buffer
	ui := newTerminalUI(&out, io.Discard, strings.NewReader(""), false)
	msg := func(id string, ts int64) internal.ChatMessage {
		return internal.ChatMessage{ID: id, Type: internal.MessageTypeUser, Text: "message " + id, UserName: "Ann", Timestamp: ts}
	}

	ui.Replace(nil)
	ui.Replace([]internal.ChatMessage{msg("m1", 1000)})
	ui.Append([]internal.ChatMessage{internal.NewSystemMessage("POLL CREATED", time.UnixMilli(3000))})
	ui.Replace([]internal.ChatMessage{msg("m1", 1000), msg("m2", 2000)})

	if got := strings.Count(out.String(), "message m1"); got != 1 {
		t.Errorf("m1 printed %d times, want 1:\n%s", got, out.String())
	}
	if got := strings.Count(out.String(), "POLL CREATED"); got != 1 {
		t.Errorf("system notice printed %d times, want 1:\n%s", got, out.String())
	}
	if !strings.Contains(out.String(), "message m2") {
		t.Errorf("late message missing:\n%s", out.String())
	}

	out.Reset()
	ui.Replace(nil)
	ui.Replace([]internal.ChatMessage{msg("m1", 1000)})
	if !strings.Contains(out.String(), "message m1") {
		t.Errorf("a fresh log should be printed again:\n%s", out.String())
	}
}

func TestChatShowPrintsHistoryInOrder(t *testing.T) {
	c := newChatCLI(t)

	stdout, _, err := c.run("chat", "show", "g1")
	if err != nil {
		t.Fatalf("chat show error = %v", err)
	}
	first, second := strings.Index(stdout, "message m1"), strings.Index(stdout, "message m2")
	if first < 0 || second < 0 || first > second {
		t.Errorf("messages missing or out of order:\n%s", stdout)
	}
	calls := c.backend.CallsFor("getChat")
	if len(calls) != 1 || calls[0].Params.Has("since") {
		t.Errorf("first fetch should have no watermark: %+v", calls)
	}
}

func TestChatSend(t *testing.T) {
	c := newChatCLI(t)
	c.backend.Respond("sendMessage", "ok")

	if _, _, err := c.run("chat", "send", "g1", "see", "you", "there"); err != nil {
		t.Fatalf("chat send error = %v", err)
	}
	calls := c.backend.CallsFor("sendMessage")
	if len(calls) != 1 {
		t.Fatalf("sendMessage calls = %d, want 1", len(calls))
	}
	if got := calls[0].Params.Get("message"); got != internal.EncodeMessageText("see you there") {
		t.Errorf("message = %q", got)
	}
	chats := c.backend.CallsFor("getChat")
	if len(chats) != 2 || chats[1].Params.Get("since") != "2000" {
		t.Errorf("refresh after send should use the watermark: %+v", chats)
	}
}

func TestOpenRoutes(t *testing.T) {
	t.Run("join link", func(t *testing.T) {
		c := newChatCLI(t)
		c.backend.Respond("joinGroup", map[string]any{"groupId": "g1"})

		stdout, _, err := c.run("open", "#join=book42")
		if err != nil {
			t.Fatalf("open error = %v", err)
		}
		if got := c.backend.CallsFor("joinGroup")[0].Params.Get("code"); got != "BOOK42" {
			t.Errorf("join code = %q", got)
		}
		if !strings.Contains(stdout, "message m1") {
			t.Errorf("joined group's chat not shown:\n%s", stdout)
		}
	})

	t.Run("home", func(t *testing.T) {
		c := newChatCLI(t)
		c.backend.Respond("getGroups", []map[string]any{{"id": "g1", "name": "Book club"}})

		stdout, _, err := c.run("open")
		if err != nil {
			t.Fatalf("open error = %v", err)
		}
		if !strings.Contains(stdout, "Book club") {
			t.Errorf("group list not shown:\n%s", stdout)
		}
		if got := c.backend.CallCount("getChat"); got != 0 {
			t.Errorf("getChat calls = %d, want 0 on the group list", got)
		}
	})
}

func TestOpenTab(t *testing.T) {
	t.Run("polls", func(t *testing.T) {
		c := newChatCLI(t)
		c.backend.Respond("getPolls", testutil.SamplePolls())

		stdout, _, err := c.run("open", "--tab", "polls", "#group/g1")
		if err != nil {
			t.Fatalf("open error = %v", err)
		}
		if !strings.Contains(stdout, "Lunch") {
			t.Errorf("polls tab not shown:\n%s", stdout)
		}
	})

	t.Run("activities", func(t *testing.T) {
		c := newChatCLI(t)
		c.backend.Respond("getActivities", []map[string]any{{"id": "act1", "title": "Hike"}})

		stdout, _, err := c.run("open", "--tab", "activities", "#group/g1")
		if err != nil {
			t.Fatalf("open error = %v", err)
		}
		if !strings.Contains(stdout, "[act1]") {
			t.Errorf("activities tab not shown:\n%s", stdout)
		}
	})

	t.Run("unknown tab", func(t *testing.T) {
		c := newChatCLI(t)

		if _, _, err := c.run("open", "--tab", "members", "#group/g1"); err == nil {
			t.Fatal("unknown tab should be rejected")
		}
		if n := len(c.backend.Calls()); n != 0 {
			t.Errorf("backend calls = %d, want 0", n)
		}
	})
}
