package internal

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type stubChatClient struct {
	mu       sync.Mutex
	batches  [][]ChatMessage
	errs     []error
	sinces   []int64
	sent     []string
	sendErr  error
	onGet    func()
	getCalls int
}

func (c *stubChatClient) GetChat(ctx context.Context, groupID string, since int64) ([]ChatMessage, error) {
	c.mu.Lock()
	c.getCalls++
	c.sinces = append(c.sinces, since)
	var batch []ChatMessage
	var err error
	if len(c.batches) > 0 {
		batch, c.batches = c.batches[0], c.batches[1:]
	}
	if len(c.errs) > 0 {
		err, c.errs = c.errs[0], c.errs[1:]
	}
	hook := c.onGet
	c.mu.Unlock()

	if hook != nil {
		hook()
	}
	return batch, err
}

func (c *stubChatClient) SendMessage(ctx context.Context, groupID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	return c.sendErr
}

func (c *stubChatClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getCalls
}

type recordingChatView struct {
	mu       sync.Mutex
	rendered []ChatMessage
	replaces int
	scrolls  int
	near     bool
}

func (v *recordingChatView) Replace(msgs []ChatMessage) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rendered = append([]ChatMessage(nil), msgs...)
	v.replaces++
}

func (v *recordingChatView) Append(msgs []ChatMessage) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rendered = append(v.rendered, msgs...)
}

func (v *recordingChatView) NearBottom(int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.near
}

func (v *recordingChatView) ScrollToBottom() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scrolls++
}

func (v *recordingChatView) ids() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []string
	for _, m := range v.rendered {
		out = append(out, m.ID)
	}
	return out
}

func msgs(pairs ...any) []ChatMessage {
	var out []ChatMessage
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, CreateTestMessage(pairs[i].(string), "text", int64(pairs[i+1].(int))))
	}
	return out
}

func TestChatLogIdempotentMerge(t *testing.T) {
	log := NewChatLog()
	batches := [][]ChatMessage{
		msgs("m1", 100, "m2", 200),
		msgs("m2", 200, "m3", 300),
		msgs("m1", 100, "m3", 300, "m4", 400),
		msgs("m0", 50),
		msgs("m4", 400),
	}
	for _, b := range batches {
		log.Merge(b)
	}

	got := log.Messages()
	seen := map[string]int{}
	for i, m := range got {
		seen[m.ID]++
		if i > 0 && got[i-1].Timestamp > m.Timestamp {
			t.Errorf("log not ordered at %d: %d > %d", i, got[i-1].Timestamp, m.Timestamp)
		}
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("id %s appears %d times", id, n)
		}
	}
	if len(got) != 5 {
		t.Errorf("log has %d messages, want 5", len(got))
	}
}

func TestChatLogMonotonicWatermark(t *testing.T) {
	log := NewChatLog()
	if _, ok := log.Since(); ok {
		t.Fatal("new log should have no watermark")
	}

	steps := []struct {
		batch []ChatMessage
		want  int64
	}{
		{msgs("m1", 100, "m2", 300), 300},
		{msgs("m3", 200), 300},
		{nil, 300},
		{msgs("m4", 500), 500},
		{msgs("m4", 500), 500},
	}
	prev := int64(0)
	for i, step := range steps {
		log.Merge(step.batch)
		got, _ := log.Since()
		if got < prev {
			t.Errorf("step %d: watermark regressed %d -> %d", i, prev, got)
		}
		if got != step.want {
			t.Errorf("step %d: watermark = %d, want %d", i, got, step.want)
		}
		prev = got
	}
}

func TestChatLogLocalMessagesKeepWatermark(t *testing.T) {
	log := NewChatLog()
	log.Merge(msgs("m1", 100))
	sys := NewSystemMessage("ANN MOVED BOB TO TEAM2", time.UnixMilli(9999))
	log.AppendLocal(sys)

	if w, _ := log.Since(); w != 100 {
		t.Errorf("watermark = %d after local append, want 100", w)
	}
	if !strings.HasPrefix(sys.ID, SystemMessagePrefix) || !sys.IsSystem() {
		t.Errorf("system message = %+v", sys)
	}

	res := log.Merge(msgs("m2", 200))
	if len(res.Added) != 1 {
		t.Errorf("server message should not be de-duplicated against a local one")
	}
}

func newTestChat(client *stubChatClient) (*ChatSynchronizer, *AppState, *recordingChatView, *recordingUI) {
	state := NewAppState()
	state.EnterGroup("g1")
	view := &recordingChatView{}
	ui := &recordingUI{}
	return NewChatSynchronizer(client, state, view, ui), state, view, ui
}

func TestChatSynchronizerScrollPolicy(t *testing.T) {
	client := &stubChatClient{batches: [][]ChatMessage{
		msgs("m1", 100, "m2", 200),
		msgs("m3", 300),
		msgs("m4", 400),
	}}
	chat, _, view, _ := newTestChat(client)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chat.Start(ctx, "g1", time.Hour)
	if view.scrolls != 1 {
		t.Fatalf("first fetch scrolls = %d, want 1", view.scrolls)
	}
	if client.sinces[0] != 0 {
		t.Errorf("first fetch since = %d, want 0", client.sinces[0])
	}

	view.near = false
	chat.FetchAndMerge(ctx, "g1")
	if view.scrolls != 1 {
		t.Errorf("reading scrollback should not be yanked, scrolls = %d", view.scrolls)
	}
	if client.sinces[1] != 200 {
		t.Errorf("second fetch since = %d, want 200", client.sinces[1])
	}

	view.near = true
	chat.FetchAndMerge(ctx, "g1")
	if view.scrolls != 2 {
		t.Errorf("near-bottom view should follow, scrolls = %d", view.scrolls)
	}

	if got := strings.Join(view.ids(), ","); got != "m1,m2,m3,m4" {
		t.Errorf("rendered = %s", got)
	}
	chat.Stop()
}

func TestChatSynchronizerSwallowsFailures(t *testing.T) {
	client := &stubChatClient{
		batches: [][]ChatMessage{nil, msgs("m1", 100)},
		errs:    []error{errors.New("network down"), nil},
	}
	chat, _, view, _ := newTestChat(client)
	ctx := context.Background()

	chat.Start(ctx, "g1", time.Hour)
	chat.Stop()
	chat.FetchAndMerge(ctx, "g1")

	if got := view.ids(); len(got) != 1 || got[0] != "m1" {
		t.Errorf("rendered after recovery = %v", got)
	}
}

func TestChatSynchronizerDiscardsStaleResponse(t *testing.T) {
	client := &stubChatClient{batches: [][]ChatMessage{msgs("m1", 100)}}
	chat, state, view, _ := newTestChat(client)
	client.onGet = func() { state.SwitchView(ViewPolls) }

	chat.Start(context.Background(), "g1", time.Hour)
	chat.Stop()

	if len(view.ids()) != 0 {
		t.Errorf("stale response was rendered: %v", view.ids())
	}
	if _, ok := chat.Log("g1").Since(); ok {
		t.Error("stale response advanced the watermark")
	}
}

func TestChatPollingStopsWhenViewInactive(t *testing.T) {
	client := &stubChatClient{}
	chat, state, _, _ := newTestChat(client)

	chat.Start(context.Background(), "g1", 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	if client.calls() < 2 {
		t.Fatalf("poller issued %d fetches, want at least 2", client.calls())
	}

	state.SwitchView(ViewActivities)
	time.Sleep(20 * time.Millisecond)
	after := client.calls()
	time.Sleep(30 * time.Millisecond)
	if client.calls() != after {
		t.Errorf("poller kept fetching after the chat tab closed: %d -> %d", after, client.calls())
	}
}

func TestChatPostSystemMessage(t *testing.T) {
	client := &stubChatClient{batches: [][]ChatMessage{msgs("m1", 100)}}
	chat, state, view, _ := newTestChat(client)
	chat.Start(context.Background(), "g1", time.Hour)
	chat.Stop()

	if !chat.PostSystemMessage("g1", "ANN ADJUSTED TEAMS FOR ACTIVITY 'HIKE'") {
		t.Fatal("PostSystemMessage() skipped while chat visible")
	}
	if n := len(view.ids()); n != 2 {
		t.Errorf("rendered %d messages, want 2", n)
	}
	if w, _ := chat.Log("g1").Since(); w != 100 {
		t.Errorf("watermark = %d, want 100", w)
	}

	state.SwitchView(ViewActivities)
	if chat.PostSystemMessage("g1", "hidden") {
		t.Error("PostSystemMessage() should skip while chat is hidden")
	}
}

func TestChatSendMessage(t *testing.T) {
	t.Run("blank text", func(t *testing.T) {
		client := &stubChatClient{}
		chat, _, _, _ := newTestChat(client)
		if err := chat.SendMessage(context.Background(), "g1", "   "); err != nil {
			t.Errorf("SendMessage() error = %v", err)
		}
		if len(client.sent) != 0 {
			t.Error("blank message should not be sent")
		}
	})

	t.Run("failure notifies", func(t *testing.T) {
		client := &stubChatClient{sendErr: errors.New("boom")}
		chat, _, _, ui := newTestChat(client)
		if err := chat.SendMessage(context.Background(), "g1", "hi"); err == nil {
			t.Error("SendMessage() should return the failure")
		}
		if notes := ui.Notes(); len(notes) != 1 || notes[0] != "Could not send message." {
			t.Errorf("notifications = %v", notes)
		}
	})

	t.Run("success refreshes and scrolls", func(t *testing.T) {
		client := &stubChatClient{batches: [][]ChatMessage{msgs("m1", 100), msgs("m2", 200)}}
		chat, _, view, _ := newTestChat(client)
		chat.Start(context.Background(), "g1", time.Hour)
		chat.Stop()
		view.near = false

		if err := chat.SendMessage(context.Background(), "g1", "  hello  "); err != nil {
			t.Fatalf("SendMessage() error = %v", err)
		}
		if client.sent[0] != "hello" {
			t.Errorf("sent %q, want trimmed text", client.sent[0])
		}
		if view.scrolls != 2 {
			t.Errorf("scrolls = %d, want 2", view.scrolls)
		}
	})
}
