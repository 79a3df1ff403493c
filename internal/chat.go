package internal

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultChatPollInterval is how often the active chat is refreshed
	DefaultChatPollInterval = 30 * time.Second
	// StickyBottomTolerance is how close to the bottom the view must be to follow new messages
	StickyBottomTolerance = 50
	// SystemMessagePrefix marks locally generated message ids
	SystemMessagePrefix = "sys-"
)

// ChatView renders the message log of the active group
type ChatView interface {
	Replace(messages []ChatMessage)
	Append(messages []ChatMessage)
	NearBottom(tolerance int) bool
	ScrollToBottom()
}

// ChatClient is the subset of Client used by the synchronizer
type ChatClient interface {
	GetChat(ctx context.Context, groupID string, since int64) ([]ChatMessage, error)
	SendMessage(ctx context.Context, groupID, text string) error
}

// MergeResult describes what a merge changed
type MergeResult struct {
	First     bool          // the log was replaced wholesale
	Added     []ChatMessage // messages appended, in order received
	Reordered bool          // an added message sorted before an existing one
}

// ChatLog is the local mirror of one group's messages
type ChatLog struct {
	mu           sync.Mutex
	messages     []ChatMessage
	dedup        *Deduplicator
	watermark    int64
	hasWatermark bool
}

// NewChatLog creates an empty log with no watermark
func NewChatLog() *ChatLog {
	return &ChatLog{dedup: NewDeduplicator()}
}

// Since returns the watermark and whether one was recorded yet
func (l *ChatLog) Since() (int64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.watermark, l.hasWatermark
}

// Merge folds a fetched batch into the log. The first non-empty batch
// replaces the log; later batches append only unseen ids. The watermark
// only ever moves forward.
func (l *ChatLog) Merge(incoming []ChatMessage) MergeResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(incoming) == 0 {
		return MergeResult{}
	}

	var res MergeResult
	if !l.hasWatermark {
		l.dedup.Reset()
		l.messages = l.dedup.Deduplicate(incoming)
		sort.SliceStable(l.messages, l.less)
		res.First = true
		res.Added = append([]ChatMessage(nil), l.messages...)
	} else {
		added := l.dedup.Deduplicate(incoming)
		if len(added) == 0 {
			return res
		}
		l.messages = append(l.messages, added...)
		if !sort.SliceIsSorted(l.messages, l.less) {
			sort.SliceStable(l.messages, l.less)
			res.Reordered = true
		}
		res.Added = added
	}

	for _, msg := range res.Added {
		if !l.hasWatermark || msg.Timestamp > l.watermark {
			l.watermark = msg.Timestamp
			l.hasWatermark = true
		}
	}
	return res
}

func (l *ChatLog) less(i, j int) bool {
	return l.messages[i].Timestamp < l.messages[j].Timestamp
}

// AppendLocal adds a locally synthesized message without touching the watermark
func (l *ChatLog) AppendLocal(msg ChatMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dedup.Mark(msg.ID)
	l.messages = append(l.messages, msg)
}

// Messages returns a copy of the log in display order
func (l *ChatLog) Messages() []ChatMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ChatMessage(nil), l.messages...)
}

// NewSystemMessage creates a local system notice with a collision-free id
func NewSystemMessage(text string, now time.Time) ChatMessage {
	return ChatMessage{
		ID:        SystemMessagePrefix + uuid.NewString(),
		Type:      MessageTypeSystem,
		Text:      text,
		Timestamp: now.UnixMilli(),
	}
}

// ChatSynchronizer polls the active group's chat and merges it into the log
type ChatSynchronizer struct {
	client   ChatClient
	state    *AppState
	view     ChatView
	notifier Notifier
	now      func() time.Time

	renderMu sync.Mutex // serializes merge+render; never held across a remote call

	mu      sync.Mutex
	groupID string
	log     *ChatLog
	cancel  context.CancelFunc
}

// NewChatSynchronizer creates a synchronizer rendering into view
func NewChatSynchronizer(client ChatClient, state *AppState, view ChatView, notifier Notifier) *ChatSynchronizer {
	if view == nil {
		view = nopUI{}
	}
	if notifier == nil {
		notifier = nopUI{}
	}
	return &ChatSynchronizer{
		client:   client,
		state:    state,
		view:     view,
		notifier: notifier,
		now:      time.Now,
	}
}

// Start resets the log for groupID, fetches once, then polls every interval
// until the group's chat stops being the active view or ctx ends.
func (s *ChatSynchronizer) Start(ctx context.Context, groupID string, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultChatPollInterval
	}
	s.Stop()

	pollCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.groupID = groupID
	s.log = NewChatLog()
	s.cancel = cancel
	s.mu.Unlock()

	s.renderMu.Lock()
	s.view.Replace(nil)
	s.renderMu.Unlock()

	LogDebug("Starting chat polling for %s every %s", groupID, interval)
	s.FetchAndMerge(pollCtx, groupID)
	go s.poll(pollCtx, cancel, groupID, interval)
}

func (s *ChatSynchronizer) poll(ctx context.Context, cancel context.CancelFunc, groupID string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.state.IsActiveView(groupID, ViewChat) {
				LogDebug("Chat tab not active, stopping polling for %s", groupID)
				cancel()
				return
			}
			s.FetchAndMerge(ctx, groupID)
		}
	}
}

// Stop cancels the polling loop, if any
func (s *ChatSynchronizer) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		LogDebug("Stopping chat polling")
		cancel()
	}
}

// Log returns the log of groupID, or nil when another group is loaded
func (s *ChatSynchronizer) Log(groupID string) *ChatLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.groupID != groupID {
		return nil
	}
	return s.log
}

// FetchAndMerge pulls messages newer than the watermark and renders them.
// Failures are logged and otherwise ignored.
func (s *ChatSynchronizer) FetchAndMerge(ctx context.Context, groupID string) {
	s.fetchAndMerge(ctx, groupID, false)
}

func (s *ChatSynchronizer) fetchAndMerge(ctx context.Context, groupID string, forceScroll bool) {
	log := s.Log(groupID)
	if log == nil {
		return
	}

	since, _ := log.Since()
	messages, err := s.client.GetChat(ctx, groupID, since)
	if err != nil {
		LogWarn("Failed to fetch messages for %s: %v", groupID, err)
		return
	}

	if s.Log(groupID) != log || !s.state.IsActiveView(groupID, ViewChat) {
		LogDebug("Discarding chat response for inactive group %s", groupID)
		return
	}

	s.renderMu.Lock()
	defer s.renderMu.Unlock()

	nearBottom := s.view.NearBottom(StickyBottomTolerance)
	res := log.Merge(messages)

	switch {
	case res.First:
		s.view.Replace(log.Messages())
		s.view.ScrollToBottom()
		return
	case len(res.Added) == 0:
		return
	case res.Reordered:
		s.view.Replace(log.Messages())
	default:
		s.view.Append(res.Added)
	}
	if nearBottom || forceScroll {
		s.view.ScrollToBottom()
	}
}

// PostSystemMessage appends a local notice to the group's log. It is shown
// only while that group's chat is on screen and never moves the watermark.
func (s *ChatSynchronizer) PostSystemMessage(groupID, text string) bool {
	log := s.Log(groupID)
	if log == nil || !s.state.IsActiveView(groupID, ViewChat) {
		LogInfo("Chat not visible, system message skipped: %s", text)
		return false
	}

	msg := NewSystemMessage(text, s.now())

	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	log.AppendLocal(msg)
	s.view.Append([]ChatMessage{msg})
	s.view.ScrollToBottom()
	return true
}

// SendMessage posts text and then refreshes the chat, following the bottom
func (s *ChatSynchronizer) SendMessage(ctx context.Context, groupID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if err := s.client.SendMessage(ctx, groupID, text); err != nil {
		LogError("Failed to send message: %v", err)
		s.notifier.Notify("Could not send message.")
		return err
	}

	s.fetchAndMerge(ctx, groupID, true)
	return nil
}
