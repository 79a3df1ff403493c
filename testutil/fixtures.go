package testutil

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	_ "modernc.org/sqlite"
)

// CreateSQLiteFixture creates a credential database file holding token
func CreateSQLiteFixture(t *testing.T, dbPath, token string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(createKVTableSQL); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	if token != "" {
		InsertKV(t, db, credentialKey, token)
	}
}

// Call is one request received by the fake backend
type Call struct {
	Action string
	Params url.Values
}

// Reply describes how the fake backend answers one action
type Reply struct {
	Status int    // defaults to 200
	Result any    // encoded as {"result": ...}
	Error  string // encoded as {"error": ...} when set
	Raw    string // written verbatim when set
}

// ActionHandler produces the reply for a request
type ActionHandler func(params url.Values) Reply

// FakeBackend is an httptest server speaking the action/result protocol
type FakeBackend struct {
	Server *httptest.Server

	mu       sync.Mutex
	handlers map[string]ActionHandler
	calls    []Call
}

// NewFakeBackend starts a fake backend that is closed when the test ends
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	f := &FakeBackend{handlers: make(map[string]ActionHandler)}

	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Get("/exec", f.serve)

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

// Endpoint returns the URL the gateway should call
func (f *FakeBackend) Endpoint() string {
	return f.Server.URL + "/exec"
}

// Handle registers a handler for action
func (f *FakeBackend) Handle(action string, h ActionHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[action] = h
}

// Respond makes action succeed with result
func (f *FakeBackend) Respond(action string, result any) {
	f.Handle(action, func(url.Values) Reply { return Reply{Result: result} })
}

// Fail makes action answer with an error message
func (f *FakeBackend) Fail(action, message string) {
	f.Handle(action, func(url.Values) Reply { return Reply{Error: message} })
}

// RespondRaw makes action answer with a fixed status and body
func (f *FakeBackend) RespondRaw(action string, status int, body string) {
	f.Handle(action, func(url.Values) Reply { return Reply{Status: status, Raw: body} })
}

// Calls returns a copy of every request received so far
func (f *FakeBackend) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsFor returns the requests received for action
func (f *FakeBackend) CallsFor(action string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Action == action {
			out = append(out, c)
		}
	}
	return out
}

// CallCount returns how many requests were received for action
func (f *FakeBackend) CallCount(action string) int {
	return len(f.CallsFor(action))
}

// Reset forgets recorded calls
func (f *FakeBackend) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *FakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	action := params.Get("action")

	f.mu.Lock()
	f.calls = append(f.calls, Call{Action: action, Params: params})
	h, ok := f.handlers[action]
	f.mu.Unlock()

	reply := Reply{Error: fmt.Sprintf("Unknown action: %s", action)}
	if ok {
		reply = h(params)
	}

	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if reply.Raw != "" {
		_, _ = w.Write([]byte(reply.Raw))
		return
	}
	body := map[string]any{"result": reply.Result}
	if reply.Error != "" {
		body = map[string]any{"error": reply.Error}
	}
	_ = json.NewEncoder(w).Encode(body)
}

// SampleActivity returns the wire form of an activity with two teams
func SampleActivity() map[string]any {
	return map[string]any{
		"id":          "act1",
		"title":       "Hike",
		"description": "Saturday trail",
		"materials":   "water",
		"time":        "9am",
		"teamCount":   2,
		"teams": map[string]any{
			"team1":      []string{"b@x.com"},
			"team2":      []string{},
			"unassigned": []string{"a@x.com"},
		},
		"members": map[string]any{
			"a@x.com": map[string]string{"name": "Ann", "pfp": "https://img.example/a.png"},
			"b@x.com": map[string]string{"name": "Bob"},
		},
	}
}

// SamplePolls returns the wire form of one poll with a 3/1 split
func SamplePolls() []map[string]any {
	return []map[string]any{
		{
			"id":    "p1",
			"title": "Lunch",
			"options": []map[string]any{
				{"id": "o1", "text": "Pizza", "voteCount": 3},
				{"id": "o2", "text": "Tacos", "voteCount": 1},
			},
			"totalVotes": 4,
			"userVote":   nil,
		},
	}
}

// SampleMessages returns the wire form of chat messages with the given ids and timestamps
func SampleMessages(ids []string, timestamps []int64) []map[string]any {
	out := make([]map[string]any, 0, len(ids))
	for i, id := range ids {
		out = append(out, map[string]any{
			"id":        id,
			"type":      "user",
			"text":      "message%20" + id,
			"timestamp": timestamps[i],
			"userId":    "a@x.com",
			"userName":  "Ann",
		})
	}
	return out
}

// VerifiedUser returns a successful verifyToken payload
func VerifiedUser(email, name string) map[string]any {
	return map[string]any{"verified": true, "email": email, "name": name, "pfp": ""}
}
