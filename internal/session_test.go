package internal

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

type stubVerifier struct {
	calls   atomic.Int32
	result  VerifyResult
	err     error
	entered chan struct{}
	release chan struct{}
}

func (v *stubVerifier) VerifyToken(ctx context.Context, token string) (VerifyResult, error) {
	v.calls.Add(1)
	if v.entered != nil {
		v.entered <- struct{}{}
	}
	if v.release != nil {
		<-v.release
	}
	return v.result, v.err
}

type recordingUI struct {
	mu           sync.Mutex
	logins       int
	autoDisabled int
	notes        []string
}

func (r *recordingUI) ShowLogin() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logins++
}

func (r *recordingUI) DisableAutoSelect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.autoDisabled++
}

func (r *recordingUI) Notify(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, msg)
}

func (r *recordingUI) Notes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.notes...)
}

func verified(email, name string) VerifyResult {
	return VerifyResult{Verified: true, Email: email, Name: name}
}

func TestNewSessionManagerInitialState(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  SessionState
	}{
		{"stored credential", "tok", StateVerifying},
		{"no credential", "", StateAnonymous},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewSessionManager(NewMemoryTokenStore(tt.token), &stubVerifier{}, nil, nil)
			if got := m.State(); got != tt.want {
				t.Errorf("State() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRestoreSession(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		verifier  *stubVerifier
		want      SessionState
		wantToken string
		wantCalls int32
	}{
		{
			name:      "verified",
			token:     "tok",
			verifier:  &stubVerifier{result: verified("a@x.com", "Ann")},
			want:      StateAuthenticated,
			wantToken: "tok",
			wantCalls: 1,
		},
		{
			name:      "rejected",
			token:     "tok",
			verifier:  &stubVerifier{result: VerifyResult{Verified: false}},
			want:      StateAnonymous,
			wantCalls: 1,
		},
		{
			name:      "transport failure",
			token:     "tok",
			verifier:  &stubVerifier{err: errors.New("dial tcp: refused")},
			want:      StateAnonymous,
			wantCalls: 1,
		},
		{
			name:      "no credential",
			verifier:  &stubVerifier{result: verified("a@x.com", "Ann")},
			want:      StateAnonymous,
			wantCalls: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryTokenStore(tt.token)
			m := NewSessionManager(store, tt.verifier, nil, nil)

			if got := m.RestoreSession(context.Background()); got != tt.want {
				t.Errorf("RestoreSession() = %v, want %v", got, tt.want)
			}
			if got, _ := store.LoadToken(); got != tt.wantToken {
				t.Errorf("stored token = %q, want %q", got, tt.wantToken)
			}
			if got := tt.verifier.calls.Load(); got != tt.wantCalls {
				t.Errorf("verify calls = %d, want %d", got, tt.wantCalls)
			}
			if _, ok := m.Current(); ok != (tt.want == StateAuthenticated) {
				t.Errorf("Current() ok = %v, want %v", ok, tt.want == StateAuthenticated)
			}
		})
	}
}

func TestRestoreSessionPopulatesSession(t *testing.T) {
	v := &stubVerifier{result: VerifyResult{Verified: true, Email: "a@x.com", Name: "Ann", Pfp: "https://img/a.png"}}
	m := NewSessionManager(NewMemoryTokenStore("tok"), v, nil, nil)
	m.RestoreSession(context.Background())

	s, ok := m.Current()
	if !ok {
		t.Fatal("Current() returned no session")
	}
	want := Session{ID: "a@x.com", Name: "Ann", PictureURL: "https://img/a.png"}
	if s != want {
		t.Errorf("Current() = %+v, want %+v", s, want)
	}

	m.RestoreSession(context.Background())
	if v.calls.Load() != 1 {
		t.Errorf("restore while authenticated issued %d calls, want 1 total", v.calls.Load())
	}
}

func TestRestoreSessionSingleVerificationInFlight(t *testing.T) {
	v := &stubVerifier{
		result:  verified("a@x.com", "Ann"),
		entered: make(chan struct{}, 4),
		release: make(chan struct{}),
	}
	m := NewSessionManager(NewMemoryTokenStore("tok"), v, nil, nil)

	var wg sync.WaitGroup
	results := make([]SessionState, 3)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = m.RestoreSession(context.Background())
	}()
	<-v.entered

	for i := 1; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.RestoreSession(context.Background())
		}(i)
	}
	close(v.release)
	wg.Wait()

	if got := v.calls.Load(); got != 1 {
		t.Errorf("verify calls = %d, want 1", got)
	}
	for i, r := range results {
		if r != StateAuthenticated {
			t.Errorf("RestoreSession() #%d = %v, want authenticated", i, r)
		}
	}
}

func TestCompleteSignIn(t *testing.T) {
	t.Run("success persists credential", func(t *testing.T) {
		store := NewMemoryTokenStore("")
		m := NewSessionManager(store, &stubVerifier{result: verified("a@x.com", "Ann")}, nil, nil)

		if err := m.CompleteSignIn(context.Background(), "fresh"); err != nil {
			t.Fatalf("CompleteSignIn() error = %v", err)
		}
		if got, _ := store.LoadToken(); got != "fresh" {
			t.Errorf("stored token = %q, want fresh", got)
		}
		if m.State() != StateAuthenticated {
			t.Errorf("State() = %v", m.State())
		}
	})

	t.Run("failure clears stored credential", func(t *testing.T) {
		store := NewMemoryTokenStore("old")
		m := NewSessionManager(store, &stubVerifier{result: VerifyResult{Error: "Account not allowed"}}, nil, nil)

		err := m.CompleteSignIn(context.Background(), "fresh")
		if err == nil || UserMessage(err) != "Account not allowed" {
			t.Fatalf("CompleteSignIn() error = %v", err)
		}
		if got, _ := store.LoadToken(); got != "" {
			t.Errorf("stored token = %q, want empty", got)
		}
		if m.State() != StateAnonymous {
			t.Errorf("State() = %v", m.State())
		}
	})

	t.Run("empty credential", func(t *testing.T) {
		v := &stubVerifier{}
		m := NewSessionManager(NewMemoryTokenStore(""), v, nil, nil)
		if err := m.CompleteSignIn(context.Background(), "  "); err == nil {
			t.Error("CompleteSignIn(\"\") should fail")
		}
		if v.calls.Load() != 0 {
			t.Error("empty credential should not be verified remotely")
		}
	})
}

func TestLogoutIsIdempotent(t *testing.T) {
	store := NewMemoryTokenStore("tok")
	ui := &recordingUI{}
	m := NewSessionManager(store, &stubVerifier{result: verified("a@x.com", "Ann")}, ui, ui)
	m.RestoreSession(context.Background())

	m.Logout()
	m.Logout()

	if m.State() != StateAnonymous {
		t.Errorf("State() = %v, want anonymous", m.State())
	}
	if _, ok := m.Current(); ok {
		t.Error("Current() should be empty after logout")
	}
	if got, _ := store.LoadToken(); got != "" {
		t.Errorf("stored token = %q after logout", got)
	}
	if ui.logins != 2 || ui.autoDisabled != 2 {
		t.Errorf("logins = %d, autoDisabled = %d, want 2 each", ui.logins, ui.autoDisabled)
	}
}
