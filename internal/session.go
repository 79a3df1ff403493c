package internal

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// SessionState is the authentication mode of the client
type SessionState int

const (
	StateAnonymous SessionState = iota
	StateVerifying
	StateAuthenticated
)

func (s SessionState) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateVerifying:
		return "verifying"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Verifier checks a credential with the remote store
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (VerifyResult, error)
}

// SessionManager owns the credential lifecycle and the current Session
type SessionManager struct {
	tokens   TokenStore
	verifier Verifier
	identity IdentityWidget
	nav      Navigator

	restores singleflight.Group
	verifyMu sync.Mutex // one verification call in flight

	mu      sync.Mutex
	state   SessionState
	session *Session
}

// NewSessionManager creates a manager. The initial state is Verifying when a
// credential is already stored, Anonymous otherwise.
func NewSessionManager(tokens TokenStore, verifier Verifier, identity IdentityWidget, nav Navigator) *SessionManager {
	if identity == nil {
		identity = nopUI{}
	}
	if nav == nil {
		nav = nopUI{}
	}
	m := &SessionManager{
		tokens:   tokens,
		verifier: verifier,
		identity: identity,
		nav:      nav,
		state:    StateAnonymous,
	}
	token, err := tokens.LoadToken()
	if err != nil {
		LogWarn("Failed to read stored credential: %v", err)
	}
	if token != "" {
		m.state = StateVerifying
	}
	return m
}

// State returns the current authentication mode
func (m *SessionManager) State() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns the verified session, if any
func (m *SessionManager) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

// Actor returns the current session or nil, for system message composition
func (m *SessionManager) Actor() *Session {
	if s, ok := m.Current(); ok {
		return &s
	}
	return nil
}

// RestoreSession verifies the stored credential. Concurrent calls share a
// single verification; an already authenticated manager returns immediately.
func (m *SessionManager) RestoreSession(ctx context.Context) SessionState {
	if m.State() == StateAuthenticated {
		return StateAuthenticated
	}

	v, _, _ := m.restores.Do("restore", func() (interface{}, error) {
		return m.restore(ctx), nil
	})
	return v.(SessionState)
}

func (m *SessionManager) restore(ctx context.Context) SessionState {
	if m.State() == StateAuthenticated {
		return StateAuthenticated
	}
	token, err := m.tokens.LoadToken()
	if err != nil {
		LogWarn("Failed to read stored credential: %v", err)
	}
	if token == "" {
		m.clear()
		return StateAnonymous
	}

	m.setState(StateVerifying)
	LogDebug("Found stored credential, verifying")

	res, err := m.verify(ctx, token)
	if err != nil {
		LogWarn("Stored credential verification failed: %v", err)
		m.clear()
		return StateAnonymous
	}

	m.authenticate(res)
	LogInfo("Session restored for %s", res.Email)
	return StateAuthenticated
}

// CompleteSignIn verifies a freshly issued credential and persists it
func (m *SessionManager) CompleteSignIn(ctx context.Context, fresh string) error {
	fresh = strings.TrimSpace(fresh)
	if fresh == "" {
		m.clear()
		return &ValidationError{Field: "credential", Reason: "No credential received from the identity provider."}
	}

	m.setState(StateVerifying)
	res, err := m.verify(ctx, fresh)
	if err != nil {
		LogError("Sign-in verification failed: %v", err)
		m.clear()
		return err
	}

	if err := m.tokens.SaveToken(fresh); err != nil {
		m.clear()
		return err
	}
	m.authenticate(res)
	LogInfo("Signed in as %s", res.Email)
	return nil
}

func (m *SessionManager) verify(ctx context.Context, token string) (VerifyResult, error) {
	m.verifyMu.Lock()
	defer m.verifyMu.Unlock()

	res, err := m.verifier.VerifyToken(ctx, token)
	if err != nil {
		return res, err
	}
	if !res.Verified {
		msg := res.Error
		if msg == "" {
			msg = "Account verification failed on the server."
		}
		return res, &APIError{Kind: KindRemote, Action: VerifyAction, Message: msg}
	}
	if res.Email == "" {
		return res, &APIError{Kind: KindProtocol, Action: VerifyAction, Message: "verified response without identity",
			Err: errors.New("missing email")}
	}
	return res, nil
}

// Logout clears the session and credential, disables silent
// re-authentication and shows the login view. Safe to call repeatedly.
func (m *SessionManager) Logout() {
	m.clear()
	m.identity.DisableAutoSelect()
	m.nav.ShowLogin()
}

func (m *SessionManager) authenticate(res VerifyResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = &Session{ID: res.Email, Name: res.Name, PictureURL: res.Pfp}
	m.state = StateAuthenticated
}

func (m *SessionManager) setState(s SessionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

func (m *SessionManager) clear() {
	m.mu.Lock()
	m.session = nil
	m.state = StateAnonymous
	m.mu.Unlock()

	if err := m.tokens.RemoveToken(); err != nil {
		LogError("Failed to remove stored credential: %v", err)
	}
}
