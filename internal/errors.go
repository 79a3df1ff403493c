package internal

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures returned by the request gateway
type ErrorKind int

const (
	KindConfiguration ErrorKind = iota + 1
	KindAuthMissing
	KindSessionInvalid
	KindRemote
	KindProtocol
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindAuthMissing:
		return "auth-missing"
	case KindSessionInvalid:
		return "session-invalid"
	case KindRemote:
		return "remote"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

const (
	// SessionInvalidMessage is shown whenever the remote store rejects the credential.
	SessionInvalidMessage = "Your session is invalid. Please log in again."
	// AuthMissingMessage is shown when an authenticated action runs without a stored credential.
	AuthMissingMessage = "Authentication token not found. Please log in."
)

var (
	// ErrStaleResponse is returned when a response arrives after its view stopped being active.
	ErrStaleResponse = errors.New("response discarded: view no longer active")
	// ErrUnresolvedSource is returned when a dragged member is not found in any team container.
	ErrUnresolvedSource = errors.New("member not found in any team container")
	// ErrNoActivityOpen is returned by detail operations when no activity is being viewed.
	ErrNoActivityOpen = errors.New("no activity is open")
	// ErrCancelled is returned when the user declines a confirmation.
	ErrCancelled = errors.New("cancelled by user")
	// ErrNoActiveGroup is returned by group-scoped operations when no group is selected.
	ErrNoActiveGroup = errors.New("no group selected")
)

// APIError represents a failed call through the request gateway
type APIError struct {
	Kind    ErrorKind
	Action  string
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("api error [%s]: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("api error [%s] %s: %s", e.Kind, e.Action, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err wraps an APIError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// UserMessage returns the text that should be shown to the user for err
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case KindSessionInvalid:
			return SessionInvalidMessage
		case KindAuthMissing:
			return AuthMissingMessage
		case KindProtocol:
			return "Failed to parse server response."
		}
		return apiErr.Message
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr.Reason
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// StorageError represents errors accessing the local credential store
type StorageError struct {
	Path string
	Op   string // "open", "load", "save", "remove"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ValidationError represents input rejected client-side before any remote call
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
