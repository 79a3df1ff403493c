package internal

import (
	"context"
	"fmt"
)

// ViewModel is a locally rendered cache that can be snapshotted and restored.
// Snapshot must return a deep copy; Restore replaces the cache and re-renders.
type ViewModel[T any] interface {
	Snapshot() T
	Restore(T)
}

// SystemPoster receives locally synthesized chat notices
type SystemPoster interface {
	PostSystemMessage(groupID, text string) bool
}

// ActorSource provides the signed-in user, or nil
type ActorSource interface {
	Actor() *Session
}

// Mutation describes one optimistic change
type Mutation[T any] struct {
	Name    string
	GroupID string

	// Apply derives the tentative state from a copy of the current one
	Apply func(T) T
	// Send issues the remote call; a nil entity means the reply was an ack
	Send func(ctx context.Context) (*T, error)
	// Merge folds an ack into the current state
	Merge func(T) T
	// Active reports whether the view the mutation was issued from is still on screen
	Active func() bool
	// Describe composes the chat notice for a successful change; "" skips it
	Describe func(result T, actor *Session) string

	FailureMessage string
}

// MutationController runs optimistic mutations and posts their notices
type MutationController struct {
	actors   ActorSource
	poster   SystemPoster
	notifier Notifier
}

// NewMutationController creates a controller
func NewMutationController(actors ActorSource, poster SystemPoster, notifier Notifier) *MutationController {
	if notifier == nil {
		notifier = nopUI{}
	}
	return &MutationController{actors: actors, poster: poster, notifier: notifier}
}

// RunMutation applies m to vm optimistically, then either commits the
// authoritative result or restores the pre-mutation snapshot.
func RunMutation[T any](ctx context.Context, c *MutationController, vm ViewModel[T], m Mutation[T]) (T, error) {
	rollback := vm.Snapshot()

	tentative := vm.Snapshot()
	if m.Apply != nil {
		tentative = m.Apply(tentative)
	}
	vm.Restore(tentative)

	entity, err := m.Send(ctx)

	if m.Active != nil && !m.Active() {
		LogWarn("%s: discarding response for a view that is no longer active", m.Name)
		return rollback, fmt.Errorf("%s: %w", m.Name, ErrStaleResponse)
	}

	if err != nil {
		vm.Restore(rollback)
		LogError("%s failed: %v", m.Name, err)
		msg := m.FailureMessage
		if IsKind(err, KindSessionInvalid) || IsKind(err, KindAuthMissing) || msg == "" {
			msg = UserMessage(err)
		}
		c.notifier.Notify(msg)
		return rollback, err
	}

	var result T
	switch {
	case entity != nil:
		result = *entity
	case m.Merge != nil:
		result = m.Merge(vm.Snapshot())
	default:
		result = vm.Snapshot()
	}
	vm.Restore(result)

	if m.Describe != nil && c.poster != nil {
		var actor *Session
		if c.actors != nil {
			actor = c.actors.Actor()
		}
		if text := m.Describe(result, actor); text != "" {
			c.poster.PostSystemMessage(m.GroupID, text)
		} else {
			LogDebug("%s: no system message composed", m.Name)
		}
	}
	return result, nil
}
