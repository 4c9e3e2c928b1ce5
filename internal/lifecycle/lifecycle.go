// Package lifecycle owns the request state machine: open until resolved,
// resolved terminal. It enforces who may confirm resolution.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/quarterdeck/internal/gateway"
	"github.com/quarterdeck/internal/store"
)

// ErrNotRequester is reported when a non-privileged resolve is attempted by
// someone other than the person who opened the request. Callers turn it into
// the confirmation-prompt flow, not an error surfaced to the user.
var ErrNotRequester = errors.New("actor is not the original requester")

// Store is the record-store subset the engine needs.
type Store interface {
	RequestByPublicTS(ctx context.Context, publicTS string) (*store.Request, error)
	PersonByID(ctx context.Context, id int64) (*store.Person, error)
	ResolveRequest(ctx context.Context, publicTS string) error
}

// Channels names the two linked channels the engine notifies.
type Channels struct {
	Support string
	Request string
}

// Engine applies lifecycle transitions and posts the resulting notices.
type Engine struct {
	store    Store
	gw       gateway.Gateway
	channels Channels
	log      zerolog.Logger
}

// New creates a lifecycle engine.
func New(st Store, gw gateway.Gateway, channels Channels, log zerolog.Logger) *Engine {
	return &Engine{store: st, gw: gw, channels: channels, log: log}
}

// Resolve marks the request behind publicTS as resolved and notifies both
// linked threads. Missing requests and already-resolved requests are silent
// no-ops, which makes redelivered events safe. Unless privileged, the actor
// must be the original requester; closing macros use the privileged path.
func (e *Engine) Resolve(ctx context.Context, publicTS, actorID string, privileged bool) error {
	req, err := e.store.RequestByPublicTS(ctx, publicTS)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.log.Debug().Str("public_ts", publicTS).Msg("resolve skipped, no request on record")
			return nil
		}
		return fmt.Errorf("failed to load request for resolve: %w", err)
	}

	if req.Resolved() {
		e.log.Debug().Str("public_ts", publicTS).Msg("resolve skipped, already resolved")
		return nil
	}

	if !privileged {
		person, err := e.store.PersonByID(ctx, req.PersonID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrNotRequester
			}
			return fmt.Errorf("failed to load requester: %w", err)
		}
		if person.SlackID != actorID {
			return ErrNotRequester
		}
	}

	if err := e.store.ResolveRequest(ctx, publicTS); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to mark request resolved: %w", err)
	}

	e.log.Info().
		Str("public_ts", publicTS).
		Str("actor", actorID).
		Bool("privileged", privileged).
		Msg("request resolved")

	notice := fmt.Sprintf(":white_check_mark: This request has been marked as resolved by <@%s>.", actorID)

	if _, err := e.gw.PostMessage(ctx, gateway.Message{
		Channel:  e.channels.Support,
		ThreadTS: req.PublicThreadTS,
		Text:     notice,
	}); err != nil {
		return fmt.Errorf("failed to notify public thread: %w", err)
	}

	if _, err := e.gw.PostMessage(ctx, gateway.Message{
		Channel:  e.channels.Request,
		ThreadTS: req.PrivateThreadTS,
		Text:     notice,
	}); err != nil {
		return fmt.Errorf("failed to notify staff thread: %w", err)
	}

	return nil
}
