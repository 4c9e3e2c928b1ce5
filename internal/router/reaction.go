package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/quarterdeck/internal/events"
	"github.com/quarterdeck/internal/gateway"
	"github.com/quarterdeck/internal/store"
)

// handleReaction resolves a request when its requester checkmarks the original
// message. A checkmark from anyone else posts a confirmation prompt to the
// requester instead of resolving.
func (r *Router) handleReaction(ctx context.Context, ev events.ReactionAdded) error {
	if ev.Reaction != confirmReaction || ev.ItemChannel != r.channels.Support {
		return nil
	}

	req, err := r.store.RequestByPublicTS(ctx, ev.ItemTS)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up reacted request: %w", err)
	}
	if req.Resolved() {
		return nil
	}

	person, err := r.store.PersonByID(ctx, req.PersonID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.log.Warn().Int64("person_id", req.PersonID).Msg("request has no requester on record")
			return nil
		}
		return fmt.Errorf("failed to look up requester: %w", err)
	}

	if person.SlackID == ev.User {
		return r.engine.Resolve(ctx, ev.ItemTS, ev.User, false)
	}

	_, err = r.gw.PostMessage(ctx, gateway.Message{
		Channel:  r.channels.Support,
		ThreadTS: ev.ItemTS,
		Text: fmt.Sprintf("<@%s>, <@%s> thinks this request is sorted. If it is, react to your "+
			"original message with a :%s: to close it out.", person.SlackID, ev.User, confirmReaction),
	})
	if err != nil {
		return fmt.Errorf("failed to post resolution prompt: %w", err)
	}
	return nil
}
