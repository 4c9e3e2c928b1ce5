package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/quarterdeck/internal/events"
	"github.com/quarterdeck/internal/store"
)

// handleStaffMessage relays a staff-thread reply into the public thread,
// unless the message is silenced or invokes a macro. Threads with no backing
// request record (info blocks, stray threads) are ignored.
func (r *Router) handleStaffMessage(ctx context.Context, ev events.NewMessage) error {
	req, err := r.store.RequestByPrivateTS(ctx, ev.ThreadTS)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up staff thread: %w", err)
	}

	if strings.Contains(ev.Text, suppressMarker) || strings.HasPrefix(ev.Text, "!") {
		return nil
	}

	if strings.HasPrefix(ev.Text, "?") {
		return r.macros.Resolve(ctx, ev.User, ev.Text, ev.ThreadTS)
	}

	profile, err := r.gw.Profile(ctx, ev.User)
	if err != nil {
		return fmt.Errorf("failed to fetch staff profile: %w", err)
	}

	text := appendFileLinks(ev.Text, ev.Files)
	return r.relay(ctx, r.channels.Support, req.PublicThreadTS, text, profile)
}
