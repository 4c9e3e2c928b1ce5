// Package macro matches ?name commands against stored canned responses and
// executes them: announce in the staff thread, relay to the public thread,
// and optionally close the request.
package macro

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/quarterdeck/internal/config"
	"github.com/quarterdeck/internal/gateway"
	"github.com/quarterdeck/internal/store"
)

// ErrNoRequestRecord is reported when a macro is invoked in a staff thread
// that has no request on record: an inconsistency, reported to the
// maintenance channel and aborted.
var ErrNoRequestRecord = errors.New("no request record for staff thread")

// Store is the record-store subset the resolver needs.
type Store interface {
	ListMacros(ctx context.Context, ownerSlackID string) ([]store.Macro, error)
	RequestByPrivateTS(ctx context.Context, privateTS string) (*store.Request, error)
}

// LifecycleEngine resolves requests on behalf of closing macros.
type LifecycleEngine interface {
	Resolve(ctx context.Context, publicTS, actorID string, privileged bool) error
}

// Channels names the channels the resolver posts into.
type Channels struct {
	Support     string
	Request     string
	Maintenance string
}

// Resolver executes ?name macro invocations from staff threads.
type Resolver struct {
	store    Store
	gw       gateway.Gateway
	engine   LifecycleEngine
	channels Channels
	scope    string
	log      zerolog.Logger
}

// New creates a macro resolver. scope is one of the config.MacroScope values.
func New(st Store, gw gateway.Gateway, engine LifecycleEngine, channels Channels, scope string, log zerolog.Logger) *Resolver {
	return &Resolver{store: st, gw: gw, engine: engine, channels: channels, scope: scope, log: log}
}

// Resolve handles one macro invocation. rawText is the staff message
// including the leading "?". Matching is case-insensitive and exact; a miss
// posts a notice in the staff thread and is not an error.
func (r *Resolver) Resolve(ctx context.Context, userID, rawText, threadTS string) error {
	name := strings.ToLower(strings.TrimSpace(strings.TrimLeft(rawText, "?")))

	owner := userID
	if r.scope == config.MacroScopeShared {
		owner = ""
	}

	macros, err := r.store.ListMacros(ctx, owner)
	if err != nil {
		return fmt.Errorf("failed to list macros: %w", err)
	}

	match, found := findMacro(macros, name)
	if !found {
		r.log.Debug().Str("name", name).Str("user", userID).Msg("macro not found")
		_, err := r.gw.PostMessage(ctx, gateway.Message{
			Channel:  r.channels.Request,
			ThreadTS: threadTS,
			Text:     fmt.Sprintf("Couldn't find that macro <@%s>", userID),
		})
		if err != nil {
			return fmt.Errorf("failed to post macro-miss notice: %w", err)
		}
		return nil
	}

	return r.execute(ctx, userID, match, threadTS)
}

// findMacro returns the first macro whose name equals the lower-cased
// invocation. No prefix or fuzzy matching.
func findMacro(macros []store.Macro, name string) (store.Macro, bool) {
	for _, m := range macros {
		if strings.ToLower(m.Name) == name {
			return m, true
		}
	}
	return store.Macro{}, false
}

func (r *Resolver) execute(ctx context.Context, userID string, m store.Macro, threadTS string) error {
	profile, err := r.gw.Profile(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to fetch executor profile: %w", err)
	}

	block, err := messageBlock(m)
	if err != nil {
		return fmt.Errorf("macro %q has a bad message block: %w", m.Name, err)
	}

	announcement := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("%s executed %s on this thread:", profile.Name(), m.Name), false, false),
		nil, nil)

	if _, err := r.gw.PostMessage(ctx, gateway.Message{
		Channel:  r.channels.Request,
		ThreadTS: threadTS,
		Blocks:   []slack.Block{announcement, block},
		Unfurl:   true,
	}); err != nil {
		return fmt.Errorf("failed to announce macro execution: %w", err)
	}

	req, err := r.store.RequestByPrivateTS(ctx, threadTS)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.reportInconsistency(ctx, threadTS)
			return ErrNoRequestRecord
		}
		return fmt.Errorf("failed to load request for macro: %w", err)
	}

	if _, err := r.gw.PostMessage(ctx, gateway.Message{
		Channel:  r.channels.Support,
		ThreadTS: req.PublicThreadTS,
		Blocks:   []slack.Block{block},
		Username: profile.Name(),
		IconURL:  profile.AvatarURL,
		Unfurl:   true,
	}); err != nil {
		return fmt.Errorf("failed to relay macro message: %w", err)
	}

	r.log.Info().Str("macro", m.Name).Str("user", userID).Bool("close", m.Close).Msg("macro executed")

	if m.Close {
		// Staff-triggered close is the privileged path: it bypasses the
		// requester-only rule.
		if err := r.engine.Resolve(ctx, req.PublicThreadTS, userID, true); err != nil {
			return fmt.Errorf("failed to resolve via closing macro: %w", err)
		}
	}

	return nil
}

// messageBlock decodes the macro's stored Block Kit JSON into a block.
func messageBlock(m store.Macro) (slack.Block, error) {
	data, err := json.Marshal([]json.RawMessage{m.Message})
	if err != nil {
		return nil, err
	}

	var blocks slack.Blocks
	if err := json.Unmarshal(data, &blocks); err != nil {
		return nil, err
	}
	if len(blocks.BlockSet) == 0 {
		return nil, errors.New("empty message block")
	}
	return blocks.BlockSet[0], nil
}

func (r *Resolver) reportInconsistency(ctx context.Context, threadTS string) {
	if r.channels.Maintenance == "" {
		return
	}
	_, err := r.gw.PostMessage(ctx, gateway.Message{
		Channel: r.channels.Maintenance,
		Text:    fmt.Sprintf("Something went wrong with fetching `%s` from the record store.", threadTS),
	})
	if err != nil {
		r.log.Error().Err(err).Str("thread_ts", threadTS).Msg("failed to report inconsistency")
	}
}
