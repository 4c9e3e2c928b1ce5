// Package router classifies inbound chat events by channel and subtype and
// dispatches them: relay content to the linked thread, mutate the request
// record, or hand off to the macro resolver. It holds no state of its own;
// every decision re-reads the record store, so duplicate deliveries of the
// same event are safe.
package router

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/quarterdeck/internal/events"
	"github.com/quarterdeck/internal/gateway"
	"github.com/quarterdeck/internal/store"
)

const (
	// ackReaction acknowledges a fresh help request on the original message.
	ackReaction = "thinking_face"
	// confirmReaction is the only reaction that can resolve a request.
	confirmReaction = "white_check_mark"
	// suppressMarker anywhere in a staff message keeps it out of the public
	// thread, as does a leading "!".
	suppressMarker = ":shushing_face:"
)

// Store is the record-store subset the router needs.
type Store interface {
	RequestByPublicTS(ctx context.Context, publicTS string) (*store.Request, error)
	RequestByPrivateTS(ctx context.Context, privateTS string) (*store.Request, error)
	CreateRequest(ctx context.Context, req *store.Request) error
	DeleteRequest(ctx context.Context, publicTS string) error

	PersonBySlackID(ctx context.Context, slackID string) (*store.Person, error)
	PersonByID(ctx context.Context, id int64) (*store.Person, error)
	CreatePerson(ctx context.Context, p *store.Person) error

	Snapshot(ctx context.Context, slackID string) (*store.ProfileSnapshot, error)
	FraudCases(ctx context.Context, slackID string) ([]store.FraudCase, error)
}

// LifecycleEngine applies resolve transitions.
type LifecycleEngine interface {
	Resolve(ctx context.Context, publicTS, actorID string, privileged bool) error
}

// MacroResolver handles ?name invocations from staff threads.
type MacroResolver interface {
	Resolve(ctx context.Context, userID, rawText, threadTS string) error
}

// DeleteQueue schedules asynchronous message deletions.
type DeleteQueue interface {
	EnqueueDelete(ctx context.Context, channel, ts string) error
}

// Channels names the channels the router watches and posts into.
type Channels struct {
	Support     string
	Request     string
	Maintenance string
}

// Router is the event dispatcher.
type Router struct {
	store        Store
	gw           gateway.Gateway
	engine       LifecycleEngine
	macros       MacroResolver
	queue        DeleteQueue
	channels     Channels
	workspaceURL string
	log          zerolog.Logger
}

// New creates a router.
func New(st Store, gw gateway.Gateway, engine LifecycleEngine, macros MacroResolver,
	queue DeleteQueue, channels Channels, workspaceURL string, log zerolog.Logger) *Router {
	return &Router{
		store:        st,
		gw:           gw,
		engine:       engine,
		macros:       macros,
		queue:        queue,
		channels:     channels,
		workspaceURL: workspaceURL,
		log:          log,
	}
}

// Handle routes one inbound event. Events outside the support and request
// channels are ignored entirely.
func (r *Router) Handle(ctx context.Context, ev events.Event) error {
	switch ev := ev.(type) {
	case events.NewMessage:
		switch ev.Channel {
		case r.channels.Support:
			if ev.ThreadTS != "" {
				return r.handleSupportReply(ctx, ev)
			}
			return r.handleNewRequest(ctx, ev)
		case r.channels.Request:
			if ev.ThreadTS != "" {
				return r.handleStaffMessage(ctx, ev)
			}
		}
		return nil

	case events.EditedMessage:
		if ev.Channel == r.channels.Support || ev.Channel == r.channels.Request {
			// Edit propagation is deliberately unimplemented. The branch
			// stays explicit so the gap is visible and testable.
			r.log.Debug().Str("channel", ev.Channel).Str("ts", ev.PreviousTS).
				Msg("ignoring message edit")
		}
		return nil

	case events.DeletedMessage:
		if ev.Channel == r.channels.Support {
			return r.handleDeleted(ctx, ev)
		}
		return nil

	case events.ReactionAdded:
		return r.handleReaction(ctx, ev)

	default:
		return nil
	}
}

// appendFileLinks appends attachment permalinks to relayed text: the first on
// a fresh line, the rest comma-joined.
func appendFileLinks(text string, files []events.File) string {
	for i, f := range files {
		if i == 0 {
			text += fmt.Sprintf("\n<%s|%s>", f.Permalink, f.Name)
		} else {
			text += fmt.Sprintf(", <%s|%s>", f.Permalink, f.Name)
		}
	}
	return text
}

// relay posts text into a thread impersonating the given profile.
func (r *Router) relay(ctx context.Context, channel, threadTS, text string, profile *gateway.Profile) error {
	_, err := r.gw.PostMessage(ctx, gateway.Message{
		Channel:  channel,
		ThreadTS: threadTS,
		Text:     text,
		Username: profile.Name(),
		IconURL:  profile.AvatarURL,
		Unfurl:   true,
	})
	if err != nil {
		return fmt.Errorf("failed to relay into %s: %w", channel, err)
	}
	return nil
}
