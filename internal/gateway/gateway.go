// Package gateway wraps the chat platform behind the operations the core
// needs: posting (optionally impersonated) messages, reacting, reading
// profiles, and peeking at channel history. Deleting relayed messages is not
// here — deletions go through the async job queue.
package gateway

import (
	"context"

	"github.com/slack-go/slack"
)

// Message is one outbound message. A non-empty Username/IconURL posts it
// impersonating that user; ThreadTS targets a thread instead of the channel
// top level.
type Message struct {
	Channel  string
	ThreadTS string
	Text     string
	Blocks   []slack.Block
	Username string
	IconURL  string
	Unfurl   bool
}

// Profile is the subset of a chat-platform user profile the bot displays.
type Profile struct {
	ID          string
	DisplayName string
	RealName    string
	FirstName   string
	LastName    string
	Email       string
	AvatarURL   string
}

// Name returns the display name, falling back to the real name when the user
// never set one.
func (p *Profile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.RealName
}

// HistoryMessage is one message returned from a channel-history lookup.
type HistoryMessage struct {
	TS   string
	User string
	Text string
}

// Gateway is the messaging surface the core consumes.
type Gateway interface {
	// PostMessage sends a message and returns the platform timestamp of the
	// posted copy.
	PostMessage(ctx context.Context, m Message) (string, error)
	// UpdateMessage rewrites a previously posted message in place. The event
	// flow does not call it while message edits stay a no-op; it is the hook
	// edit propagation will use.
	UpdateMessage(ctx context.Context, channel, ts string, m Message) error
	// AddReaction reacts to a message with a named emoji.
	AddReaction(ctx context.Context, channel, ts, name string) error
	// Profile fetches a user's profile.
	Profile(ctx context.Context, userID string) (*Profile, error)
	// HistoryAround returns up to limit messages at or before the given
	// timestamp, inclusive.
	HistoryAround(ctx context.Context, channel, ts string, limit int) ([]HistoryMessage, error)
}
