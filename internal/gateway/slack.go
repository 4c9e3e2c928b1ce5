package gateway

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"golang.org/x/time/rate"

	"github.com/quarterdeck/internal/retry"
)

// SlackGateway implements Gateway over the Slack Web API. Posts are metered
// with a limiter because chat.postMessage is rate limited to roughly one
// message per second per channel; transient failures past the limiter are
// retried with backoff.
type SlackGateway struct {
	client  *slack.Client
	limiter *rate.Limiter
	retry   retry.Config
}

// NewSlackGateway creates a gateway over an authenticated Slack client.
func NewSlackGateway(client *slack.Client) *SlackGateway {
	return &SlackGateway{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(1), 5),
		retry:   retry.DefaultConfig(),
	}
}

var _ Gateway = (*SlackGateway)(nil)

func messageOptions(m Message) []slack.MsgOption {
	opts := []slack.MsgOption{}
	if m.Text != "" {
		opts = append(opts, slack.MsgOptionText(m.Text, false))
	}
	if len(m.Blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(m.Blocks...))
	}
	if m.ThreadTS != "" {
		opts = append(opts, slack.MsgOptionTS(m.ThreadTS))
	}
	if m.Username != "" {
		opts = append(opts, slack.MsgOptionUsername(m.Username))
	}
	if m.IconURL != "" {
		opts = append(opts, slack.MsgOptionIconURL(m.IconURL))
	}
	if m.Unfurl {
		opts = append(opts, slack.MsgOptionPostMessageParameters(slack.PostMessageParameters{
			UnfurlLinks: true,
			UnfurlMedia: true,
		}))
	}
	return opts
}

// PostMessage sends a message and returns the timestamp Slack assigned to it.
func (g *SlackGateway) PostMessage(ctx context.Context, m Message) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	var ts string
	err := retry.Do(ctx, g.retry, func() error {
		var err error
		_, ts, err = g.client.PostMessageContext(ctx, m.Channel, messageOptions(m)...)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to post message to %s: %w", m.Channel, err)
	}
	return ts, nil
}

// UpdateMessage rewrites a posted message in place.
func (g *SlackGateway) UpdateMessage(ctx context.Context, channel, ts string, m Message) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	err := retry.Do(ctx, g.retry, func() error {
		_, _, _, err := g.client.UpdateMessageContext(ctx, channel, ts, messageOptions(m)...)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to update message %s in %s: %w", ts, channel, err)
	}
	return nil
}

// AddReaction reacts to a message with the named emoji.
func (g *SlackGateway) AddReaction(ctx context.Context, channel, ts, name string) error {
	err := retry.Do(ctx, g.retry, func() error {
		return g.client.AddReactionContext(ctx, name, slack.NewRefToMessage(channel, ts))
	})
	if err != nil {
		return fmt.Errorf("failed to add reaction %s: %w", name, err)
	}
	return nil
}

// Profile fetches a user's profile.
func (g *SlackGateway) Profile(ctx context.Context, userID string) (*Profile, error) {
	user, err := g.client.GetUserInfoContext(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info for %s: %w", userID, err)
	}

	return &Profile{
		ID:          user.ID,
		DisplayName: user.Profile.DisplayName,
		RealName:    user.RealName,
		FirstName:   user.Profile.FirstName,
		LastName:    user.Profile.LastName,
		Email:       user.Profile.Email,
		AvatarURL:   user.Profile.Image48,
	}, nil
}

// DeleteMessage removes a posted message. It is not part of Gateway because
// the core never deletes inline; only the job queue workers call it.
func (g *SlackGateway) DeleteMessage(ctx context.Context, channel, ts string) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	_, _, err := g.client.DeleteMessageContext(ctx, channel, ts)
	if err != nil {
		return fmt.Errorf("failed to delete message %s in %s: %w", ts, channel, err)
	}
	return nil
}

// HistoryAround fetches channel history at or before a timestamp, inclusive.
// Callers that need an exact hit compare the returned timestamps.
func (g *SlackGateway) HistoryAround(ctx context.Context, channel, ts string, limit int) ([]HistoryMessage, error) {
	resp, err := g.client.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: channel,
		Latest:    ts,
		Limit:     limit,
		Inclusive: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get history for %s: %w", channel, err)
	}

	messages := make([]HistoryMessage, 0, len(resp.Messages))
	for _, msg := range resp.Messages {
		messages = append(messages, HistoryMessage{
			TS:   msg.Timestamp,
			User: msg.User,
			Text: msg.Text,
		})
	}
	return messages, nil
}
