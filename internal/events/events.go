// Package events decodes inbound Slack Events API payloads into typed event
// variants. Decoding happens once at the HTTP boundary; everything downstream
// works with these structs instead of string-keyed maps.
package events

import (
	"encoding/json"
	"fmt"
)

// Event is the tagged union of inbound chat events the router consumes.
type Event interface {
	event()
}

// File is an attachment on a message, relayed as a permalink.
type File struct {
	Name      string `json:"name"`
	Permalink string `json:"permalink"`
}

// NewMessage is a plain or file_share message. ThreadTS is empty for
// top-level messages and set for thread replies.
type NewMessage struct {
	Channel  string
	TS       string
	ThreadTS string
	User     string
	Text     string
	Files    []File
}

// EditedMessage is a message_changed event. Edit propagation is deliberately
// not implemented; the variant exists so the no-op branch stays visible.
type EditedMessage struct {
	Channel          string
	PreviousTS       string
	PreviousThreadTS string
}

// DeletedMessage is a message_deleted event. WasThreadReply is true when the
// deleted message lived inside a thread rather than at the top level.
type DeletedMessage struct {
	Channel        string
	DeletedTS      string
	WasThreadReply bool
}

// ReactionAdded is a reaction_added event on a message item.
type ReactionAdded struct {
	Reaction    string
	ItemChannel string
	ItemTS      string
	User        string
}

// URLVerification is Slack's endpoint handshake.
type URLVerification struct {
	Challenge string
}

func (NewMessage) event()      {}
func (EditedMessage) event()   {}
func (DeletedMessage) event()  {}
func (ReactionAdded) event()   {}
func (URLVerification) event() {}

type envelope struct {
	Type      string          `json:"type"`
	Challenge string          `json:"challenge"`
	Event     json.RawMessage `json:"event"`
}

type rawMessage struct {
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts"`
	User     string `json:"user"`
	Text     string `json:"text"`
}

type rawEvent struct {
	Type     string `json:"type"`
	Subtype  string `json:"subtype"`
	Channel  string `json:"channel"`
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts"`
	User     string `json:"user"`
	Text     string `json:"text"`
	Files    []File `json:"files"`

	DeletedTS       string      `json:"deleted_ts"`
	PreviousMessage *rawMessage `json:"previous_message"`

	Reaction string `json:"reaction"`
	Item     struct {
		Type    string `json:"type"`
		Channel string `json:"channel"`
		TS      string `json:"ts"`
	} `json:"item"`
}

// Decode parses an Events API request body. Events the bot does not act on
// (unknown types, unsupported message subtypes, reactions on non-messages)
// decode to (nil, nil): they are ignored, not errors.
func Decode(body []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to parse event envelope: %w", err)
	}

	switch env.Type {
	case "url_verification":
		return URLVerification{Challenge: env.Challenge}, nil
	case "event_callback":
	default:
		return nil, nil
	}

	var raw rawEvent
	if err := json.Unmarshal(env.Event, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse inner event: %w", err)
	}

	switch raw.Type {
	case "message":
		return decodeMessage(raw)
	case "reaction_added":
		if raw.Item.Type != "message" {
			return nil, nil
		}
		return ReactionAdded{
			Reaction:    raw.Reaction,
			ItemChannel: raw.Item.Channel,
			ItemTS:      raw.Item.TS,
			User:        raw.User,
		}, nil
	default:
		return nil, nil
	}
}

func decodeMessage(raw rawEvent) (Event, error) {
	switch raw.Subtype {
	case "", "file_share":
		return NewMessage{
			Channel:  raw.Channel,
			TS:       raw.TS,
			ThreadTS: raw.ThreadTS,
			User:     raw.User,
			Text:     raw.Text,
			Files:    raw.Files,
		}, nil

	case "message_changed":
		ev := EditedMessage{Channel: raw.Channel}
		if raw.PreviousMessage != nil {
			ev.PreviousTS = raw.PreviousMessage.TS
			ev.PreviousThreadTS = raw.PreviousMessage.ThreadTS
		}
		return ev, nil

	case "message_deleted":
		ev := DeletedMessage{Channel: raw.Channel, DeletedTS: raw.DeletedTS}
		if raw.PreviousMessage != nil {
			if ev.DeletedTS == "" {
				ev.DeletedTS = raw.PreviousMessage.TS
			}
			// A thread parent carries thread_ts equal to its own ts; only
			// genuine replies are skipped by the deletion flow.
			ev.WasThreadReply = raw.PreviousMessage.ThreadTS != "" &&
				raw.PreviousMessage.ThreadTS != raw.PreviousMessage.TS
		}
		if ev.DeletedTS == "" {
			// No way to tell what was deleted.
			return nil, nil
		}
		return ev, nil

	default:
		return nil, nil
	}
}
