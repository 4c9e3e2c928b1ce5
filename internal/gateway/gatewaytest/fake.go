// Package gatewaytest provides an in-memory Gateway fake that records every
// call for assertions.
package gatewaytest

import (
	"context"
	"fmt"
	"sync"

	"github.com/quarterdeck/internal/gateway"
)

// Reaction records one AddReaction call.
type Reaction struct {
	Channel string
	TS      string
	Name    string
}

// Posted records one PostMessage call along with the timestamp it returned.
type Posted struct {
	gateway.Message
	TS string
}

// Fake is a call-recording Gateway. Posted messages get sequential fake
// timestamps ("fake.1", "fake.2", ...). Profiles and history are seeded by
// tests.
type Fake struct {
	mu        sync.Mutex
	seq       int
	Posts     []Posted
	Updates   []Posted
	Reactions []Reaction

	Profiles map[string]*gateway.Profile
	History  map[string][]gateway.HistoryMessage // keyed by channel

	// Err, when set, is returned by every call to simulate upstream failure.
	Err error
}

// New creates an empty fake.
func New() *Fake {
	return &Fake{
		Profiles: map[string]*gateway.Profile{},
		History:  map[string][]gateway.HistoryMessage{},
	}
}

var _ gateway.Gateway = (*Fake)(nil)

// SeedProfile registers a profile returned by Profile.
func (f *Fake) SeedProfile(p *gateway.Profile) {
	f.Profiles[p.ID] = p
}

// SeedHistory registers channel history returned by HistoryAround.
func (f *Fake) SeedHistory(channel string, msgs ...gateway.HistoryMessage) {
	f.History[channel] = append(f.History[channel], msgs...)
}

func (f *Fake) PostMessage(_ context.Context, m gateway.Message) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	ts := fmt.Sprintf("fake.%d", f.seq)
	f.Posts = append(f.Posts, Posted{Message: m, TS: ts})
	return ts, nil
}

func (f *Fake) UpdateMessage(_ context.Context, channel, ts string, m gateway.Message) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Updates = append(f.Updates, Posted{Message: m, TS: ts})
	return nil
}

func (f *Fake) AddReaction(_ context.Context, channel, ts, name string) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reactions = append(f.Reactions, Reaction{Channel: channel, TS: ts, Name: name})
	return nil
}

func (f *Fake) Profile(_ context.Context, userID string) (*gateway.Profile, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	if p, ok := f.Profiles[userID]; ok {
		return p, nil
	}
	return &gateway.Profile{ID: userID, DisplayName: userID}, nil
}

func (f *Fake) HistoryAround(_ context.Context, channel, ts string, limit int) ([]gateway.HistoryMessage, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	msgs := f.History[channel]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

// PostsTo returns the recorded posts targeted at a channel.
func (f *Fake) PostsTo(channel string) []Posted {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Posted
	for _, p := range f.Posts {
		if p.Channel == channel {
			out = append(out, p)
		}
	}
	return out
}
