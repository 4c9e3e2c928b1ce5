package router

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarterdeck/internal/events"
	"github.com/quarterdeck/internal/gateway"
	"github.com/quarterdeck/internal/gateway/gatewaytest"
	"github.com/quarterdeck/internal/store"
)

const (
	supportChannel = "C-SUPPORT"
	requestChannel = "C-REQUEST"

	workspaceURL = "https://example.slack.com"
)

type testRig struct {
	router *Router
	store  *fakeStore
	gw     *gatewaytest.Fake
	engine *fakeEngine
	macros *fakeMacros
	queue  *fakeQueue
}

func newTestRig() *testRig {
	rig := &testRig{
		store:  newFakeStore(),
		gw:     gatewaytest.New(),
		engine: &fakeEngine{},
		macros: &fakeMacros{},
		queue:  &fakeQueue{},
	}
	rig.router = New(rig.store, rig.gw, rig.engine, rig.macros, rig.queue, Channels{
		Support:     supportChannel,
		Request:     requestChannel,
		Maintenance: "C-MAINT",
	}, workspaceURL, zerolog.Nop())
	return rig
}

// seedRequest installs an open request with a known requester and returns it.
func (rig *testRig) seedRequest(publicTS, privateTS, requesterSlackID string) *store.Request {
	person := rig.store.addPerson(&store.Person{SlackID: requesterSlackID, HelpRequests: 1})
	req := &store.Request{
		PublicThreadTS:  publicTS,
		PrivateThreadTS: privateTS,
		Status:          store.StatusOpen,
		PersonID:        person.ID,
	}
	rig.store.requests[publicTS] = req
	return req
}

func TestHandleNewRequestFirstTime(t *testing.T) {
	rig := newTestRig()
	rig.gw.SeedProfile(&gateway.Profile{
		ID: "U-ORPHEUS", DisplayName: "orpheus", FirstName: "Orpheus", Email: "orpheus@example.com",
	})

	err := rig.router.Handle(context.Background(), events.NewMessage{
		Channel: supportChannel,
		TS:      "1700000000.000100",
		User:    "U-ORPHEUS",
		Text:    "my ship won't submit",
	})
	require.NoError(t, err)

	// Unknown users get a stored identity before anything else.
	person, err := rig.store.PersonBySlackID(context.Background(), "U-ORPHEUS")
	require.NoError(t, err)
	assert.Equal(t, "Orpheus", person.Forename)
	assert.Equal(t, "orpheus@example.com", person.Email)

	require.Len(t, rig.gw.Reactions, 1)
	assert.Equal(t, gatewaytest.Reaction{
		Channel: supportChannel, TS: "1700000000.000100", Name: "thinking_face",
	}, rig.gw.Reactions[0])

	supportPosts := rig.gw.PostsTo(supportChannel)
	require.Len(t, supportPosts, 1)
	assert.Equal(t, "1700000000.000100", supportPosts[0].ThreadTS)
	assert.Contains(t, supportPosts[0].Text, "first time")

	requestPosts := rig.gw.PostsTo(requestChannel)
	require.Len(t, requestPosts, 2)
	linked := requestPosts[0]
	assert.Equal(t, "orpheus", linked.Username)
	assert.Empty(t, linked.ThreadTS)
	require.NotEmpty(t, linked.Blocks)

	require.Len(t, rig.store.created, 1)
	req := rig.store.created[0]
	assert.Equal(t, "1700000000.000100", req.PublicThreadTS)
	assert.Equal(t, linked.TS, req.PrivateThreadTS)
	assert.Equal(t, person.ID, req.PersonID)
	assert.Equal(t, "my ship won't submit", req.Content)

	// The info summary lands in the thread the linked post opened.
	assert.Equal(t, linked.TS, requestPosts[1].ThreadTS)
	assert.NotEmpty(t, requestPosts[1].Blocks)
}

func TestHandleNewRequestReturningUser(t *testing.T) {
	rig := newTestRig()
	rig.store.addPerson(&store.Person{SlackID: "U-REGULAR", HelpRequests: 4})

	err := rig.router.Handle(context.Background(), events.NewMessage{
		Channel: supportChannel,
		TS:      "1700000000.000200",
		User:    "U-REGULAR",
		Text:    "another question",
	})
	require.NoError(t, err)

	supportPosts := rig.gw.PostsTo(supportChannel)
	require.Len(t, supportPosts, 1)
	assert.NotContains(t, supportPosts[0].Text, "first time")
	assert.Contains(t, supportPosts[0].Text, "busy")
}

func TestHandleSupportReplyRelays(t *testing.T) {
	rig := newTestRig()
	rig.seedRequest("pub.1", "priv.1", "U-ASKER")
	rig.gw.SeedHistory(requestChannel, gateway.HistoryMessage{TS: "priv.1"})
	rig.gw.SeedProfile(&gateway.Profile{ID: "U-ASKER", DisplayName: "asker", AvatarURL: "https://img/a"})

	err := rig.router.Handle(context.Background(), events.NewMessage{
		Channel:  supportChannel,
		TS:       "pub.2",
		ThreadTS: "pub.1",
		User:     "U-ASKER",
		Text:     "any update?",
		Files:    []events.File{{Name: "shot.png", Permalink: "https://files/shot"}},
	})
	require.NoError(t, err)

	posts := rig.gw.PostsTo(requestChannel)
	require.Len(t, posts, 1)
	assert.Equal(t, "priv.1", posts[0].ThreadTS)
	assert.Equal(t, "any update?\n<https://files/shot|shot.png>", posts[0].Text)
	assert.Equal(t, "asker", posts[0].Username)
	assert.Equal(t, "https://img/a", posts[0].IconURL)
}

func TestHandleSupportReplySkipsWhenLinkedPostGone(t *testing.T) {
	rig := newTestRig()
	rig.seedRequest("pub.1", "priv.1", "U-ASKER")
	// History returns a different, older message in place of the linked post.
	rig.gw.SeedHistory(requestChannel, gateway.HistoryMessage{TS: "priv.0"})

	err := rig.router.Handle(context.Background(), events.NewMessage{
		Channel:  supportChannel,
		TS:       "pub.2",
		ThreadTS: "pub.1",
		User:     "U-ASKER",
		Text:     "hello?",
	})
	require.NoError(t, err)
	assert.Empty(t, rig.gw.Posts)
}

func TestHandleSupportReplyIgnoresResolvedAndUnknown(t *testing.T) {
	rig := newTestRig()
	req := rig.seedRequest("pub.1", "priv.1", "U-ASKER")
	req.Status = store.StatusResolved

	for _, threadTS := range []string{"pub.1", "pub.unknown"} {
		err := rig.router.Handle(context.Background(), events.NewMessage{
			Channel:  supportChannel,
			TS:       "pub.2",
			ThreadTS: threadTS,
			User:     "U-ASKER",
			Text:     "still there?",
		})
		require.NoError(t, err)
	}
	assert.Empty(t, rig.gw.Posts)
}

func TestHandleStaffMessageRelays(t *testing.T) {
	rig := newTestRig()
	rig.seedRequest("pub.1", "priv.1", "U-ASKER")
	rig.gw.SeedProfile(&gateway.Profile{ID: "U-STAFF", DisplayName: "deckhand"})

	err := rig.router.Handle(context.Background(), events.NewMessage{
		Channel:  requestChannel,
		TS:       "priv.2",
		ThreadTS: "priv.1",
		User:     "U-STAFF",
		Text:     "working on it",
	})
	require.NoError(t, err)

	posts := rig.gw.PostsTo(supportChannel)
	require.Len(t, posts, 1)
	assert.Equal(t, "pub.1", posts[0].ThreadTS)
	assert.Equal(t, "working on it", posts[0].Text)
	assert.Equal(t, "deckhand", posts[0].Username)
}

func TestHandleStaffMessageSilenced(t *testing.T) {
	rig := newTestRig()
	rig.seedRequest("pub.1", "priv.1", "U-ASKER")

	for _, text := range []string{
		"!internal note",
		"hold on :shushing_face: checking the backend",
	} {
		err := rig.router.Handle(context.Background(), events.NewMessage{
			Channel:  requestChannel,
			TS:       "priv.2",
			ThreadTS: "priv.1",
			User:     "U-STAFF",
			Text:     text,
		})
		require.NoError(t, err)
	}
	assert.Empty(t, rig.gw.Posts)
	assert.Empty(t, rig.macros.calls)
}

func TestHandleStaffMessageInvokesMacro(t *testing.T) {
	rig := newTestRig()
	rig.seedRequest("pub.1", "priv.1", "U-ASKER")

	err := rig.router.Handle(context.Background(), events.NewMessage{
		Channel:  requestChannel,
		TS:       "priv.2",
		ThreadTS: "priv.1",
		User:     "U-STAFF",
		Text:     "?close",
	})
	require.NoError(t, err)

	require.Len(t, rig.macros.calls, 1)
	assert.Equal(t, macroCall{userID: "U-STAFF", rawText: "?close", threadTS: "priv.1"}, rig.macros.calls[0])
	assert.Empty(t, rig.gw.Posts)
}

func TestHandleStaffMessageWithoutRequestRecord(t *testing.T) {
	rig := newTestRig()

	err := rig.router.Handle(context.Background(), events.NewMessage{
		Channel:  requestChannel,
		TS:       "priv.2",
		ThreadTS: "priv.stray",
		User:     "U-STAFF",
		Text:     "?close",
	})
	require.NoError(t, err)
	assert.Empty(t, rig.macros.calls)
	assert.Empty(t, rig.gw.Posts)
}

func TestHandleDeletedQueuesRelayedCopy(t *testing.T) {
	rig := newTestRig()
	rig.seedRequest("pub.1", "priv.1", "U-ASKER")
	rig.gw.SeedHistory(requestChannel, gateway.HistoryMessage{TS: "priv.1"})

	err := rig.router.Handle(context.Background(), events.DeletedMessage{
		Channel:   supportChannel,
		DeletedTS: "pub.1",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"pub.1"}, rig.store.deleted)
	require.Len(t, rig.queue.calls, 1)
	assert.Equal(t, deleteCall{channel: requestChannel, ts: "priv.1"}, rig.queue.calls[0])
}

func TestHandleDeletedSkipsWhenLinkedCopyGone(t *testing.T) {
	rig := newTestRig()
	rig.seedRequest("pub.1", "priv.5", "U-ASKER")
	// The linked post is already gone; the at-or-before probe surfaces the
	// unrelated message posted just before it.
	rig.gw.SeedHistory(requestChannel, gateway.HistoryMessage{TS: "priv.4"})

	err := rig.router.Handle(context.Background(), events.DeletedMessage{
		Channel:   supportChannel,
		DeletedTS: "pub.1",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"pub.1"}, rig.store.deleted)
	assert.Empty(t, rig.queue.calls)
}

func TestHandleDeletedIgnoresThreadReplies(t *testing.T) {
	rig := newTestRig()
	rig.seedRequest("pub.1", "priv.1", "U-ASKER")

	err := rig.router.Handle(context.Background(), events.DeletedMessage{
		Channel:        supportChannel,
		DeletedTS:      "pub.2",
		WasThreadReply: true,
	})
	require.NoError(t, err)
	assert.Empty(t, rig.store.deleted)
	assert.Empty(t, rig.queue.calls)
}

func TestHandleDeletedWithoutRecordStillProbes(t *testing.T) {
	rig := newTestRig()
	rig.gw.SeedHistory(requestChannel, gateway.HistoryMessage{TS: "orphan.1"})

	err := rig.router.Handle(context.Background(), events.DeletedMessage{
		Channel:   supportChannel,
		DeletedTS: "pub.gone",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"pub.gone"}, rig.store.deleted)
	require.Len(t, rig.queue.calls, 1)
	assert.Equal(t, "orphan.1", rig.queue.calls[0].ts)
}

func TestHandleReactionByRequesterResolves(t *testing.T) {
	rig := newTestRig()
	rig.seedRequest("pub.1", "priv.1", "U-ASKER")

	err := rig.router.Handle(context.Background(), events.ReactionAdded{
		Reaction:    "white_check_mark",
		ItemChannel: supportChannel,
		ItemTS:      "pub.1",
		User:        "U-ASKER",
	})
	require.NoError(t, err)

	require.Len(t, rig.engine.calls, 1)
	assert.Equal(t, resolveCall{publicTS: "pub.1", actorID: "U-ASKER", privileged: false}, rig.engine.calls[0])
}

func TestHandleReactionByStrangerPrompts(t *testing.T) {
	rig := newTestRig()
	rig.seedRequest("pub.1", "priv.1", "U-ASKER")

	err := rig.router.Handle(context.Background(), events.ReactionAdded{
		Reaction:    "white_check_mark",
		ItemChannel: supportChannel,
		ItemTS:      "pub.1",
		User:        "U-HELPER",
	})
	require.NoError(t, err)

	assert.Empty(t, rig.engine.calls)
	posts := rig.gw.PostsTo(supportChannel)
	require.Len(t, posts, 1)
	assert.Equal(t, "pub.1", posts[0].ThreadTS)
	assert.True(t, strings.Contains(posts[0].Text, "<@U-ASKER>"))
	assert.True(t, strings.Contains(posts[0].Text, "<@U-HELPER>"))
}

func TestHandleReactionIgnored(t *testing.T) {
	rig := newTestRig()
	req := rig.seedRequest("pub.1", "priv.1", "U-ASKER")

	cases := map[string]events.ReactionAdded{
		"wrong emoji": {
			Reaction: "tada", ItemChannel: supportChannel, ItemTS: "pub.1", User: "U-ASKER",
		},
		"wrong channel": {
			Reaction: "white_check_mark", ItemChannel: "C-ELSEWHERE", ItemTS: "pub.1", User: "U-ASKER",
		},
		"unknown message": {
			Reaction: "white_check_mark", ItemChannel: supportChannel, ItemTS: "pub.none", User: "U-ASKER",
		},
	}
	for name, ev := range cases {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, rig.router.Handle(context.Background(), ev))
		})
	}

	req.Status = store.StatusResolved
	require.NoError(t, rig.router.Handle(context.Background(), events.ReactionAdded{
		Reaction: "white_check_mark", ItemChannel: supportChannel, ItemTS: "pub.1", User: "U-ASKER",
	}))

	assert.Empty(t, rig.engine.calls)
	assert.Empty(t, rig.gw.Posts)
}

func TestHandleEditIsNoOp(t *testing.T) {
	rig := newTestRig()
	rig.seedRequest("pub.1", "priv.1", "U-ASKER")

	err := rig.router.Handle(context.Background(), events.EditedMessage{
		Channel:    supportChannel,
		PreviousTS: "pub.1",
	})
	require.NoError(t, err)
	assert.Empty(t, rig.gw.Posts)
	assert.Empty(t, rig.gw.Updates)
}

func TestHandleReportsGatewayFailure(t *testing.T) {
	rig := newTestRig()
	rig.store.addPerson(&store.Person{SlackID: "U-ASKER", HelpRequests: 2})
	rig.gw.Err = errors.New("slack server error: 503")

	err := rig.router.Handle(context.Background(), events.NewMessage{
		Channel: supportChannel,
		TS:      "pub.1",
		User:    "U-ASKER",
		Text:    "anyone around?",
	})
	require.Error(t, err)
	assert.Empty(t, rig.store.created)
}

func TestHandleIgnoresOtherChannels(t *testing.T) {
	rig := newTestRig()

	err := rig.router.Handle(context.Background(), events.NewMessage{
		Channel: "C-RANDOM",
		TS:      "x.1",
		User:    "U-ANYONE",
		Text:    "hello",
	})
	require.NoError(t, err)
	assert.Empty(t, rig.gw.Posts)
	assert.Empty(t, rig.store.created)
}
