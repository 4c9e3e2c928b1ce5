package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/slack-go/slack"

	"github.com/quarterdeck/internal/events"
	"github.com/quarterdeck/internal/gateway"
	"github.com/quarterdeck/internal/info"
	"github.com/quarterdeck/internal/store"
)

const firstTimeNotice = "hey there %s! it looks like this is your first time in the support channel. " +
	"We've received your question and will get back to you as soon as possible. In the meantime, " +
	"feel free to check out our <https://hack.club/high-seas-faq|FAQ> for answers to common questions. " +
	"If you have any more questions, please make a new post in <#%s> so we can help you quicker!"

const highVolumeNotice = "thanks %s, we've received your question! The queue is pretty busy right now, " +
	"so it may take us a little while to get back to you. Please keep the details in this thread."

// handleNewRequest runs the full new-request pipeline: acknowledge the
// message, post the appropriate notice, open the linked staff thread, persist
// the request, then post the user-info summary. The ordering matters: the
// private thread timestamp only exists once the linked post lands, and the
// info block must not appear before the request record does.
func (r *Router) handleNewRequest(ctx context.Context, ev events.NewMessage) error {
	profile, err := r.gw.Profile(ctx, ev.User)
	if err != nil {
		return fmt.Errorf("failed to fetch requester profile: %w", err)
	}

	person, err := r.store.PersonBySlackID(ctx, ev.User)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to look up person: %w", err)
		}
		person = &store.Person{
			SlackID:  ev.User,
			Forename: profile.FirstName,
			Surname:  profile.LastName,
			Email:    profile.Email,
		}
		if err := r.store.CreatePerson(ctx, person); err != nil {
			return fmt.Errorf("failed to create person: %w", err)
		}
	}
	priorRequests := person.HelpRequests

	if err := r.gw.AddReaction(ctx, r.channels.Support, ev.TS, ackReaction); err != nil {
		return fmt.Errorf("failed to acknowledge request: %w", err)
	}

	notice := fmt.Sprintf(highVolumeNotice, profile.Name())
	if priorRequests == 0 {
		notice = fmt.Sprintf(firstTimeNotice, profile.Name(), r.channels.Support)
	}
	if _, err := r.gw.PostMessage(ctx, gateway.Message{
		Channel:  r.channels.Support,
		ThreadTS: ev.TS,
		Text:     notice,
		Unfurl:   true,
	}); err != nil {
		return fmt.Errorf("failed to post request notice: %w", err)
	}

	privateTS, err := r.gw.PostMessage(ctx, gateway.Message{
		Channel:  r.channels.Request,
		Blocks:   r.linkedThreadBlocks(ev, priorRequests),
		Username: profile.Name(),
		IconURL:  profile.AvatarURL,
		Unfurl:   true,
	})
	if err != nil {
		return fmt.Errorf("failed to open linked thread: %w", err)
	}

	req := &store.Request{
		PublicThreadTS:  ev.TS,
		PrivateThreadTS: privateTS,
		Status:          store.StatusOpen,
		PersonID:        person.ID,
		Content:         ev.Text,
	}
	if err := r.store.CreateRequest(ctx, req); err != nil {
		return fmt.Errorf("failed to persist request: %w", err)
	}

	return r.postUserInfo(ctx, ev.User, privateTS)
}

// linkedThreadBlocks builds the staff-side header: a context line naming the
// requester plus the three action buttons.
func (r *Router) linkedThreadBlocks(ev events.NewMessage, priorRequests int) []slack.Block {
	threadURL := fmt.Sprintf("%s/archives/%s/p%s",
		r.workspaceURL, r.channels.Support, strings.ReplaceAll(ev.TS, ".", ""))

	contextLine := slack.NewContextBlock("",
		slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("Submitted by <@%s>. They have %d other help requests. <%s|Go to thread>",
				ev.User, priorRequests, threadURL),
			false, false))

	useMacro := slack.NewButtonBlockElement("use-macro", "use-macro",
		slack.NewTextBlockObject(slack.PlainTextType, "Use Macro", false, false))
	openTicket := slack.NewButtonBlockElement("mark-bug", "mark-bug",
		slack.NewTextBlockObject(slack.PlainTextType, "Open Ticket", false, false))
	markResolved := slack.NewButtonBlockElement("mark-resolved", "mark-resolved",
		slack.NewTextBlockObject(slack.PlainTextType, "Mark Resolved", false, false))
	markResolved.Style = slack.StylePrimary

	return []slack.Block{
		contextLine,
		slack.NewActionBlock("", useMacro, openTicket, markResolved),
	}
}

// postUserInfo fetches the profile snapshot and fraud cases concurrently and
// posts the summary block into the staff thread.
func (r *Router) postUserInfo(ctx context.Context, slackID, privateTS string) error {
	var (
		wg      sync.WaitGroup
		snap    *store.ProfileSnapshot
		snapErr error
		cases   []store.FraudCase
		caseErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		snap, snapErr = r.store.Snapshot(ctx, slackID)
	}()
	go func() {
		defer wg.Done()
		cases, caseErr = r.store.FraudCases(ctx, slackID)
	}()
	wg.Wait()

	if snapErr != nil && !errors.Is(snapErr, store.ErrNotFound) {
		return fmt.Errorf("failed to fetch profile snapshot: %w", snapErr)
	}
	if caseErr != nil {
		return fmt.Errorf("failed to fetch fraud cases: %w", caseErr)
	}

	_, err := r.gw.PostMessage(ctx, gateway.Message{
		Channel:  r.channels.Request,
		ThreadTS: privateTS,
		Blocks:   info.UserDataBlocks(slackID, snap, cases),
		Unfurl:   true,
	})
	if err != nil {
		return fmt.Errorf("failed to post user info: %w", err)
	}
	return nil
}

// handleSupportReply relays a reply from the public thread into the linked
// staff thread. Resolved and unknown requests are left alone.
func (r *Router) handleSupportReply(ctx context.Context, ev events.NewMessage) error {
	req, err := r.store.RequestByPublicTS(ctx, ev.ThreadTS)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up request: %w", err)
	}
	if req.Resolved() {
		return nil
	}

	// Make sure the relayed copy still exists before posting into it.
	msgs, err := r.gw.HistoryAround(ctx, r.channels.Request, req.PrivateThreadTS, 1)
	if err != nil {
		return fmt.Errorf("failed to check linked thread: %w", err)
	}
	if len(msgs) == 0 || msgs[0].TS != req.PrivateThreadTS {
		r.log.Warn().Str("private_ts", req.PrivateThreadTS).Msg("linked thread message is gone, dropping relay")
		return nil
	}

	profile, err := r.gw.Profile(ctx, ev.User)
	if err != nil {
		return fmt.Errorf("failed to fetch replier profile: %w", err)
	}

	text := appendFileLinks(ev.Text, ev.Files)
	return r.relay(ctx, r.channels.Request, req.PrivateThreadTS, text, profile)
}

// handleDeleted reacts to a deleted top-level support message: the request
// record is removed and the relayed staff-channel copy is scheduled for
// deletion through the async queue. Thread-reply deletions are ignored.
func (r *Router) handleDeleted(ctx context.Context, ev events.DeletedMessage) error {
	if ev.WasThreadReply {
		return nil
	}

	req, err := r.store.RequestByPublicTS(ctx, ev.DeletedTS)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to look up deleted request: %w", err)
	}

	if err := r.store.DeleteRequest(ctx, ev.DeletedTS); err != nil {
		return fmt.Errorf("failed to delete request record: %w", err)
	}

	probeTS := ev.DeletedTS
	if req != nil {
		probeTS = req.PrivateThreadTS
	}
	msgs, err := r.gw.HistoryAround(ctx, r.channels.Request, probeTS, 1)
	if err != nil {
		return fmt.Errorf("failed to locate relayed copy: %w", err)
	}
	if len(msgs) == 0 {
		return nil
	}
	// The history probe is at-or-before inclusive. With a record on file the
	// relayed copy's timestamp is known exactly; anything else at the probe
	// point is an unrelated message that must not be deleted.
	if req != nil && msgs[0].TS != req.PrivateThreadTS {
		r.log.Warn().Str("private_ts", req.PrivateThreadTS).Str("found_ts", msgs[0].TS).
			Msg("relayed copy already gone, skipping deletion")
		return nil
	}

	if err := r.queue.EnqueueDelete(ctx, r.channels.Request, msgs[0].TS); err != nil {
		return fmt.Errorf("failed to enqueue message deletion: %w", err)
	}
	r.log.Info().Str("public_ts", ev.DeletedTS).Str("relayed_ts", msgs[0].TS).
		Msg("request deleted, relayed copy queued for deletion")
	return nil
}
