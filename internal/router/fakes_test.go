package router

import (
	"context"

	"github.com/quarterdeck/internal/store"
)

// fakeStore is an in-memory Store keyed the same way the Postgres one is.
type fakeStore struct {
	requests map[string]*store.Request // by public TS
	people   map[string]*store.Person  // by Slack ID
	nextID   int64

	snapshots map[string]*store.ProfileSnapshot
	cases     map[string][]store.FraudCase

	created []*store.Request
	deleted []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		requests:  map[string]*store.Request{},
		people:    map[string]*store.Person{},
		snapshots: map[string]*store.ProfileSnapshot{},
		cases:     map[string][]store.FraudCase{},
	}
}

func (f *fakeStore) addPerson(p *store.Person) *store.Person {
	f.nextID++
	p.ID = f.nextID
	f.people[p.SlackID] = p
	return p
}

func (f *fakeStore) RequestByPublicTS(_ context.Context, publicTS string) (*store.Request, error) {
	if req, ok := f.requests[publicTS]; ok {
		return req, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) RequestByPrivateTS(_ context.Context, privateTS string) (*store.Request, error) {
	for _, req := range f.requests {
		if req.PrivateThreadTS == privateTS {
			return req, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) CreateRequest(_ context.Context, req *store.Request) error {
	f.requests[req.PublicThreadTS] = req
	f.created = append(f.created, req)
	if p := f.personByID(req.PersonID); p != nil {
		p.HelpRequests++
	}
	return nil
}

func (f *fakeStore) DeleteRequest(_ context.Context, publicTS string) error {
	delete(f.requests, publicTS)
	f.deleted = append(f.deleted, publicTS)
	return nil
}

func (f *fakeStore) PersonBySlackID(_ context.Context, slackID string) (*store.Person, error) {
	if p, ok := f.people[slackID]; ok {
		return p, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) personByID(id int64) *store.Person {
	for _, p := range f.people {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (f *fakeStore) PersonByID(_ context.Context, id int64) (*store.Person, error) {
	if p := f.personByID(id); p != nil {
		return p, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) CreatePerson(_ context.Context, p *store.Person) error {
	f.addPerson(p)
	return nil
}

func (f *fakeStore) Snapshot(_ context.Context, slackID string) (*store.ProfileSnapshot, error) {
	if s, ok := f.snapshots[slackID]; ok {
		return s, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) FraudCases(_ context.Context, slackID string) ([]store.FraudCase, error) {
	return f.cases[slackID], nil
}

type resolveCall struct {
	publicTS   string
	actorID    string
	privileged bool
}

type fakeEngine struct {
	calls []resolveCall
	err   error
}

func (f *fakeEngine) Resolve(_ context.Context, publicTS, actorID string, privileged bool) error {
	f.calls = append(f.calls, resolveCall{publicTS, actorID, privileged})
	return f.err
}

type macroCall struct {
	userID   string
	rawText  string
	threadTS string
}

type fakeMacros struct {
	calls []macroCall
	err   error
}

func (f *fakeMacros) Resolve(_ context.Context, userID, rawText, threadTS string) error {
	f.calls = append(f.calls, macroCall{userID, rawText, threadTS})
	return f.err
}

type deleteCall struct {
	channel string
	ts      string
}

type fakeQueue struct {
	calls []deleteCall
	err   error
}

func (f *fakeQueue) EnqueueDelete(_ context.Context, channel, ts string) error {
	f.calls = append(f.calls, deleteCall{channel, ts})
	return f.err
}
