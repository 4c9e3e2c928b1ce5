// Package store defines the persistent records behind the support desk and the
// operations the core needs from them. The Postgres implementation lives in
// store/postgres; the core only sees this interface.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound marks an absent record. Callers treat it as a legitimate no-op
// (or a user-visible notice), never as an upstream failure.
var ErrNotFound = errors.New("record not found")

// Request statuses. An empty status reads as open.
const (
	StatusOpen     = "open"
	StatusResolved = "resolved"
)

// Request links a public help-request thread to its private staff thread.
type Request struct {
	PublicThreadTS  string
	PrivateThreadTS string
	Status          string
	PersonID        int64
	Content         string
	CreatedAt       time.Time
}

// Resolved reports whether the request has been closed. Absence of a status
// means open.
func (r *Request) Resolved() bool {
	return r.Status == StatusResolved
}

// Person maps a Slack user to a stored identity.
type Person struct {
	ID           int64
	SlackID      string
	Forename     string
	Surname      string
	Email        string
	HelpRequests int
	CreatedAt    time.Time
}

// Macro is a named canned response. Message holds a single Block Kit block as
// JSON; Close means executing the macro also resolves the request.
type Macro struct {
	ID           int64
	Name         string
	Message      json.RawMessage
	Close        bool
	OwnerSlackID string
	CreatedAt    time.Time
}

// ProfileSnapshot is the read-only payment/verification aggregate shown to
// staff when a request arrives. A user with no snapshot gets the zero value
// with "unknown" statuses filled in by the presentation layer.
type ProfileSnapshot struct {
	SlackID                string
	Stage                  string
	VerificationStatus     string
	DisciplinaryStatus     string
	DoubloonsPaid          int
	DoubloonsSpent         int
	DoubloonsGranted       int
	DoubloonsBalance       int
	UniqueVoteCount        int
	VoteCount              int
	TotalShips             int
	HasOrderedFreeStickers bool
	HoursLogged            float64
}

// FraudCase is one fraud-desk case attached to a Slack user.
type FraudCase struct {
	ID      int64
	SlackID string
	Status  string
}

// Open reports whether the case still needs attention.
func (c FraudCase) Open() bool {
	return c.Status != "Resolved" && c.Status != "Duplicate Case"
}

// Store is the record-store surface the core consumes.
type Store interface {
	RequestByPublicTS(ctx context.Context, publicTS string) (*Request, error)
	RequestByPrivateTS(ctx context.Context, privateTS string) (*Request, error)
	CreateRequest(ctx context.Context, req *Request) error
	DeleteRequest(ctx context.Context, publicTS string) error
	ResolveRequest(ctx context.Context, publicTS string) error

	PersonBySlackID(ctx context.Context, slackID string) (*Person, error)
	PersonByID(ctx context.Context, id int64) (*Person, error)
	CreatePerson(ctx context.Context, p *Person) error

	ListMacros(ctx context.Context, ownerSlackID string) ([]Macro, error)
	CreateMacro(ctx context.Context, m *Macro) error

	Snapshot(ctx context.Context, slackID string) (*ProfileSnapshot, error)
	FraudCases(ctx context.Context, slackID string) ([]FraudCase, error)
}
