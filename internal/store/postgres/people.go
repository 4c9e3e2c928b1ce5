package postgres

import (
	"context"
	"fmt"

	"github.com/quarterdeck/internal/store"
)

const personColumns = `id, slack_id, forename, surname, email, help_requests, created_at`

// PersonBySlackID looks up a person by their Slack user id.
func (s *Store) PersonBySlackID(ctx context.Context, slackID string) (*store.Person, error) {
	query := `
	SELECT ` + personColumns + `
	FROM people
	WHERE slack_id = $1
	`
	return s.scanPerson(ctx, query, slackID)
}

// PersonByID looks up a person by record id.
func (s *Store) PersonByID(ctx context.Context, id int64) (*store.Person, error) {
	query := `
	SELECT ` + personColumns + `
	FROM people
	WHERE id = $1
	`
	return s.scanPerson(ctx, query, id)
}

func (s *Store) scanPerson(ctx context.Context, query string, arg any) (*store.Person, error) {
	var p store.Person
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&p.ID, &p.SlackID, &p.Forename, &p.Surname, &p.Email, &p.HelpRequests, &p.CreatedAt,
	)
	if err != nil {
		if err = notFound(err); err == store.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return &p, nil
}

// CreatePerson inserts a new person record and fills in the generated id.
func (s *Store) CreatePerson(ctx context.Context, p *store.Person) error {
	query := `
	INSERT INTO people (slack_id, forename, surname, email)
	VALUES ($1, $2, $3, $4)
	RETURNING id, created_at
	`
	err := s.pool.QueryRow(ctx, query, p.SlackID, p.Forename, p.Surname, p.Email).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create person: %w", err)
	}
	return nil
}
