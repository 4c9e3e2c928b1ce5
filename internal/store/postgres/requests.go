package postgres

import (
	"context"
	"fmt"

	"github.com/quarterdeck/internal/store"
)

const requestColumns = `public_thread_ts, private_thread_ts, status, person_id, content, created_at`

// RequestByPublicTS looks up a request by the timestamp of its originating
// message in the support channel.
func (s *Store) RequestByPublicTS(ctx context.Context, publicTS string) (*store.Request, error) {
	query := `
	SELECT ` + requestColumns + `
	FROM requests
	WHERE public_thread_ts = $1
	`
	return s.scanRequest(ctx, query, publicTS)
}

// RequestByPrivateTS looks up a request by the timestamp of its linked thread
// in the staff channel.
func (s *Store) RequestByPrivateTS(ctx context.Context, privateTS string) (*store.Request, error) {
	query := `
	SELECT ` + requestColumns + `
	FROM requests
	WHERE private_thread_ts = $1
	`
	return s.scanRequest(ctx, query, privateTS)
}

func (s *Store) scanRequest(ctx context.Context, query, arg string) (*store.Request, error) {
	var req store.Request
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&req.PublicThreadTS, &req.PrivateThreadTS, &req.Status,
		&req.PersonID, &req.Content, &req.CreatedAt,
	)
	if err != nil {
		if err = notFound(err); err == store.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return &req, nil
}

// CreateRequest persists a new request and bumps the requester's running
// help-request count in the same transaction.
func (s *Store) CreateRequest(ctx context.Context, req *store.Request) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if req.Status == "" {
		req.Status = store.StatusOpen
	}

	query := `
	INSERT INTO requests (public_thread_ts, private_thread_ts, status, person_id, content)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING created_at
	`
	err = tx.QueryRow(ctx, query,
		req.PublicThreadTS, req.PrivateThreadTS, req.Status, req.PersonID, req.Content,
	).Scan(&req.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE people SET help_requests = help_requests + 1 WHERE id = $1`, req.PersonID)
	if err != nil {
		return fmt.Errorf("failed to bump help request count: %w", err)
	}

	return tx.Commit(ctx)
}

// DeleteRequest removes the request whose originating message was deleted.
// Deleting an already-absent request is a no-op.
func (s *Store) DeleteRequest(ctx context.Context, publicTS string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var personID int64
	err = tx.QueryRow(ctx,
		`DELETE FROM requests WHERE public_thread_ts = $1 RETURNING person_id`, publicTS,
	).Scan(&personID)
	if err != nil {
		if notFound(err) == store.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete request: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE people SET help_requests = GREATEST(help_requests - 1, 0) WHERE id = $1`, personID)
	if err != nil {
		return fmt.Errorf("failed to drop help request count: %w", err)
	}

	return tx.Commit(ctx)
}

// ResolveRequest marks a request resolved. Resolving a missing request
// reports store.ErrNotFound.
func (s *Store) ResolveRequest(ctx context.Context, publicTS string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE requests SET status = $1 WHERE public_thread_ts = $2`,
		store.StatusResolved, publicTS)
	if err != nil {
		return fmt.Errorf("failed to resolve request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
