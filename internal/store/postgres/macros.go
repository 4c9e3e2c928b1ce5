package postgres

import (
	"context"
	"fmt"

	"github.com/quarterdeck/internal/store"
)

// ListMacros returns the macros visible to a staff member. An empty owner
// lists every macro (the "shared" visibility scope).
func (s *Store) ListMacros(ctx context.Context, ownerSlackID string) ([]store.Macro, error) {
	query := `
	SELECT id, name, message, close, owner_slack_id, created_at
	FROM macros
	`
	args := []any{}
	if ownerSlackID != "" {
		query += `WHERE owner_slack_id = $1
	`
		args = append(args, ownerSlackID)
	}
	query += `ORDER BY name ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list macros: %w", err)
	}
	defer rows.Close()

	var macros []store.Macro
	for rows.Next() {
		var m store.Macro
		if err := rows.Scan(&m.ID, &m.Name, &m.Message, &m.Close, &m.OwnerSlackID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan macro: %w", err)
		}
		macros = append(macros, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read macros: %w", err)
	}

	return macros, nil
}

// CreateMacro inserts a new macro.
func (s *Store) CreateMacro(ctx context.Context, m *store.Macro) error {
	query := `
	INSERT INTO macros (name, message, close, owner_slack_id)
	VALUES ($1, $2, $3, $4)
	RETURNING id, created_at
	`
	err := s.pool.QueryRow(ctx, query, m.Name, m.Message, m.Close, m.OwnerSlackID).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create macro: %w", err)
	}
	return nil
}
