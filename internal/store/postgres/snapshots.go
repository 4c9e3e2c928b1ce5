package postgres

import (
	"context"
	"fmt"

	"github.com/quarterdeck/internal/store"
)

// Snapshot returns the payment/verification aggregate for a Slack user.
func (s *Store) Snapshot(ctx context.Context, slackID string) (*store.ProfileSnapshot, error) {
	query := `
	SELECT slack_id, stage, verification_status, disciplinary_status,
	       doubloons_paid, doubloons_spent, doubloons_granted, doubloons_balance,
	       unique_vote_count, vote_count, total_ships,
	       has_ordered_free_stickers, hours_logged
	FROM profile_snapshots
	WHERE slack_id = $1
	`

	var snap store.ProfileSnapshot
	err := s.pool.QueryRow(ctx, query, slackID).Scan(
		&snap.SlackID, &snap.Stage, &snap.VerificationStatus, &snap.DisciplinaryStatus,
		&snap.DoubloonsPaid, &snap.DoubloonsSpent, &snap.DoubloonsGranted, &snap.DoubloonsBalance,
		&snap.UniqueVoteCount, &snap.VoteCount, &snap.TotalShips,
		&snap.HasOrderedFreeStickers, &snap.HoursLogged,
	)
	if err != nil {
		if err = notFound(err); err == store.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get profile snapshot: %w", err)
	}
	return &snap, nil
}

// FraudCases lists fraud-desk cases attached to a Slack user.
func (s *Store) FraudCases(ctx context.Context, slackID string) ([]store.FraudCase, error) {
	query := `
	SELECT id, slack_id, status
	FROM fraud_cases
	WHERE slack_id = $1
	ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query, slackID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fraud cases: %w", err)
	}
	defer rows.Close()

	var cases []store.FraudCase
	for rows.Next() {
		var c store.FraudCase
		if err := rows.Scan(&c.ID, &c.SlackID, &c.Status); err != nil {
			return nil, fmt.Errorf("failed to scan fraud case: %w", err)
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read fraud cases: %w", err)
	}

	return cases, nil
}
