// Package ledger persists per-recipient delivery outcomes. One row per
// (issue, subscriber); rows are seeded Pending when an issue is queued and
// updated after each send attempt. The ledger is observability, not the
// source of truth for whether mail went out: writes here are best-effort
// from the dispatch pipeline's point of view.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"LetterFlow/internal/models"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, conn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("ledger: connect: %w", err)
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

// CreatePending seeds one Pending row per subscriber for a freshly queued
// issue. Re-publishing the same issue leaves existing rows untouched.
func (s *Store) CreatePending(ctx context.Context, issueID string, subscriberIDs []string) error {
	batch := &pgx.Batch{}
	for _, subscriberID := range subscriberIDs {
		batch.Queue(
			`INSERT INTO deliveries (issue_id, subscriber_id, status, created_at, updated_at)
			 VALUES ($1, $2, $3, NOW(), NOW())
			 ON CONFLICT (issue_id, subscriber_id) DO NOTHING`,
			issueID,
			subscriberID,
			models.DeliveryPending,
		)
	}

	results := s.Pool.SendBatch(ctx, batch)
	defer results.Close()

	for range subscriberIDs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("ledger: create pending rows for issue %s: %w", issueID, err)
		}
	}
	return nil
}

// FindByIssueAndSubscriber returns the row for one recipient, or (nil, nil)
// when no row exists.
func (s *Store) FindByIssueAndSubscriber(ctx context.Context, issueID, subscriberID string) (*models.Delivery, error) {
	var d models.Delivery

	err := s.Pool.QueryRow(ctx,
		`SELECT issue_id, subscriber_id, status, COALESCE(error_msg, ''),
		        sent_at, opened_at, clicked_at, created_at, updated_at
		 FROM deliveries
		 WHERE issue_id = $1 AND subscriber_id = $2`,
		issueID,
		subscriberID,
	).Scan(
		&d.IssueID,
		&d.SubscriberID,
		&d.Status,
		&d.ErrorMsg,
		&d.SentAt,
		&d.OpenedAt,
		&d.ClickedAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: find delivery: %w", err)
	}
	return &d, nil
}

// Update persists the mutable fields of a row. The (issue, subscriber) key
// never changes, so concurrent workers only ever race on their own rows.
func (s *Store) Update(ctx context.Context, d *models.Delivery) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE deliveries
		 SET status = $1,
		     error_msg = NULLIF($2, ''),
		     sent_at = $3,
		     opened_at = $4,
		     clicked_at = $5,
		     updated_at = NOW()
		 WHERE issue_id = $6 AND subscriber_id = $7`,
		d.Status,
		d.ErrorMsg,
		d.SentAt,
		d.OpenedAt,
		d.ClickedAt,
		d.IssueID,
		d.SubscriberID,
	)
	if err != nil {
		return fmt.Errorf("ledger: update delivery: %w", err)
	}
	return nil
}
