// Package subscribers is the read-only directory of confirmed subscribers.
// The dispatch core only reads it; subscription lifecycle is owned by the
// sign-up/webhook side of the product.
package subscribers

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Directory struct {
	Pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Directory {
	return &Directory{Pool: pool}
}

// SubscriberID resolves an email address to a subscriber id within a
// newsletter.
func (d *Directory) SubscriberID(ctx context.Context, newsletterID, email string) (string, error) {
	var id string
	err := d.Pool.QueryRow(ctx,
		`SELECT id FROM subscribers
		 WHERE newsletter_id = $1 AND email = $2`,
		newsletterID,
		email,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("subscribers: lookup %s: %w", email, err)
	}
	return id, nil
}

// ActiveEmails returns the confirmed, still-subscribed addresses of a
// newsletter. The publish trigger freezes this list into the job.
func (d *Directory) ActiveEmails(ctx context.Context, newsletterID string) ([]string, []string, error) {
	rows, err := d.Pool.Query(ctx,
		`SELECT id, email FROM subscribers
		 WHERE newsletter_id = $1 AND status = 'active'
		 ORDER BY created_at`,
		newsletterID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribers: list active: %w", err)
	}
	defer rows.Close()

	var ids, emails []string
	for rows.Next() {
		var id, email string
		if err := rows.Scan(&id, &email); err != nil {
			return nil, nil, fmt.Errorf("subscribers: scan: %w", err)
		}
		ids = append(ids, id)
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("subscribers: list active: %w", err)
	}
	return ids, emails, nil
}
