package models

import "time"

type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryOpened  DeliveryStatus = "opened"
	DeliveryClicked DeliveryStatus = "clicked"
	DeliveryFailed  DeliveryStatus = "failed"
)

// Delivery is one row of the per-recipient ledger, keyed by
// (issue, subscriber). It records the outcome of individual send attempts
// and is independent of job retries: a retried job updates the same rows.
type Delivery struct {
	IssueID      string         `json:"issue_id"`
	SubscriberID string         `json:"subscriber_id"`
	Status       DeliveryStatus `json:"status"`
	ErrorMsg     string         `json:"error_msg,omitempty"`

	SentAt    *time.Time `json:"sent_at,omitempty"`
	OpenedAt  *time.Time `json:"opened_at,omitempty"`
	ClickedAt *time.Time `json:"clicked_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MarkSent records a successful transport send.
func (d *Delivery) MarkSent(at time.Time) {
	d.Status = DeliverySent
	d.SentAt = &at
	d.ErrorMsg = ""
}

// MarkFailed records a failed transport send.
func (d *Delivery) MarkFailed(errMsg string) {
	d.Status = DeliveryFailed
	d.ErrorMsg = errMsg
}
