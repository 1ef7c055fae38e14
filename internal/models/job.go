package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type JobType string

const (
	JobTypeIssuePublished JobType = "issue_published"
)

// EmailJob is the serialized unit of dispatch work: one published issue
// fanned out to a fixed recipient list. The recipient list is frozen at
// enqueue time and is not re-resolved on retry.
type EmailJob struct {
	ID           string  `json:"id"`
	Type         JobType `json:"type"`
	IssueID      string  `json:"issue_id"`
	NewsletterID string  `json:"newsletter_id"`

	RecipientEmails []string `json:"recipient_emails"`

	Subject      string `json:"subject"`
	Title        string `json:"title"`
	Excerpt      string `json:"excerpt,omitempty"`
	BodyHTML     string `json:"body_html"`
	CanonicalURL string `json:"canonical_url"`
	SenderName   string `json:"sender_name"`
	SenderImage  string `json:"sender_image,omitempty"`

	// UnsubscribeURLTemplate contains an {email} placeholder substituted
	// per recipient at send time.
	UnsubscribeURLTemplate string `json:"unsubscribe_url_template"`

	RetryCount int       `json:"retry_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewIssuePublishedJob builds a job with a fresh id and a zero retry count.
// The id stays stable across retries.
func NewIssuePublishedJob(issueID, newsletterID string, recipients []string) EmailJob {
	return EmailJob{
		ID:              uuid.NewString(),
		Type:            JobTypeIssuePublished,
		IssueID:         issueID,
		NewsletterID:    newsletterID,
		RecipientEmails: recipients,
		RetryCount:      0,
		CreatedAt:       time.Now().UTC(),
	}
}

// WithRetry returns a copy with the retry count incremented. The original
// value is not mutated; the queue pushes the copy, never the original.
func (j EmailJob) WithRetry() EmailJob {
	j.RetryCount++
	return j
}

// Marshal serializes the job for the broker. The wire format is a flat JSON
// object; readers ignore unknown fields so deploys can roll forward.
func (j EmailJob) Marshal() (string, error) {
	b, err := json.Marshal(j)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func UnmarshalEmailJob(raw string) (EmailJob, error) {
	var j EmailJob
	err := json.Unmarshal([]byte(raw), &j)
	return j, err
}
