package mail

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v3"
)

// MaxBatchRecipients caps one SendBatch call, matching the provider limit.
const MaxBatchRecipients = 50

// Resend delivers mail through the Resend API.
type Resend struct {
	client *resend.Client
}

func NewResend(apiKey string) *Resend {
	return &Resend{client: resend.NewClient(apiKey)}
}

// Send implements Transport.
func (r *Resend) Send(ctx context.Context, msg Message) (string, error) {
	req := &resend.SendEmailRequest{
		From:    fromAddress(msg),
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}

	sent, err := r.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return "", fmt.Errorf("resend: send to %s: %w", msg.To, err)
	}
	return sent.Id, nil
}

// SendBatch delivers up to MaxBatchRecipients identical messages in one API
// call. Only usable when the content carries no per-recipient
// personalization; issue fan-out does not qualify because every recipient
// gets their own unsubscribe link.
func (r *Resend) SendBatch(ctx context.Context, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if len(msgs) > MaxBatchRecipients {
		return fmt.Errorf("resend: batch of %d exceeds limit of %d", len(msgs), MaxBatchRecipients)
	}

	reqs := make([]*resend.SendEmailRequest, len(msgs))
	for i, msg := range msgs {
		reqs[i] = &resend.SendEmailRequest{
			From:    fromAddress(msg),
			To:      []string{msg.To},
			Subject: msg.Subject,
			Html:    msg.HTML,
			Text:    msg.Text,
		}
	}

	if _, err := r.client.Batch.SendWithContext(ctx, reqs); err != nil {
		return fmt.Errorf("resend: batch send: %w", err)
	}
	return nil
}

func fromAddress(msg Message) string {
	if msg.FromName == "" {
		return msg.FromEmail
	}
	return fmt.Sprintf("%s <%s>", msg.FromName, msg.FromEmail)
}
