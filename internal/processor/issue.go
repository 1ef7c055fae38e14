package processor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"LetterFlow/internal/mail"
	"LetterFlow/internal/metrics"
	"LetterFlow/internal/models"
)

const (
	// Pause after every rateLimitBatch-th successful send to stay under
	// the transport provider's rate limits.
	rateLimitBatch = 10
	rateLimitPause = 100 * time.Millisecond

	emailPlaceholder = "{email}"
)

// Ledger is the per-recipient delivery record store. Lookups and updates
// are best-effort from the processor's point of view: the ledger observes
// outcomes, it never decides them.
type Ledger interface {
	FindByIssueAndSubscriber(ctx context.Context, issueID, subscriberID string) (*models.Delivery, error)
	Update(ctx context.Context, d *models.Delivery) error
}

// Directory resolves a recipient address to a subscriber id within a
// newsletter.
type Directory interface {
	SubscriberID(ctx context.Context, newsletterID, email string) (string, error)
}

// IssueProcessor sends a published issue to every recipient on the job.
// Recipients are processed strictly sequentially; one bad address never
// aborts the batch.
type IssueProcessor struct {
	transport mail.Transport
	ledger    Ledger
	directory Directory
	log       *zap.Logger

	fromEmail string

	// sleep is swapped out in tests to observe rate-limit pauses.
	sleep func(time.Duration)
}

func NewIssueProcessor(transport mail.Transport, ledger Ledger, directory Directory, fromEmail string, log *zap.Logger) *IssueProcessor {
	return &IssueProcessor{
		transport: transport,
		ledger:    ledger,
		directory: directory,
		log:       log,
		fromEmail: fromEmail,
		sleep:     time.Sleep,
	}
}

func (p *IssueProcessor) Type() models.JobType {
	return models.JobTypeIssuePublished
}

// Process returns an error only when every recipient failed. A mixed
// outcome acknowledges the job: retrying it wholesale would re-send to the
// recipients that already succeeded, and the ledger keeps the per-recipient
// record either way.
func (p *IssueProcessor) Process(ctx context.Context, job models.EmailJob) error {
	if len(job.RecipientEmails) == 0 {
		p.log.Info("issue job has no recipients", zap.String("job_id", job.ID))
		return nil
	}

	successCount := 0
	failureCount := 0

	for _, email := range job.RecipientEmails {
		delivery := p.lookupDelivery(ctx, job, email)

		unsubscribeURL := strings.ReplaceAll(job.UnsubscribeURLTemplate, emailPlaceholder, email)

		html, text, err := renderIssue(job, unsubscribeURL)
		if err != nil {
			// Rendering depends only on job fields, so this fails for
			// every recipient alike.
			failureCount = len(job.RecipientEmails)
			p.log.Error("issue render failed", zap.String("job_id", job.ID), zap.Error(err))
			break
		}

		msgID, err := p.transport.Send(ctx, mail.Message{
			To:        email,
			Subject:   job.Subject,
			HTML:      html,
			Text:      text,
			FromEmail: p.fromEmail,
			FromName:  job.SenderName,
		})
		if err != nil {
			failureCount++
			metrics.EmailFailures.Inc()
			p.log.Error("send failed",
				zap.String("job_id", job.ID),
				zap.String("to", email),
				zap.Error(err),
			)
			p.updateDelivery(ctx, delivery, func(d *models.Delivery) {
				d.MarkFailed(err.Error())
			})
			continue
		}

		successCount++
		metrics.EmailsSent.Inc()
		p.log.Debug("email sent",
			zap.String("job_id", job.ID),
			zap.String("to", email),
			zap.String("message_id", msgID),
		)
		p.updateDelivery(ctx, delivery, func(d *models.Delivery) {
			d.MarkSent(time.Now().UTC())
		})

		if successCount%rateLimitBatch == 0 {
			p.sleep(rateLimitPause)
		}
	}

	if successCount == 0 && failureCount > 0 {
		return fmt.Errorf("all %d sends failed for issue %s", failureCount, job.IssueID)
	}

	p.log.Info("issue dispatched",
		zap.String("job_id", job.ID),
		zap.String("issue_id", job.IssueID),
		zap.Int("sent", successCount),
		zap.Int("failed", failureCount),
	)
	return nil
}

// lookupDelivery resolves the ledger row for a recipient. Absence is
// tolerated: a nil return just means this send goes unrecorded.
func (p *IssueProcessor) lookupDelivery(ctx context.Context, job models.EmailJob, email string) *models.Delivery {
	subscriberID, err := p.directory.SubscriberID(ctx, job.NewsletterID, email)
	if err != nil {
		p.log.Warn("subscriber lookup failed",
			zap.String("job_id", job.ID),
			zap.String("email", email),
			zap.Error(err),
		)
		return nil
	}

	delivery, err := p.ledger.FindByIssueAndSubscriber(ctx, job.IssueID, subscriberID)
	if err != nil {
		p.log.Warn("delivery lookup failed",
			zap.String("job_id", job.ID),
			zap.String("subscriber_id", subscriberID),
			zap.Error(err),
		)
		return nil
	}
	return delivery
}

// updateDelivery applies mutate and persists the row. Ledger write failures
// are logged and swallowed: they must never flip the reported send outcome.
func (p *IssueProcessor) updateDelivery(ctx context.Context, delivery *models.Delivery, mutate func(*models.Delivery)) {
	if delivery == nil {
		return
	}
	mutate(delivery)
	if err := p.ledger.Update(ctx, delivery); err != nil {
		p.log.Error("delivery update failed",
			zap.String("issue_id", delivery.IssueID),
			zap.String("subscriber_id", delivery.SubscriberID),
			zap.Error(err),
		)
	}
}
