package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"gopkg.in/gomail.v2"
)

// SMTP delivers mail through a plain SMTP relay. Transient dial/send errors
// are retried with exponential backoff, and a shared rate limiter keeps the
// relay's connection budget intact across concurrent callers.
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string

	Limiter       *rate.Limiter
	RetryAttempts int
}

func NewSMTP(host string, port int, username, password string, limiter *rate.Limiter, retryAttempts int) *SMTP {
	return &SMTP{
		Host:          host,
		Port:          port,
		Username:      username,
		Password:      password,
		Limiter:       limiter,
		RetryAttempts: retryAttempts,
	}
}

// Send implements Transport. SMTP has no provider-side message id, so a
// locally generated one is returned for the ledger.
func (s *SMTP) Send(ctx context.Context, msg Message) (string, error) {
	if s.Limiter != nil {
		if err := s.Limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("smtp: rate limiter: %w", err)
		}
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", msg.FromEmail, msg.FromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)
	if msg.Text != "" {
		m.AddAlternative("text/plain", msg.Text)
	}

	d := gomail.NewDialer(s.Host, s.Port, s.Username, s.Password)

	operation := func() error {
		return d.DialAndSend(m)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = time.Duration(s.RetryAttempts) * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", fmt.Errorf("smtp: send to %s: %w", msg.To, err)
	}

	return uuid.NewString(), nil
}
