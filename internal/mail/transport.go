package mail

import "context"

// Message is one fully-rendered email ready for delivery.
type Message struct {
	To        string
	Subject   string
	HTML      string
	Text      string
	FromEmail string
	FromName  string
}

// Transport delivers a single message and returns the provider's message id.
type Transport interface {
	Send(ctx context.Context, msg Message) (string, error)
}
