package email

import "context"

// Provider is the narrow boundary to the external email collaborator.
// Delivery mechanics are out of scope; callers treat sends as
// fire-and-forget.
type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
}

type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	return nil
}
