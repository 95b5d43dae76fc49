package notifier

import (
	"context"
	"errors"
)

var (
	// ErrEmptyBatch is returned when asked to deliver zero postings.
	ErrEmptyBatch = errors.New("empty delivery batch")
	// ErrAuthFailed means the credentials were rejected. Retrying with the
	// same credentials cannot succeed.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrDeliveryExhausted is returned once every attempt on every
	// transport variant has failed.
	ErrDeliveryExhausted = errors.New("delivery attempts exhausted")
)

// Channel submits one envelope over a single delivery mechanism.
type Channel interface {
	Name() string
	Send(ctx context.Context, env Envelope) error
}
