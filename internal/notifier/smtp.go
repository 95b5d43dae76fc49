package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobradar/internal/retry"
)

// Mode is the connection security used for one transport variant.
type Mode string

const (
	// ModeStartTLS connects in plain text and requires an upgrade via STARTTLS.
	ModeStartTLS Mode = "starttls"
	// ModeTLS wraps the connection in TLS from the first byte.
	ModeTLS Mode = "tls"
	// ModeOpportunistic upgrades with STARTTLS only when the server offers it.
	ModeOpportunistic Mode = "opportunistic"
	// ModePlain never upgrades. Only suitable for a local relay.
	ModePlain Mode = "plain"
)

// ParseMode validates a configured mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeStartTLS, ModeTLS, ModeOpportunistic, ModePlain:
		return m, nil
	default:
		return "", fmt.Errorf("unknown smtp mode %q", s)
	}
}

// Variant is one port and security combination to try.
type Variant struct {
	Port int
	Mode Mode
}

func (v Variant) String() string {
	return strconv.Itoa(v.Port) + "/" + string(v.Mode)
}

// DefaultVariants is the order variants are tried in when none are configured.
var DefaultVariants = []Variant{
	{Port: 587, Mode: ModeStartTLS},
	{Port: 465, Mode: ModeTLS},
	{Port: 25, Mode: ModeOpportunistic},
}

// Credentials authenticate against the relay. An empty Username skips AUTH.
type Credentials struct {
	Username string
	Password string
}

// Transport performs one SMTP session against host using variant v.
// Rejected credentials must be reported as ErrAuthFailed.
type Transport interface {
	Send(ctx context.Context, host string, v Variant, creds Credentials, from string, to []string, msg []byte) error
}

// SMTPConfig configures SMTPChannel.
type SMTPConfig struct {
	Host        string
	Variants    []Variant
	Credentials Credentials
	// Attempts is the number of passes over Variants.
	Attempts int
	// Backoff is multiplied by the attempt number between passes.
	Backoff time.Duration
	// MaxBackoff caps a single backoff; zero means no cap.
	MaxBackoff time.Duration
}

// SMTPChannel delivers through an SMTP relay, walking every variant on each
// attempt and backing off linearly between attempts.
type SMTPChannel struct {
	host      string
	variants  []Variant
	creds     Credentials
	attempts  int
	backoff   retry.Linear
	transport Transport
	sleep     retry.SleepFunc
	logger    *slog.Logger
}

var _ Channel = (*SMTPChannel)(nil)

// NewSMTPChannel creates an SMTP channel. A nil sleep uses retry.Sleep.
func NewSMTPChannel(cfg SMTPConfig, transport Transport, sleep retry.SleepFunc, logger *slog.Logger) *SMTPChannel {
	variants := cfg.Variants
	if len(variants) == 0 {
		variants = DefaultVariants
	}
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}
	if sleep == nil {
		sleep = retry.Sleep
	}
	return &SMTPChannel{
		host:      cfg.Host,
		variants:  variants,
		creds:     cfg.Credentials,
		attempts:  attempts,
		backoff:   retry.Linear{Base: cfg.Backoff, Max: cfg.MaxBackoff},
		transport: transport,
		sleep:     sleep,
		logger:    logger,
	}
}

func (c *SMTPChannel) Name() string { return "smtp" }

// Send tries each variant in order, attempt after attempt. It stops at the
// first success, on rejected credentials, or when ctx is done.
func (c *SMTPChannel) Send(ctx context.Context, env Envelope) error {
	msg, err := buildMIME(env)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		for _, v := range c.variants {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("smtp delivery: %w", err)
			}

			err := c.transport.Send(ctx, c.host, v, c.creds, env.From, env.To, msg)
			if err == nil {
				c.logger.Info("delivery attempt",
					"channel", c.Name(), "port", v.Port, "mode", string(v.Mode),
					"attempt", attempt, "outcome", outcomeSuccess,
				)
				return nil
			}
			outcome := attemptOutcome(err)
			if outcome == outcomeAuth {
				c.logger.Error("delivery attempt",
					"channel", c.Name(), "port", v.Port, "mode", string(v.Mode),
					"attempt", attempt, "outcome", outcome, "error", err,
				)
				return fmt.Errorf("smtp %s via %s: %w", c.host, v, err)
			}
			c.logger.Warn("delivery attempt",
				"channel", c.Name(), "port", v.Port, "mode", string(v.Mode),
				"attempt", attempt, "outcome", outcome, "error", err,
			)
			lastErr = err
		}

		if attempt < c.attempts {
			delay := c.backoff.Delay(attempt)
			c.logger.Info("retrying smtp delivery", "after", delay, "next_attempt", attempt+1)
			if err := c.sleep(ctx, delay); err != nil {
				return fmt.Errorf("smtp delivery: %w", err)
			}
		}
	}

	return fmt.Errorf("%w: %d attempt(s) over %d variant(s): %w", ErrDeliveryExhausted, c.attempts, len(c.variants), lastErr)
}

// Attempt outcomes as logged. Only outcomeAuth ends the loop early.
const (
	outcomeSuccess   = "success"
	outcomeAuth      = "auth"
	outcomeTransient = "transient" // the relay could not be reached
	outcomeRejected  = "rejected"  // the relay answered with an error
)

func attemptOutcome(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, ErrAuthFailed):
		return outcomeAuth
	case retry.IsNetworkError(err):
		return outcomeTransient
	default:
		return outcomeRejected
	}
}
