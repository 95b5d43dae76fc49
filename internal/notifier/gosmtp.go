package notifier

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// DefaultSMTPTimeout bounds dialing and each SMTP session.
const DefaultSMTPTimeout = 30 * time.Second

// GoSMTPTransport is the production Transport built on emersion/go-smtp.
type GoSMTPTransport struct {
	Timeout time.Duration
	// TLSConfig is cloned per session; ServerName defaults to the host.
	TLSConfig *tls.Config
}

var _ Transport = (*GoSMTPTransport)(nil)

func (t *GoSMTPTransport) timeout() time.Duration {
	if t.Timeout > 0 {
		return t.Timeout
	}
	return DefaultSMTPTimeout
}

func (t *GoSMTPTransport) tlsConfig(host string) *tls.Config {
	var cfg *tls.Config
	if t.TLSConfig != nil {
		cfg = t.TLSConfig.Clone()
	} else {
		cfg = &tls.Config{}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	return cfg
}

// ErrCleartextAuth is returned instead of sending credentials over an
// unencrypted connection to a non-loopback host.
var ErrCleartextAuth = errors.New("refusing AUTH over an unencrypted connection")

// Send runs one SMTP session: connect, STARTTLS where the mode asks for it,
// AUTH PLAIN, submit.
func (t *GoSMTPTransport) Send(ctx context.Context, host string, v Variant, creds Credentials, from string, to []string, msg []byte) error {
	addr := net.JoinHostPort(host, strconv.Itoa(v.Port))
	if v.Mode == ModePlain && creds.Username != "" && !authAllowed(host, false) {
		return fmt.Errorf("%s: %w", addr, ErrCleartextAuth)
	}

	c, encrypted, err := t.connect(ctx, addr, host, v.Mode)
	if err != nil {
		return err
	}
	defer c.Close()

	if creds.Username != "" {
		if !authAllowed(host, encrypted) {
			return fmt.Errorf("%s: %w", addr, ErrCleartextAuth)
		}
		if ok, _ := c.Extension("AUTH"); !ok {
			return fmt.Errorf("%s does not offer AUTH", addr)
		}
		if err := c.Auth(sasl.NewPlainClient("", creds.Username, creds.Password)); err != nil {
			if isAuthRejection(err) {
				return fmt.Errorf("%w: %v", ErrAuthFailed, err)
			}
			return fmt.Errorf("auth %s: %w", addr, err)
		}
	}

	if err := c.SendMail(from, to, bytes.NewReader(msg)); err != nil {
		return fmt.Errorf("send via %s: %w", addr, err)
	}
	// The message is accepted at this point; a failed QUIT must not trigger a resend.
	_ = c.Quit()
	return nil
}

// connect opens a client session for mode and reports whether it is
// encrypted. Opportunistic mode checks EHLO first and reconnects with
// STARTTLS when the server offers it.
func (t *GoSMTPTransport) connect(ctx context.Context, addr, host string, mode Mode) (*smtp.Client, bool, error) {
	switch mode {
	case ModeTLS:
		conn, err := t.dial(ctx, addr, t.tlsConfig(host))
		if err != nil {
			return nil, false, err
		}
		return smtp.NewClient(conn), true, nil

	case ModeStartTLS:
		return t.startTLS(ctx, addr, host)

	case ModeOpportunistic:
		conn, err := t.dial(ctx, addr, nil)
		if err != nil {
			return nil, false, err
		}
		c := smtp.NewClient(conn)
		if ok, _ := c.Extension("STARTTLS"); !ok {
			return c, false, nil
		}
		c.Close()
		return t.startTLS(ctx, addr, host)

	default:
		conn, err := t.dial(ctx, addr, nil)
		if err != nil {
			return nil, false, err
		}
		return smtp.NewClient(conn), false, nil
	}
}

func (t *GoSMTPTransport) startTLS(ctx context.Context, addr, host string) (*smtp.Client, bool, error) {
	conn, err := t.dial(ctx, addr, nil)
	if err != nil {
		return nil, false, err
	}
	c, err := smtp.NewClientStartTLS(conn, t.tlsConfig(host))
	if err != nil {
		conn.Close()
		return nil, false, fmt.Errorf("STARTTLS with %s: %w", addr, err)
	}
	return c, true, nil
}

// dial connects to addr, wrapping the connection in TLS when tlsCfg is set.
// The connection is bounded by the transport timeout and closed early when
// ctx ends.
func (t *GoSMTPTransport) dial(ctx context.Context, addr string, tlsCfg *tls.Config) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: t.timeout()}
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	raw.SetDeadline(time.Now().Add(t.timeout()))
	conn := &ctxConn{Conn: raw, stop: context.AfterFunc(ctx, func() { raw.Close() })}

	if tlsCfg == nil {
		return conn, nil
	}
	tlsConn := tls.Client(conn, tlsCfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake with %s: %w", addr, err)
	}
	return tlsConn, nil
}

// ctxConn releases its context hook on Close.
type ctxConn struct {
	net.Conn
	stop func() bool
}

func (c *ctxConn) Close() error {
	c.stop()
	return c.Conn.Close()
}

// authAllowed reports whether credentials may be sent to host. Cleartext
// AUTH is only allowed to loopback.
func authAllowed(host string, encrypted bool) bool {
	if encrypted || host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// isAuthRejection reports whether the server refused the credentials
// themselves (as opposed to a temporary failure).
func isAuthRejection(err error) bool {
	var smtpErr *smtp.SMTPError
	if !errors.As(err, &smtpErr) {
		return false
	}
	switch smtpErr.Code {
	case 534, 535:
		return true
	default:
		return false
	}
}
