package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/simplesurance/commitmailer/internal/logfields"
	"github.com/simplesurance/commitmailer/internal/mailerr"
)

const DefaultSMTPTimeout = 30 * time.Second

//go:generate mockgen -destination=mocks/transport.go -package=mocks . Transport

// Transport delivers a Message.
// Implementations return a *mailerr.SendError on failure.
type Transport interface {
	Send(ctx context.Context, msg *Message) error
}

// SMTPTransport sends messages via an SMTP relay.
// For every message a new connection is established, upgraded to TLS via
// STARTTLS and authenticated via AUTH PLAIN. The connection is closed when
// Send returns.
type SMTPTransport struct {
	logger   *zap.Logger
	host     string
	port     int
	user     string
	password string
	timeout  time.Duration
	tlsCfg   *tls.Config
}

type smtpOption func(*SMTPTransport)

// WithSMTPTimeout sets the timeout for establishing the connection and for
// each network operation of the SMTP session.
func WithSMTPTimeout(timeout time.Duration) smtpOption {
	return func(t *SMTPTransport) {
		t.timeout = timeout
	}
}

// WithSMTPTLSConfig sets the TLS configuration that is used for the STARTTLS
// upgrade.
func WithSMTPTLSConfig(cfg *tls.Config) smtpOption {
	return func(t *SMTPTransport) {
		t.tlsCfg = cfg
	}
}

func NewSMTPTransport(host string, port int, user, password string, opts ...smtpOption) *SMTPTransport {
	t := SMTPTransport{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		timeout:  DefaultSMTPTimeout,
	}

	for _, o := range opts {
		o(&t)
	}

	if t.logger == nil {
		t.logger = zap.L().Named(loggerName).Named("smtp")
	}

	return &t
}

// connTracker holds the connection that was dialed for an SMTP session.
type connTracker struct {
	mu   sync.Mutex
	conn net.Conn
}

func (c *connTracker) set(conn net.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

// close closes the tracked connection.
// It returns nil if no connection was dialed or it is already closed.
func (c *connTracker) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}

	return nil
}

func toMailMsg(msg *Message) (*mail.Msg, error) {
	m := mail.NewMsg()

	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", msg.From, err)
	}

	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient address %q: %w", msg.To, err)
	}

	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	return m, nil
}

// Send delivers msg to the relay.
// The TCP connection is closed on every return path, also when the SMTP
// handshake, the STARTTLS upgrade or the authentication fails.
func (t *SMTPTransport) Send(ctx context.Context, msg *Message) error {
	m, err := toMailMsg(msg)
	if err != nil {
		return mailerr.NewSendError(mailerr.StageMessage, err)
	}

	var conn connTracker
	dialFn := func(dialCtx context.Context, network, addr string) (net.Conn, error) {
		var d net.Dialer

		c, err := d.DialContext(dialCtx, network, addr)
		if err != nil {
			return nil, err
		}

		// go-mail does not set a deadline for the greeting and the
		// EHLO exchange.
		if err := c.SetDeadline(time.Now().Add(t.timeout)); err != nil {
			_ = c.Close()
			return nil, err
		}

		conn.set(c)
		return c, nil
	}

	opts := []mail.Option{
		mail.WithPort(t.port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(t.user),
		mail.WithPassword(t.password),
		mail.WithTimeout(t.timeout),
		mail.WithDialContextFunc(dialFn),
	}
	if t.tlsCfg != nil {
		opts = append(opts, mail.WithTLSConfig(t.tlsCfg))
	}

	clt, err := mail.NewClient(t.host, opts...)
	if err != nil {
		return mailerr.NewSendError(mailerr.StageConnect, err)
	}

	connected := false
	defer func() {
		if connected {
			if err := clt.Close(); err != nil {
				t.logger.Debug(
					"sending QUIT to smtp server failed",
					logfields.Event("smtp_quit_failed"),
					zap.Error(err),
				)
			}
		}

		if err := conn.close(); err != nil {
			t.logger.Debug(
				"closing smtp connection failed",
				logfields.Event("smtp_connection_closing_failed"),
				zap.Error(err),
			)
		}
	}()

	stop := context.AfterFunc(ctx, func() { _ = conn.close() })
	defer stop()

	if err := clt.DialWithContext(ctx); err != nil {
		return mailerr.NewSendError(
			mailerr.StageConnect,
			fmt.Errorf("connecting to %s:%d failed: %w", t.host, t.port, err),
		)
	}
	connected = true

	if err := clt.Send(m); err != nil {
		return mailerr.NewSendError(mailerr.StageSend, err)
	}

	return nil
}
