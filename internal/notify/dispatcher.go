// Package notify formats push notifications and delivers them as mail.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/simplesurance/commitmailer/internal/logfields"
	"github.com/simplesurance/commitmailer/internal/mailerr"
)

const loggerName = "notifier"

// DefaultNotifyTimeout is the maximum duration of a single Notify call.
const DefaultNotifyTimeout = time.Minute

// Dispatcher sends a notification mail about pushed commits to a single
// recipient.
// It is safe for concurrent use, if the Transport is.
type Dispatcher struct {
	logger    *zap.Logger
	transport Transport
	from      string
	to        string
	timeout   time.Duration
}

type option func(*Dispatcher)

// WithNotifyTimeout sets the maximum duration of a Notify call.
func WithNotifyTimeout(timeout time.Duration) option {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

func NewDispatcher(transport Transport, from, to string, opts ...option) *Dispatcher {
	d := Dispatcher{
		transport: transport,
		from:      from,
		to:        to,
		timeout:   DefaultNotifyTimeout,
	}

	for _, o := range opts {
		o(&d)
	}

	if d.logger == nil {
		d.logger = zap.L().Named(loggerName)
	}

	return &d
}

// NewMessage returns the notification mail for commits that were pushed by
// pusher to repository.
func (d *Dispatcher) NewMessage(commits []*Commit, repository, pusher string) *Message {
	return &Message{
		From:    d.from,
		To:      d.to,
		Subject: Subject(repository, pusher),
		Body:    Body(commits, repository, pusher),
	}
}

// Notify sends one notification mail about commits.
// The delivery is attempted exactly once. Cancellation of ctx is ignored,
// the delivery is instead aborted when the timeout of the Dispatcher expires.
// On failure a *mailerr.SendError is returned.
func (d *Dispatcher) Notify(ctx context.Context, commits []*Commit, repository, pusher string) error {
	logger := d.logger.With(
		logfields.Repository(repository),
		logfields.Pusher(pusher),
		logfields.CommitCount(len(commits)),
	)

	msg := d.NewMessage(commits, repository, pusher)

	ctx, cancelFn := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancelFn()

	logger.Debug("sending notification", logfields.Event("notification_sending"))

	if err := d.transport.Send(ctx, msg); err != nil {
		sendErr := mailerr.AsSendError(err)
		metrics.NotificationFailed(sendErr.Stage)
		return sendErr
	}

	metrics.NotificationSent(len(commits))

	logger.Info("notification sent", logfields.Event("notification_sent"))

	return nil
}
