package notify_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/simplesurance/commitmailer/internal/mailerr"
	"github.com/simplesurance/commitmailer/internal/notify"
)

// closedLocalPort returns a local TCP port that nothing listens on.
func closedLocalPort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	return port
}

func TestSMTPTransportConnectFailure(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	transport := notify.NewSMTPTransport(
		"127.0.0.1",
		closedLocalPort(t),
		sender,
		"pw",
		notify.WithSMTPTimeout(2*time.Second),
	)

	err := transport.Send(context.Background(), &notify.Message{
		From:    sender,
		To:      recipient,
		Subject: "subject",
		Body:    "body",
	})
	require.Error(t, err)

	var sendErr *mailerr.SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, mailerr.StageConnect, sendErr.Stage)
}

func TestSMTPTransportInvalidRecipient(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	transport := notify.NewSMTPTransport("127.0.0.1", closedLocalPort(t), sender, "pw")

	err := transport.Send(context.Background(), &notify.Message{
		From: sender,
		To:   "not an address",
	})

	var sendErr *mailerr.SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, mailerr.StageMessage, sendErr.Stage)
}

func TestDispatcherWithUnreachableRelay(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t)))

	transport := notify.NewSMTPTransport(
		"127.0.0.1",
		closedLocalPort(t),
		sender,
		"pw",
		notify.WithSMTPTimeout(2*time.Second),
	)
	d := notify.NewDispatcher(transport, sender, recipient)

	err := d.Notify(
		context.Background(),
		[]*notify.Commit{{ID: "abcdef1234", Message: "fix bug", URL: "http://x/1"}},
		"acme/repo",
		"alice",
	)

	var sendErr *mailerr.SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, mailerr.StageConnect, sendErr.Stage)
}
