package github

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/go-github/v43/github"
	"go.uber.org/zap"

	"github.com/simplesurance/commitmailer/internal/logfields"
	"github.com/simplesurance/commitmailer/internal/notify"
	"github.com/simplesurance/commitmailer/internal/provider"
)

const loggerName = "github-event-provider"

// MaxPayloadSize is the maximum accepted size of a webhook request body.
// GitHub caps payloads at 25MB.
const MaxPayloadSize = 25 << 20

const pingEventType = "ping"

// Response messages
const (
	MsgInvalidSignature  = "Invalid signature"
	MsgPong              = "Pong!"
	MsgEventNotSupported = "Event not supported"
	MsgReceived          = "Received"
	MsgMethodNotAllowed  = "Method not allowed"
	MsgPayloadTooLarge   = "Payload too large"
	MsgReadingBodyFailed = "Reading request body failed"
)

//go:generate mockgen -destination=mocks/notifier.go -package=mocks . Notifier

// Notifier sends a notification about pushed commits.
type Notifier interface {
	Notify(ctx context.Context, commits []*notify.Commit, repository, pusher string) error
}

// Provider handles github-webhook http-requests.
// It authenticates requests via their HMAC-SHA256 signature and forwards
// push events that contain commits to a Notifier.
type Provider struct {
	logging       *zap.Logger
	webhookSecret []byte
	notifier      Notifier
}

type option func(*Provider)

func WithPayloadSecret(secret string) option {
	return func(p *Provider) {
		p.webhookSecret = []byte(secret)
	}
}

func New(notifier Notifier, opts ...option) *Provider {
	p := Provider{
		notifier: notifier,
	}

	for _, o := range opts {
		o(&p)
	}

	if p.logging == nil {
		p.logging = zap.L().Named(loggerName)
	}

	return &p
}

type response struct {
	Msg string `json:"msg"`
}

func (p *Provider) respond(logger *zap.Logger, resp http.ResponseWriter, statusCode int, msg string) {
	resp.Header().Set("Content-Type", "application/json")
	resp.WriteHeader(statusCode)

	if err := json.NewEncoder(resp).Encode(&response{Msg: msg}); err != nil {
		logger.Info(
			"sending http response failed",
			logfields.Event("github_http_response_sending_failed"),
			zap.Error(err),
		)
	}
}

func newInboundEvent(req *http.Request, body []byte) *provider.InboundEvent {
	ev := provider.InboundEvent{
		Body:       body,
		Provider:   "github",
		Signature:  req.Header.Get(SignatureHeader),
		EventType:  github.WebHookType(req),
		DeliveryID: github.DeliveryID(req),
	}

	// only an absent header defaults to ping, an empty value is an
	// unsupported event type
	if len(req.Header.Values(github.EventTypeHeader)) == 0 {
		ev.EventType = pingEventType
	}

	return &ev
}

func (p *Provider) HTTPHandler(resp http.ResponseWriter, req *http.Request) {
	logger := p.logging.With(
		logfields.EventProvider("github"),
		logfields.DeliveryID(github.DeliveryID(req)),
	)

	logger.Debug("received a http request", logfields.Event("github_http_request_received"))

	if req.Method != http.MethodPost {
		logger.Info(
			"received http request with unsupported method",
			logfields.Event("github_http_request_method_not_allowed"),
			zap.String("http_method", req.Method),
		)

		resp.Header().Set("Allow", http.MethodPost)
		p.respond(logger, resp, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(req.Body, MaxPayloadSize+1))
	if err != nil {
		logger.Info(
			"reading http request body failed",
			logfields.Event("github_http_request_reading_failed"),
			zap.Error(err),
		)

		p.respond(logger, resp, http.StatusBadRequest, MsgReadingBodyFailed)
		return
	}

	if len(body) > MaxPayloadSize {
		logger.Info(
			"received http request with too large body",
			logfields.Event("github_http_request_too_large"),
			zap.Int("max_payload_size", MaxPayloadSize),
		)

		p.respond(logger, resp, http.StatusRequestEntityTooLarge, MsgPayloadTooLarge)
		return
	}

	ev := newInboundEvent(req, body)
	logger = p.logging.With(ev.LogFields()...)

	if !VerifySignature(ev.Body, p.webhookSecret, ev.Signature) {
		metrics.SignatureRejectedInc()

		logger.Info(
			"received invalid http request, signature verification failed",
			logfields.Event("github_http_request_validation_failed"),
			zap.Bool("signature_header_present", ev.Signature != ""),
		)

		p.respond(logger, resp, http.StatusForbidden, MsgInvalidSignature)
		return
	}

	metrics.EventReceivedInc(ev.EventType)

	switch ev.EventType {
	case pingEventType:
		logger.Debug("received ping event", logfields.Event("github_ping_received"))
		p.respond(logger, resp, http.StatusOK, MsgPong)

	case pushEventType:
		p.handlePush(req.Context(), logger, ev)
		p.respond(logger, resp, http.StatusOK, MsgReceived)

	default:
		logger.Info(
			"ignoring event, event type is unsupported",
			logfields.Event("github_unsupported_event_received"),
		)
		p.respond(logger, resp, http.StatusOK, MsgEventNotSupported)
	}
}

// handlePush sends a notification for a push event, if it contains commits.
// Errors are logged and not returned, the webhook sender always gets a
// success response for a valid push event.
func (p *Provider) handlePush(ctx context.Context, logger *zap.Logger, ev *provider.InboundEvent) {
	pushEv, err := ParsePushEvent(ev.Body)
	if err != nil {
		logger.Info(
			"parsing push event payload failed, continuing with defaults",
			logfields.Event("github_push_event_parsing_failed"),
			zap.Error(err),
		)
	}

	logger = logger.With(pushEv.LogFields()...)

	if len(pushEv.Commits) == 0 {
		logger.Debug(
			"push event contains no commits, not sending notification",
			logfields.Event("github_push_event_without_commits"),
		)
		return
	}

	// delivery failures are not reported to the webhook sender
	if err := p.notifier.Notify(ctx, pushEv.Commits, pushEv.Repository, pushEv.Pusher); err != nil {
		logger.Error(
			"sending notification failed",
			logfields.Event("notification_sending_failed"),
			zap.Error(err),
		)
	}
}
