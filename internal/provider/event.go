package provider

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/simplesurance/commitmailer/internal/logfields"
)

// InboundEvent is a received webhook request.
type InboundEvent struct {
	Body     []byte
	Provider string

	// Signature is the value of the signature header, it is empty if the
	// header was not sent.
	Signature string
	// EventType is the type of the event, if the request did not specify
	// it, it is "ping".
	EventType string
	// DeliveryID is the unique ID of the delivery, empty if not available
	DeliveryID string
}

func (e *InboundEvent) String() string {
	return fmt.Sprintf("%s/%s (deliveryID: %s)", e.Provider, e.EventType, e.DeliveryID)
}

func (e *InboundEvent) LogFields() []zap.Field {
	fields := make([]zap.Field, 0, 3) // cap == max. size of fields we append

	if e.Provider != "" {
		fields = append(fields, logfields.EventProvider(e.Provider))
	}

	if e.DeliveryID != "" {
		fields = append(fields, logfields.DeliveryID(e.DeliveryID))
	}

	if e.EventType != "" {
		fields = append(fields, logfields.WebhookType(e.EventType))
	}

	return fields
}
