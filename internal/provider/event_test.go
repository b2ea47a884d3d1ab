package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInboundEventLogFieldsOmitEmptyValues(t *testing.T) {
	ev := InboundEvent{
		Provider:  "github",
		EventType: "push",
		Body:      []byte("{}"),
		Signature: "sha256=abc",
	}

	fields := ev.LogFields()
	assert.Len(t, fields, 2)

	for _, f := range fields {
		assert.NotEqual(t, "sha256=abc", f.String, "signature must not be logged")
	}

	assert.Equal(t, "github/push (deliveryID: )", ev.String())
}
