package mailerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendErrorUnwrap(t *testing.T) {
	origErr := errors.New("connection refused")
	err := fmt.Errorf("notifying: %w", NewSendError(StageConnect, origErr))

	assert.ErrorIs(t, err, origErr)
	assert.Contains(t, err.Error(), "stage: connect")

	sendErr := AsSendError(err)
	require.NotNil(t, sendErr)
	assert.Equal(t, StageConnect, sendErr.Stage)
}

func TestAsSendErrorWrapsForeignError(t *testing.T) {
	origErr := errors.New("err")

	sendErr := AsSendError(origErr)
	require.NotNil(t, sendErr)
	assert.Equal(t, StageSend, sendErr.Stage)
	assert.ErrorIs(t, sendErr, origErr)
}
