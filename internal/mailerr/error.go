// Package mailerr provides the error type returned when sending a
// notification mail fails.
package mailerr

import (
	"errors"
	"fmt"
)

// Stage is the phase of a mail delivery in which an error happened.
type Stage string

const (
	// StageMessage is used when the mail message could not be built,
	// e.g. because of an invalid address.
	StageMessage Stage = "message"
	// StageConnect is used when connecting, the STARTTLS upgrade or the
	// authentication with the relay failed.
	StageConnect Stage = "connect"
	// StageSend is used when the relay did not accept the message.
	StageSend Stage = "send"
)

type SendError struct {
	// Err is the wrapped original error
	Err   error
	Stage Stage
}

func NewSendError(stage Stage, originalErr error) *SendError {
	return &SendError{
		Err:   originalErr,
		Stage: stage,
	}
}

func (e *SendError) Unwrap() error {
	return e.Err
}

func (e *SendError) Error() string {
	return fmt.Sprintf("sending mail failed (stage: %s): %s", e.Stage, e.Err)
}

// AsSendError returns the first SendError in err's chain.
// If err does not wrap a SendError, it is wrapped into one with StageSend.
func AsSendError(err error) *SendError {
	var sendErr *SendError

	if errors.As(err, &sendErr) {
		return sendErr
	}

	return NewSendError(StageSend, err)
}
