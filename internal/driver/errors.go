package driver

import (
	"errors"
	"fmt"

	"github.com/r30x/fpdriver/internal/fpproto"
)

// ArgumentError reports a caller-side range or shape violation, checked
// before any wire call is made. Never retried by the driver.
type ArgumentError struct {
	Field string
	Msg   string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("fpdriver: argument %s: %s", e.Field, e.Msg)
}

// ReceptionFailure means no ACK arrived within the response timeout.
type ReceptionFailure struct{ Command string }

func (e *ReceptionFailure) Error() string {
	return fmt.Sprintf("fpdriver: no ack for %s within response timeout", e.Command)
}

// BulkTimeout means an ACK was received but END_OF_DATA never followed
// within one quiescence window.
type BulkTimeout struct{ Command string }

func (e *BulkTimeout) Error() string {
	return fmt.Sprintf("fpdriver: bulk transfer for %s timed out waiting for end-of-data", e.Command)
}

// CommunicationError surfaces the sensor's own ERROR_PACKET_TRANSMISSION
// report.
type CommunicationError struct{ Command string }

func (e *CommunicationError) Error() string {
	return fmt.Sprintf("fpdriver: %s: sensor reported a transmission error", e.Command)
}

// WrongAddress surfaces an ERROR_ADDRESS ack, hinting the session's
// cached address does not match the sensor.
type WrongAddress struct{ Command string }

func (e *WrongAddress) Error() string {
	return fmt.Sprintf("fpdriver: %s: sensor rejected the frame address", e.Command)
}

// PasswordRequired surfaces an ERROR_PASSWORD ack.
type PasswordRequired struct{ Command string }

func (e *PasswordRequired) Error() string {
	return fmt.Sprintf("fpdriver: %s: sensor requires password verification", e.Command)
}

// TransactionError wraps any other non-success ack code.
type TransactionError struct {
	Command string
	Code    fpproto.ErrorCode
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("fpdriver: %s: sensor returned %s (0x%02x)", e.Command, e.Code, uint8(e.Code))
}

// errDisconnected is returned for any command issued while the driver
// believes the sensor is disconnected.
var errDisconnected = errors.New("fpdriver: sensor is disconnected")

// errTransmitTimeout is the transmit-and-wait primitive's internal
// timeout signal; command_get turns it into a *ReceptionFailure.
var errTransmitTimeout = errors.New("fpdriver: transmit-and-wait timed out")

// fatalAckError maps the three ack codes that are fatal regardless of
// data_wait. Any other code is left for the caller's final
// ack.code ∉ {SUCCESS, HANDSHAKE_SUCCESS} check.
func fatalAckError(command string, code fpproto.ErrorCode) error {
	switch code {
	case fpproto.ErrPacketTransmission:
		return &CommunicationError{Command: command}
	case fpproto.ErrAddress:
		return &WrongAddress{Command: command}
	case fpproto.ErrPassword:
		return &PasswordRequired{Command: command}
	default:
		return nil
	}
}
