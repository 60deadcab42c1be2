package transaction

import (
	"errors"
	"fmt"

	"github.com/danmuck/zwavectl/internal/protocol/message"
)

var (
	ErrCommunicationTimeout = errors.New("transaction: communication timeout")
	ErrCancelled            = errors.New("transaction: cancelled")
	ErrQueueClosed          = errors.New("transaction: queue closed")
	ErrUnparsableReply      = errors.New("transaction: reply could not be parsed")
	ErrWrite                = errors.New("transaction: write failed")
)

// Causes recorded on failed transmissions.
var (
	ErrNak             = errors.New("controller sent NAK")
	ErrCan             = errors.New("controller sent CAN")
	ErrAckTimeout      = errors.New("no ACK from controller")
	ErrResponseTimeout = errors.New("no response from controller")
	ErrCallbackTimeout = errors.New("no callback from controller")
)

// ErrorKind classifies a failed transaction.
type ErrorKind uint8

const (
	KindTimeout ErrorKind = iota + 1
	KindCancelled
	KindUnparsable
	KindWrite
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindTimeout:
		return ErrCommunicationTimeout
	case KindCancelled:
		return ErrCancelled
	case KindUnparsable:
		return ErrUnparsableReply
	case KindWrite:
		return ErrWrite
	default:
		return nil
	}
}

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindCancelled:
		return "cancelled"
	case KindUnparsable:
		return "unparsable"
	case KindWrite:
		return "write"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Error is the failure delivered to the submitter of a transaction.
// errors.Is matches both the kind sentinel and the cause.
type Error struct {
	Kind       ErrorKind
	Function   message.FunctionType
	CallbackID uint8
	Attempts   int
	// Stage is the state the transaction was in when it failed.
	Stage State
	Cause error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf(
		"transaction: %s function=%s callback_id=%d attempts=%d stage=%s",
		e.Kind, e.Function, e.CallbackID, e.Attempts, e.Stage,
	)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		out = append(out, s)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}
