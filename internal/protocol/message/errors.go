package message

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedOperation          = errors.New("message: unsupported operation")
	ErrDeserializationNotImplemented = errors.New("message: deserialization not implemented")
	ErrTruncatedPayload              = errors.New("message: truncated payload")
	ErrNotDataFrame                  = errors.New("message: not a data frame")
	ErrInvalidRequest                = errors.New("message: invalid request")
	ErrPayloadTooLarge               = errors.New("message: payload too large")
	ErrNoContract                    = errors.New("message: no operation contract")
)

// ParseError describes a data frame the registry could not turn into a
// Message.
type ParseError struct {
	Type     MessageType
	Function FunctionType
	Origin   Origin
	Payload  []byte
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf(
		"message: parse type=%s function=%s origin=%s payload_len=%d: %v",
		e.Type, e.Function, e.Origin, len(e.Payload), e.Err,
	)
}

func (e *ParseError) Unwrap() error { return e.Err }
