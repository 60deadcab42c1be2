package message

import "fmt"

// SuccessReporter is implemented by received messages that carry an
// operation status.
type SuccessReporter interface {
	IsSuccess() bool
}

// Succeeded classifies the semantic outcome of a received message. It is
// independent of transaction completion: a resolved transaction may carry a
// message that reports failure. Messages without a status, and nil (an
// ack-only operation), count as success.
func Succeeded(m Message) bool {
	if m == nil {
		return true
	}
	if s, ok := m.(SuccessReporter); ok {
		return s.IsSuccess()
	}
	return true
}

// TransmitStatus is the radio-level outcome reported in transmit callbacks.
type TransmitStatus uint8

const (
	TransmitOK      TransmitStatus = 0x00
	TransmitNoAck   TransmitStatus = 0x01
	TransmitFail    TransmitStatus = 0x02
	TransmitNotIdle TransmitStatus = 0x03
	TransmitNoRoute TransmitStatus = 0x04
)

func (s TransmitStatus) String() string {
	switch s {
	case TransmitOK:
		return "ok"
	case TransmitNoAck:
		return "no_ack"
	case TransmitFail:
		return "fail"
	case TransmitNotIdle:
		return "not_idle"
	case TransmitNoRoute:
		return "no_route"
	default:
		return fmt.Sprintf("transmit_status(0x%02x)", uint8(s))
	}
}
