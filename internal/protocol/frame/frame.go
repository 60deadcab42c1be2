package frame

import (
	"errors"
	"fmt"
)

// Reserved single-byte values on the Serial API link.
const (
	SOF byte = 0x01
	ACK byte = 0x06
	NAK byte = 0x15
	CAN byte = 0x18
)

const (
	checksumSeed byte = 0xFF
	// MinLength covers type, function and checksum.
	MinLength = 3
	// MaxDataLen is the largest [type][function][payload...] section that fits
	// behind a one-byte length.
	MaxDataLen = 0xFF - 1
)

var (
	ErrFraming      = errors.New("frame: unexpected byte")
	ErrChecksum     = errors.New("frame: checksum mismatch")
	ErrDataTooShort = errors.New("frame: data frame needs type and function")
	ErrDataTooLarge = errors.New("frame: data frame too large")
	ErrUnknownKind  = errors.New("frame: unknown kind")
)

// Kind tags one wire-level unit.
type Kind uint8

const (
	KindAck Kind = iota + 1
	KindNak
	KindCan
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindAck:
		return "ack"
	case KindNak:
		return "nak"
	case KindCan:
		return "can"
	case KindData:
		return "data"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Frame is one complete wire unit. Data holds [type][function][payload...]
// for KindData and is nil for control frames.
type Frame struct {
	Kind Kind
	Data []byte
}

func Ack() Frame { return Frame{Kind: KindAck} }
func Nak() Frame { return Frame{Kind: KindNak} }
func Can() Frame { return Frame{Kind: KindCan} }

// Data builds a data frame from its type, function and payload bytes.
func Data(data []byte) Frame {
	buf := make([]byte, len(data))
	copy(buf, data)
	return Frame{Kind: KindData, Data: buf}
}

// ChecksumError reports a data frame whose trailing byte did not match.
type ChecksumError struct {
	Got  byte
	Want byte
	Raw  []byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("frame: checksum mismatch got=0x%02x want=0x%02x len=%d", e.Got, e.Want, len(e.Raw))
}

func (e *ChecksumError) Unwrap() error { return ErrChecksum }

// Checksum is 0xFF XORed with every byte of b (length through last payload byte).
func Checksum(b []byte) byte {
	sum := checksumSeed
	for _, v := range b {
		sum ^= v
	}
	return sum
}

// Encode renders f as wire bytes, recomputing length and checksum for data frames.
func Encode(f Frame) ([]byte, error) {
	switch f.Kind {
	case KindAck:
		return []byte{ACK}, nil
	case KindNak:
		return []byte{NAK}, nil
	case KindCan:
		return []byte{CAN}, nil
	case KindData:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, f.Kind)
	}
	if len(f.Data) < 2 {
		return nil, ErrDataTooShort
	}
	if len(f.Data) > MaxDataLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrDataTooLarge, len(f.Data))
	}
	buf := make([]byte, 0, len(f.Data)+3)
	buf = append(buf, SOF, byte(len(f.Data)+1))
	buf = append(buf, f.Data...)
	buf = append(buf, Checksum(buf[1:]))
	return buf, nil
}
