package frame

import "iter"

// EventKind classifies what the decoder produced for a run of bytes.
type EventKind uint8

const (
	EventFrame EventKind = iota + 1
	// EventInvalid is a complete data frame with a bad checksum; answer with NAK.
	EventInvalid
	// EventDiscarded is one byte that starts no known unit.
	EventDiscarded
)

func (k EventKind) String() string {
	switch k {
	case EventFrame:
		return "frame"
	case EventInvalid:
		return "invalid"
	case EventDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Event is one decoder output. Frame is set for EventFrame; Raw and Err
// describe the rejected bytes otherwise.
type Event struct {
	Kind  EventKind
	Frame Frame
	Raw   []byte
	Err   error
}

// Decoder reassembles frames from a byte stream. It is not safe for
// concurrent use; the driver's reader goroutine owns it.
type Decoder struct {
	buf []byte
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends p to the buffered stream and returns the events it completes.
// Events are produced lazily: bytes behind an event the caller did not pull
// stay buffered for the next Feed.
func (d *Decoder) Feed(p []byte) iter.Seq[Event] {
	d.buf = append(d.buf, p...)
	return func(yield func(Event) bool) {
		for {
			ev, ok := d.next()
			if !ok {
				return
			}
			if !yield(ev) {
				return
			}
		}
	}
}

// Pending reports how many bytes of an incomplete frame are buffered.
func (d *Decoder) Pending() int {
	return len(d.buf)
}

// Reset drops buffered bytes and returns them.
func (d *Decoder) Reset() []byte {
	out := d.buf
	d.buf = nil
	return out
}

func (d *Decoder) next() (Event, bool) {
	if len(d.buf) == 0 {
		return Event{}, false
	}
	switch b := d.buf[0]; b {
	case ACK:
		d.consume(1)
		return Event{Kind: EventFrame, Frame: Ack()}, true
	case NAK:
		d.consume(1)
		return Event{Kind: EventFrame, Frame: Nak()}, true
	case CAN:
		d.consume(1)
		return Event{Kind: EventFrame, Frame: Can()}, true
	case SOF:
		return d.nextData()
	default:
		d.consume(1)
		return Event{Kind: EventDiscarded, Raw: []byte{b}, Err: ErrFraming}, true
	}
}

func (d *Decoder) nextData() (Event, bool) {
	if len(d.buf) < 2 {
		return Event{}, false
	}
	length := int(d.buf[1])
	if length < MinLength {
		d.consume(1)
		return Event{Kind: EventDiscarded, Raw: []byte{SOF}, Err: ErrFraming}, true
	}
	total := length + 2
	if len(d.buf) < total {
		return Event{}, false
	}
	raw := make([]byte, total)
	copy(raw, d.buf[:total])
	d.consume(total)

	want := Checksum(raw[1 : total-1])
	if got := raw[total-1]; got != want {
		return Event{
			Kind: EventInvalid,
			Raw:  raw,
			Err:  &ChecksumError{Got: got, Want: want, Raw: raw},
		}, true
	}
	return Event{Kind: EventFrame, Frame: Frame{Kind: KindData, Data: raw[2 : total-1]}}, true
}

func (d *Decoder) consume(n int) {
	d.buf = d.buf[:copy(d.buf, d.buf[n:])]
}
