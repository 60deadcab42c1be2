package message

import (
	"fmt"

	"github.com/danmuck/zwavectl/internal/protocol/frame"
)

// Prepared is a request with its callback id assigned and its payload
// encoded. It is the only form of a request that can be turned into wire
// bytes.
type Prepared struct {
	request    Request
	callbackID uint8
	payload    []byte
}

// Prepare encodes req with callbackID. The transaction queue calls it after
// reserving an id; callbackID is 0 when no callback is expected.
func Prepare(req Request, callbackID uint8) (*Prepared, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", ErrInvalidRequest)
	}
	payload, err := req.MarshalPayload(callbackID)
	if err != nil {
		return nil, fmt.Errorf("message: prepare %s: %w", req.Function(), err)
	}
	if len(payload)+2 > frame.MaxDataLen {
		return nil, fmt.Errorf("%w: %s payload=%d", ErrPayloadTooLarge, req.Function(), len(payload))
	}
	return &Prepared{request: req, callbackID: callbackID, payload: payload}, nil
}

func (p *Prepared) Type() MessageType      { return TypeRequest }
func (p *Prepared) Function() FunctionType { return p.request.Function() }
func (p *Prepared) Request() Request       { return p.request }
func (p *Prepared) CallbackID() uint8      { return p.callbackID }

func (p *Prepared) Payload() []byte {
	return cloneBytes(p.payload)
}

func (p *Prepared) Frame() frame.Frame {
	data := make([]byte, 0, len(p.payload)+2)
	data = append(data, byte(TypeRequest), byte(p.Function()))
	data = append(data, p.payload...)
	return frame.Frame{Kind: frame.KindData, Data: data}
}

// Bytes returns the complete data frame including SOF, length and checksum.
func (p *Prepared) Bytes() ([]byte, error) {
	return frame.Encode(p.Frame())
}

func (p *Prepared) String() string {
	return fmt.Sprintf("%s callback_id=%d payload=% x", p.Function(), p.callbackID, p.payload)
}
