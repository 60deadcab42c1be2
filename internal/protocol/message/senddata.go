package message

import "fmt"

// TransmitOptions are the radio flags attached to SendData.
type TransmitOptions uint8

const (
	TransmitOptionACK       TransmitOptions = 0x01
	TransmitOptionLowPower  TransmitOptions = 0x02
	TransmitOptionAutoRoute TransmitOptions = 0x04
	TransmitOptionNoRoute   TransmitOptions = 0x10
	TransmitOptionExplore   TransmitOptions = 0x20

	DefaultTransmitOptions = TransmitOptionACK | TransmitOptionAutoRoute | TransmitOptionExplore
)

// SendDataRequest transmits an already encoded command to one node. The
// payload is opaque here; command class encoding and encryption happen
// upstream.
type SendDataRequest struct {
	NodeID          uint8
	Payload         []byte
	TransmitOptions TransmitOptions
}

func (SendDataRequest) Function() FunctionType { return FuncSendData }
func (SendDataRequest) ExpectsResponse() bool  { return true }
func (SendDataRequest) MatchesResponse(m Message) bool {
	return isResponseTo(FuncSendData, m)
}
func (SendDataRequest) ExpectsCallback(Host) bool { return true }
func (SendDataRequest) MatchesCallback(callbackID uint8, m Message) bool {
	return isCallbackFor(FuncSendData, callbackID, m)
}
func (r SendDataRequest) TargetNodeID() uint8 { return r.NodeID }

func (r SendDataRequest) MarshalPayload(callbackID uint8) ([]byte, error) {
	if r.NodeID == 0 {
		return nil, fmt.Errorf("%w: send data needs a node id", ErrInvalidRequest)
	}
	if len(r.Payload) > 0xFF {
		return nil, fmt.Errorf("%w: send data payload=%d", ErrPayloadTooLarge, len(r.Payload))
	}
	out := make([]byte, 0, len(r.Payload)+4)
	out = append(out, r.NodeID, byte(len(r.Payload)))
	out = append(out, r.Payload...)
	out = append(out, byte(r.TransmitOptions), callbackID)
	return out, nil
}

func decodeSendDataRequest(p []byte) (Message, error) {
	r := newReader(p)
	req := SendDataRequest{NodeID: r.u8()}
	req.Payload = r.bytes(int(r.u8()))
	req.TransmitOptions = TransmitOptions(r.u8())
	cb := r.u8()
	if r.err != nil {
		return nil, r.err
	}
	return Prepare(req, cb)
}

// SendDataResponse tells whether the controller queued the frame. When it did
// not, no callback follows.
type SendDataResponse struct {
	Queued bool
}

func (*SendDataResponse) Type() MessageType      { return TypeResponse }
func (*SendDataResponse) Function() FunctionType { return FuncSendData }
func (r *SendDataResponse) IsSuccess() bool      { return r.Queued }

func decodeSendDataResponse(p []byte) (Message, error) {
	r := newReader(p)
	out := &SendDataResponse{Queued: r.u8() != 0}
	return out, r.err
}

// SendDataCallback reports the radio outcome of a SendData. A NoAck status is
// a semantic failure of the transmission; the transaction itself completed.
type SendDataCallback struct {
	callbackID     uint8
	TransmitStatus TransmitStatus
	// Report holds the optional transmit report bytes (timing, RSSI, routes).
	Report []byte
}

func (*SendDataCallback) Type() MessageType      { return TypeRequest }
func (*SendDataCallback) Function() FunctionType { return FuncSendData }
func (c *SendDataCallback) CallbackID() uint8    { return c.callbackID }
func (c *SendDataCallback) IsSuccess() bool      { return c.TransmitStatus == TransmitOK }

func decodeSendDataCallback(p []byte) (Message, error) {
	r := newReader(p)
	out := &SendDataCallback{callbackID: r.u8(), TransmitStatus: TransmitStatus(r.u8())}
	if r.err != nil {
		return nil, r.err
	}
	if r.remaining() > 0 {
		out.Report = r.rest()
	}
	return out, nil
}

// SendDataAbortRequest aborts the SendData the controller is working on. The
// aborted SendData still receives its callback.
type SendDataAbortRequest struct {
	noResponse
	noCallback
}

func (SendDataAbortRequest) Function() FunctionType               { return FuncSendDataAbort }
func (SendDataAbortRequest) MarshalPayload(uint8) ([]byte, error) { return nil, nil }
