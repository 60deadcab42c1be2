package message

import "fmt"

// RouteResponse is the shared response layout of the return route functions:
// a single byte telling whether the controller started the operation.
type RouteResponse struct {
	function FunctionType
	Started  bool
}

func (*RouteResponse) Type() MessageType        { return TypeResponse }
func (r *RouteResponse) Function() FunctionType { return r.function }
func (r *RouteResponse) IsSuccess() bool        { return r.Started }

func decodeRouteResponse(fn FunctionType) func([]byte) (Message, error) {
	return func(p []byte) (Message, error) {
		r := newReader(p)
		out := &RouteResponse{function: fn, Started: r.u8() != 0}
		return out, r.err
	}
}

// RouteCallback is the shared completion layout of the return route
// functions: [callback id][transmit status].
type RouteCallback struct {
	function       FunctionType
	callbackID     uint8
	TransmitStatus TransmitStatus
}

func (*RouteCallback) Type() MessageType        { return TypeRequest }
func (c *RouteCallback) Function() FunctionType { return c.function }
func (c *RouteCallback) CallbackID() uint8      { return c.callbackID }
func (c *RouteCallback) IsSuccess() bool        { return c.TransmitStatus == TransmitOK }

func decodeRouteCallback(fn FunctionType) func([]byte) (Message, error) {
	return func(p []byte) (Message, error) {
		r := newReader(p)
		out := &RouteCallback{function: fn, callbackID: r.u8(), TransmitStatus: TransmitStatus(r.u8())}
		if r.err != nil {
			return nil, r.err
		}
		return out, nil
	}
}

// AssignReturnRouteRequest tells NodeID how to reach DestinationNodeID.
// Assigning a route on the controller itself completes with the response;
// no callback follows.
type AssignReturnRouteRequest struct {
	NodeID            uint8
	DestinationNodeID uint8
}

func (AssignReturnRouteRequest) Function() FunctionType { return FuncAssignReturnRoute }
func (AssignReturnRouteRequest) ExpectsResponse() bool  { return true }
func (AssignReturnRouteRequest) MatchesResponse(m Message) bool {
	return isResponseTo(FuncAssignReturnRoute, m)
}
func (r AssignReturnRouteRequest) ExpectsCallback(h Host) bool {
	return h == nil || r.NodeID != h.OwnNodeID()
}
func (AssignReturnRouteRequest) MatchesCallback(callbackID uint8, m Message) bool {
	return isCallbackFor(FuncAssignReturnRoute, callbackID, m)
}
func (r AssignReturnRouteRequest) TargetNodeID() uint8 { return r.NodeID }

func (r AssignReturnRouteRequest) MarshalPayload(callbackID uint8) ([]byte, error) {
	if r.NodeID == 0 || r.DestinationNodeID == 0 {
		return nil, fmt.Errorf("%w: assign return route node=%d destination=%d",
			ErrInvalidRequest, r.NodeID, r.DestinationNodeID)
	}
	return []byte{r.NodeID, r.DestinationNodeID, callbackID}, nil
}

func decodeAssignReturnRouteRequest(p []byte) (Message, error) {
	r := newReader(p)
	req := AssignReturnRouteRequest{NodeID: r.u8(), DestinationNodeID: r.u8()}
	cb := r.u8()
	if r.err != nil {
		return nil, r.err
	}
	return Prepare(req, cb)
}

type DeleteReturnRouteRequest struct {
	NodeID uint8
}

func (DeleteReturnRouteRequest) Function() FunctionType { return FuncDeleteReturnRoute }
func (DeleteReturnRouteRequest) ExpectsResponse() bool  { return true }
func (DeleteReturnRouteRequest) MatchesResponse(m Message) bool {
	return isResponseTo(FuncDeleteReturnRoute, m)
}
func (DeleteReturnRouteRequest) ExpectsCallback(Host) bool { return true }
func (DeleteReturnRouteRequest) MatchesCallback(callbackID uint8, m Message) bool {
	return isCallbackFor(FuncDeleteReturnRoute, callbackID, m)
}
func (r DeleteReturnRouteRequest) TargetNodeID() uint8 { return r.NodeID }

func (r DeleteReturnRouteRequest) MarshalPayload(callbackID uint8) ([]byte, error) {
	if r.NodeID == 0 {
		return nil, fmt.Errorf("%w: delete return route needs a node id", ErrInvalidRequest)
	}
	return []byte{r.NodeID, callbackID}, nil
}

// AssignSUCReturnRouteRequest gives NodeID a route to the SUC. Some firmware
// reports its completion with the DeleteSUCReturnRoute function code.
type AssignSUCReturnRouteRequest struct {
	NodeID uint8
}

func (AssignSUCReturnRouteRequest) Function() FunctionType { return FuncAssignSUCReturnRoute }
func (AssignSUCReturnRouteRequest) ExpectsResponse() bool  { return true }
func (AssignSUCReturnRouteRequest) MatchesResponse(m Message) bool {
	return isResponseTo(FuncAssignSUCReturnRoute, m)
}
func (AssignSUCReturnRouteRequest) ExpectsCallback(Host) bool { return true }
func (AssignSUCReturnRouteRequest) MatchesCallback(callbackID uint8, m Message) bool {
	return isCallbackFor(FuncAssignSUCReturnRoute, callbackID, m)
}
func (AssignSUCReturnRouteRequest) CallbackAliases() []FunctionType {
	return []FunctionType{FuncDeleteSUCReturnRoute}
}
func (r AssignSUCReturnRouteRequest) TargetNodeID() uint8 { return r.NodeID }

func (r AssignSUCReturnRouteRequest) MarshalPayload(callbackID uint8) ([]byte, error) {
	if r.NodeID == 0 {
		return nil, fmt.Errorf("%w: assign SUC return route needs a node id", ErrInvalidRequest)
	}
	return []byte{r.NodeID, callbackID}, nil
}

type DeleteSUCReturnRouteRequest struct {
	NodeID uint8
}

func (DeleteSUCReturnRouteRequest) Function() FunctionType { return FuncDeleteSUCReturnRoute }
func (DeleteSUCReturnRouteRequest) ExpectsResponse() bool  { return true }
func (DeleteSUCReturnRouteRequest) MatchesResponse(m Message) bool {
	return isResponseTo(FuncDeleteSUCReturnRoute, m)
}
func (DeleteSUCReturnRouteRequest) ExpectsCallback(Host) bool { return true }
func (DeleteSUCReturnRouteRequest) MatchesCallback(callbackID uint8, m Message) bool {
	return isCallbackFor(FuncDeleteSUCReturnRoute, callbackID, m)
}
func (r DeleteSUCReturnRouteRequest) TargetNodeID() uint8 { return r.NodeID }

func (r DeleteSUCReturnRouteRequest) MarshalPayload(callbackID uint8) ([]byte, error) {
	if r.NodeID == 0 {
		return nil, fmt.Errorf("%w: delete SUC return route needs a node id", ErrInvalidRequest)
	}
	return []byte{r.NodeID, callbackID}, nil
}
