package message

import (
	"errors"
	"fmt"

	"github.com/danmuck/zwavectl/internal/protocol/frame"
)

// ParseContext tells a ParseFunc which side produced the payload.
type ParseContext struct {
	Origin Origin
}

// ParseFunc builds a Message from a data frame payload. It has no side
// effects.
type ParseFunc func(payload []byte, ctx ParseContext) (Message, error)

type registryKey struct {
	Type     MessageType
	Function FunctionType
}

type registration struct {
	Type     MessageType
	Function FunctionType
	Parse    ParseFunc
}

var registrations = []registration{
	{TypeRequest, FuncGetSerialAPIInitData, hostOnly(decodeEmptyRequest(GetSerialAPIInitDataRequest{}))},
	{TypeRequest, FuncApplicationCommand, controllerOnly(decodeApplicationCommandRequest)},
	{TypeRequest, FuncGetControllerCapabilities, hostOnly(decodeEmptyRequest(GetControllerCapabilitiesRequest{}))},
	{TypeRequest, FuncGetSerialAPICapabilities, hostOnly(decodeEmptyRequest(GetSerialAPICapabilitiesRequest{}))},
	{TypeRequest, FuncSoftReset, hostOnly(decodeEmptyRequest(SoftResetRequest{}))},
	{TypeRequest, FuncSerialAPIStarted, controllerOnly(decodeSerialAPIStarted)},
	{TypeRequest, FuncSendData, byOrigin(decodeSendDataRequest, decodeSendDataCallback)},
	{TypeRequest, FuncGetControllerVersion, hostOnly(decodeEmptyRequest(GetControllerVersionRequest{}))},
	{TypeRequest, FuncSendDataAbort, hostOnly(decodeEmptyRequest(SendDataAbortRequest{}))},
	{TypeRequest, FuncGetControllerID, hostOnly(decodeEmptyRequest(GetControllerIDRequest{}))},
	{TypeRequest, FuncNVMBackupRestore, hostOnly(decodeNVMBackupRestoreRequest)},
	{TypeRequest, FuncGetNodeProtocolInfo, hostOnly(decodeNodeIDRequest(func(n uint8) Request {
		return GetNodeProtocolInfoRequest{NodeID: n}
	}))},
	{TypeRequest, FuncAssignReturnRoute, byOrigin(
		decodeAssignReturnRouteRequest,
		decodeRouteCallback(FuncAssignReturnRoute),
	)},
	{TypeRequest, FuncDeleteReturnRoute, byOrigin(
		decodeNodeCallbackRequest(func(n uint8) Request { return DeleteReturnRouteRequest{NodeID: n} }),
		decodeRouteCallback(FuncDeleteReturnRoute),
	)},
	{TypeRequest, FuncRequestNodeNeighborUpdate, byOrigin(
		decodeNodeCallbackRequest(func(n uint8) Request { return RequestNodeNeighborUpdateRequest{NodeID: n} }),
		decodeRequestNodeNeighborUpdateCallback,
	)},
	{TypeRequest, FuncApplicationUpdate, controllerOnly(decodeApplicationUpdateRequest)},
	{TypeRequest, FuncAddNodeToNetwork, byOrigin(decodeAddNodeToNetworkRequest, decodeAddNodeToNetworkCallback)},
	{TypeRequest, FuncAssignSUCReturnRoute, byOrigin(
		decodeNodeCallbackRequest(func(n uint8) Request { return AssignSUCReturnRouteRequest{NodeID: n} }),
		decodeRouteCallback(FuncAssignSUCReturnRoute),
	)},
	{TypeRequest, FuncDeleteSUCReturnRoute, byOrigin(
		decodeNodeCallbackRequest(func(n uint8) Request { return DeleteSUCReturnRouteRequest{NodeID: n} }),
		decodeRouteCallback(FuncDeleteSUCReturnRoute),
	)},
	{TypeRequest, FuncRequestNodeInfo, hostOnly(decodeNodeIDRequest(func(n uint8) Request {
		return RequestNodeInfoRequest{NodeID: n}
	}))},
	{TypeRequest, FuncRemoveFailedNode, byOrigin(
		decodeNodeCallbackRequest(func(n uint8) Request { return RemoveFailedNodeRequest{NodeID: n} }),
		decodeRemoveFailedNodeCallback,
	)},
	{TypeRequest, FuncIsFailedNode, hostOnly(decodeNodeIDRequest(func(n uint8) Request {
		return IsFailedNodeRequest{NodeID: n}
	}))},

	{TypeResponse, FuncGetSerialAPIInitData, controllerOnly(decodeGetSerialAPIInitDataResponse)},
	{TypeResponse, FuncGetControllerCapabilities, controllerOnly(decodeGetControllerCapabilitiesResponse)},
	{TypeResponse, FuncGetSerialAPICapabilities, controllerOnly(decodeGetSerialAPICapabilitiesResponse)},
	{TypeResponse, FuncSendData, controllerOnly(decodeSendDataResponse)},
	{TypeResponse, FuncGetControllerVersion, controllerOnly(decodeGetControllerVersionResponse)},
	{TypeResponse, FuncGetControllerID, controllerOnly(decodeGetControllerIDResponse)},
	{TypeResponse, FuncNVMBackupRestore, controllerOnly(decodeNVMBackupRestoreResponse)},
	{TypeResponse, FuncGetNodeProtocolInfo, controllerOnly(decodeNodeProtocolInfoResponse)},
	{TypeResponse, FuncAssignReturnRoute, controllerOnly(decodeRouteResponse(FuncAssignReturnRoute))},
	{TypeResponse, FuncDeleteReturnRoute, controllerOnly(decodeRouteResponse(FuncDeleteReturnRoute))},
	{TypeResponse, FuncAssignSUCReturnRoute, controllerOnly(decodeRouteResponse(FuncAssignSUCReturnRoute))},
	{TypeResponse, FuncDeleteSUCReturnRoute, controllerOnly(decodeRouteResponse(FuncDeleteSUCReturnRoute))},
	{TypeResponse, FuncRequestNodeInfo, controllerOnly(decodeRequestNodeInfoResponse)},
	{TypeResponse, FuncRemoveFailedNode, controllerOnly(decodeRemoveFailedNodeResponse)},
	{TypeResponse, FuncIsFailedNode, controllerOnly(decodeIsFailedNodeResponse)},
}

func hostOnly(fn func([]byte) (Message, error)) ParseFunc {
	return func(p []byte, ctx ParseContext) (Message, error) {
		if ctx.Origin != OriginHost {
			return nil, ErrUnsupportedOperation
		}
		return fn(p)
	}
}

func controllerOnly(fn func([]byte) (Message, error)) ParseFunc {
	return func(p []byte, ctx ParseContext) (Message, error) {
		if ctx.Origin != OriginController {
			return nil, ErrUnsupportedOperation
		}
		return fn(p)
	}
}

func byOrigin(host, controller func([]byte) (Message, error)) ParseFunc {
	return func(p []byte, ctx ParseContext) (Message, error) {
		if ctx.Origin == OriginHost {
			return host(p)
		}
		return controller(p)
	}
}

// Registry maps (type, function) pairs to parse functions.
type Registry struct {
	parsers map[registryKey]ParseFunc
}

// NewRegistry builds the registry from the static registration table. It
// panics on a duplicate key, which is a programming error.
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[registryKey]ParseFunc, len(registrations))}
	for _, reg := range registrations {
		key := registryKey{Type: reg.Type, Function: reg.Function}
		if _, dup := r.parsers[key]; dup {
			panic(fmt.Sprintf("message: duplicate registration type=%s function=%s", reg.Type, reg.Function))
		}
		r.parsers[key] = reg.Parse
	}
	return r
}

// Supports reports whether a parser is registered for the pair.
func (r *Registry) Supports(t MessageType, fn FunctionType) bool {
	_, ok := r.parsers[registryKey{Type: t, Function: fn}]
	return ok
}

// Parse builds the Message for one data frame body. Every failure is a
// *ParseError.
func (r *Registry) Parse(t MessageType, fn FunctionType, payload []byte, ctx ParseContext) (Message, error) {
	parse, ok := r.parsers[registryKey{Type: t, Function: fn}]
	if !ok {
		return nil, newParseError(t, fn, payload, ctx, ErrUnsupportedOperation)
	}
	m, err := parse(payload, ctx)
	if err != nil {
		return nil, newParseError(t, fn, payload, ctx, err)
	}
	return m, nil
}

// ParseFrame parses a decoded data frame.
func (r *Registry) ParseFrame(f frame.Frame, ctx ParseContext) (Message, error) {
	if f.Kind != frame.KindData {
		return nil, fmt.Errorf("%w: %s", ErrNotDataFrame, f.Kind)
	}
	if len(f.Data) < 2 {
		return nil, &ParseError{Origin: ctx.Origin, Payload: cloneBytes(f.Data), Err: ErrTruncatedPayload}
	}
	return r.Parse(MessageType(f.Data[0]), FunctionType(f.Data[1]), f.Data[2:], ctx)
}

func newParseError(t MessageType, fn FunctionType, payload []byte, ctx ParseContext, err error) *ParseError {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe
	}
	return &ParseError{Type: t, Function: fn, Origin: ctx.Origin, Payload: cloneBytes(payload), Err: err}
}
