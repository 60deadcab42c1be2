// Package message owns the typed Serial API messages carried inside data
// frames.
//
// Ownership boundary:
// - message variants and their payload layouts
// - per-variant operation contracts (reply/callback expectations and matching)
// - the static (type, function) registration table
// - semantic success classification
package message

import "fmt"

// MessageType is the first byte of a data frame.
type MessageType uint8

const (
	TypeRequest  MessageType = 0x00
	TypeResponse MessageType = 0x01
)

func (t MessageType) String() string {
	switch t {
	case TypeRequest:
		return "request"
	case TypeResponse:
		return "response"
	default:
		return fmt.Sprintf("type(0x%02x)", uint8(t))
	}
}

// FunctionType is the Serial API operation code.
type FunctionType uint8

const (
	FuncGetSerialAPIInitData      FunctionType = 0x02
	FuncApplicationCommand        FunctionType = 0x04
	FuncGetControllerCapabilities FunctionType = 0x05
	FuncGetSerialAPICapabilities  FunctionType = 0x07
	FuncSoftReset                 FunctionType = 0x08
	FuncSerialAPIStarted          FunctionType = 0x0A
	FuncSendData                  FunctionType = 0x13
	FuncGetControllerVersion      FunctionType = 0x15
	FuncSendDataAbort             FunctionType = 0x16
	FuncGetControllerID           FunctionType = 0x20
	FuncNVMBackupRestore          FunctionType = 0x2E
	FuncGetNodeProtocolInfo       FunctionType = 0x41
	FuncAssignReturnRoute         FunctionType = 0x46
	FuncDeleteReturnRoute         FunctionType = 0x47
	FuncRequestNodeNeighborUpdate FunctionType = 0x48
	FuncApplicationUpdate         FunctionType = 0x49
	FuncAddNodeToNetwork          FunctionType = 0x4A
	FuncAssignSUCReturnRoute      FunctionType = 0x51
	FuncDeleteSUCReturnRoute      FunctionType = 0x55
	FuncRequestNodeInfo           FunctionType = 0x60
	FuncRemoveFailedNode          FunctionType = 0x61
	FuncIsFailedNode              FunctionType = 0x62
)

var functionNames = map[FunctionType]string{
	FuncGetSerialAPIInitData:      "GetSerialAPIInitData",
	FuncApplicationCommand:        "ApplicationCommand",
	FuncGetControllerCapabilities: "GetControllerCapabilities",
	FuncGetSerialAPICapabilities:  "GetSerialAPICapabilities",
	FuncSoftReset:                 "SoftReset",
	FuncSerialAPIStarted:          "SerialAPIStarted",
	FuncSendData:                  "SendData",
	FuncGetControllerVersion:      "GetControllerVersion",
	FuncSendDataAbort:             "SendDataAbort",
	FuncGetControllerID:           "GetControllerID",
	FuncNVMBackupRestore:          "NVMBackupRestore",
	FuncGetNodeProtocolInfo:       "GetNodeProtocolInfo",
	FuncAssignReturnRoute:         "AssignReturnRoute",
	FuncDeleteReturnRoute:         "DeleteReturnRoute",
	FuncRequestNodeNeighborUpdate: "RequestNodeNeighborUpdate",
	FuncApplicationUpdate:         "ApplicationUpdate",
	FuncAddNodeToNetwork:          "AddNodeToNetwork",
	FuncAssignSUCReturnRoute:      "AssignSUCReturnRoute",
	FuncDeleteSUCReturnRoute:      "DeleteSUCReturnRoute",
	FuncRequestNodeInfo:           "RequestNodeInfo",
	FuncRemoveFailedNode:          "RemoveFailedNode",
	FuncIsFailedNode:              "IsFailedNode",
}

func (f FunctionType) String() string {
	if name, ok := functionNames[f]; ok {
		return fmt.Sprintf("%s(0x%02x)", name, uint8(f))
	}
	return fmt.Sprintf("function(0x%02x)", uint8(f))
}

// Origin tells a parser which side produced the bytes. Several function codes
// are used by both sides with different layouts.
type Origin uint8

const (
	OriginController Origin = iota
	OriginHost
)

func (o Origin) String() string {
	if o == OriginHost {
		return "host"
	}
	return "controller"
}

// Message is one decoded data frame.
type Message interface {
	Type() MessageType
	Function() FunctionType
}

// Host exposes the controller facts that some contracts depend on.
type Host interface {
	OwnNodeID() uint8
}

// StaticHost is a Host with a fixed node id.
type StaticHost uint8

func (h StaticHost) OwnNodeID() uint8 { return uint8(h) }

// Request is an outgoing host command and its operation contract.
//
// MarshalPayload receives the callback id assigned by the transaction queue;
// callers obtain wire bytes only through Prepare.
type Request interface {
	Function() FunctionType
	ExpectsResponse() bool
	MatchesResponse(m Message) bool
	ExpectsCallback(h Host) bool
	MatchesCallback(callbackID uint8, m Message) bool
	MarshalPayload(callbackID uint8) ([]byte, error)
}

// FinalCallbackReporter is implemented by requests whose completion arrives in
// several callback frames. Requests without it treat every matching callback
// as final.
type FinalCallbackReporter interface {
	IsFinalCallback(m Message) bool
}

// CallbackAliaser lists function codes that some firmware uses by mistake
// when reporting this request's completion.
type CallbackAliaser interface {
	CallbackAliases() []FunctionType
}

// UncorrelatedCallback is implemented by requests whose completion report
// carries no callback id. No id is reserved for them, and only one per
// function may wait for its report at a time.
type UncorrelatedCallback interface {
	UncorrelatedCallback()
}

// CallbackCarrier is implemented by controller messages that echo a
// request's callback id.
type CallbackCarrier interface {
	Message
	CallbackID() uint8
}

// NodeTargeted is implemented by requests addressed to one node.
type NodeTargeted interface {
	TargetNodeID() uint8
}

func isResponseTo(fn FunctionType, m Message) bool {
	return m != nil && m.Type() == TypeResponse && m.Function() == fn
}

func isCallbackFor(fn FunctionType, callbackID uint8, m Message) bool {
	if m == nil || m.Type() != TypeRequest || m.Function() != fn {
		return false
	}
	c, ok := m.(CallbackCarrier)
	return ok && c.CallbackID() == callbackID
}

type noResponse struct{}

func (noResponse) ExpectsResponse() bool        { return false }
func (noResponse) MatchesResponse(Message) bool { return false }

type noCallback struct{}

func (noCallback) ExpectsCallback(Host) bool           { return false }
func (noCallback) MatchesCallback(uint8, Message) bool { return false }
