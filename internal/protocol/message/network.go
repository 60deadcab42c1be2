package message

import "fmt"

// AddNodeMode selects what AddNodeToNetwork starts or stops.
type AddNodeMode uint8

const (
	AddNodeAny        AddNodeMode = 0x01
	AddNodeController AddNodeMode = 0x02
	AddNodeEndNode    AddNodeMode = 0x03
	AddNodeExisting   AddNodeMode = 0x04
	AddNodeStop       AddNodeMode = 0x05
	AddNodeSmartStart AddNodeMode = 0x09
)

const (
	addNodeModeMask        uint8 = 0x0F
	addNodeFlagNetworkWide uint8 = 0x40
	addNodeFlagHighPower   uint8 = 0x80
)

// AddNodeStatus is the stage reported by AddNodeToNetwork callbacks.
type AddNodeStatus uint8

const (
	AddNodeStatusLearnReady       AddNodeStatus = 0x01
	AddNodeStatusNodeFound        AddNodeStatus = 0x02
	AddNodeStatusAddingEndNode    AddNodeStatus = 0x03
	AddNodeStatusAddingController AddNodeStatus = 0x04
	AddNodeStatusProtocolDone     AddNodeStatus = 0x05
	AddNodeStatusDone             AddNodeStatus = 0x06
	AddNodeStatusFailed           AddNodeStatus = 0x07
)

// AddNodeToNetworkRequest starts or stops inclusion. The transaction
// completes on LearnReady, Done or Failed; the stages in between arrive
// unsolicited once inclusion runs.
type AddNodeToNetworkRequest struct {
	noResponse
	Mode        AddNodeMode
	HighPower   bool
	NetworkWide bool
}

func (AddNodeToNetworkRequest) Function() FunctionType    { return FuncAddNodeToNetwork }
func (AddNodeToNetworkRequest) ExpectsCallback(Host) bool { return true }
func (AddNodeToNetworkRequest) MatchesCallback(callbackID uint8, m Message) bool {
	return isCallbackFor(FuncAddNodeToNetwork, callbackID, m)
}

func (AddNodeToNetworkRequest) IsFinalCallback(m Message) bool {
	cb, ok := m.(*AddNodeToNetworkCallback)
	if !ok {
		return true
	}
	switch cb.Status {
	case AddNodeStatusLearnReady, AddNodeStatusDone, AddNodeStatusFailed:
		return true
	default:
		return false
	}
}

func (r AddNodeToNetworkRequest) MarshalPayload(callbackID uint8) ([]byte, error) {
	mode := uint8(r.Mode)
	if mode == 0 || mode&^addNodeModeMask != 0 {
		return nil, fmt.Errorf("%w: add node mode 0x%02x", ErrInvalidRequest, mode)
	}
	if r.HighPower {
		mode |= addNodeFlagHighPower
	}
	if r.NetworkWide {
		mode |= addNodeFlagNetworkWide
	}
	return []byte{mode, callbackID}, nil
}

func decodeAddNodeToNetworkRequest(p []byte) (Message, error) {
	r := newReader(p)
	mode, cb := r.u8(), r.u8()
	if r.err != nil {
		return nil, r.err
	}
	return Prepare(AddNodeToNetworkRequest{
		Mode:        AddNodeMode(mode & addNodeModeMask),
		HighPower:   mode&addNodeFlagHighPower != 0,
		NetworkWide: mode&addNodeFlagNetworkWide != 0,
	}, cb)
}

type AddNodeToNetworkCallback struct {
	callbackID uint8
	Status     AddNodeStatus
	NodeID     uint8
	NodeInfo   []byte
}

func (*AddNodeToNetworkCallback) Type() MessageType      { return TypeRequest }
func (*AddNodeToNetworkCallback) Function() FunctionType { return FuncAddNodeToNetwork }
func (c *AddNodeToNetworkCallback) CallbackID() uint8    { return c.callbackID }
func (c *AddNodeToNetworkCallback) IsSuccess() bool      { return c.Status != AddNodeStatusFailed }

func decodeAddNodeToNetworkCallback(p []byte) (Message, error) {
	r := newReader(p)
	out := &AddNodeToNetworkCallback{callbackID: r.u8(), Status: AddNodeStatus(r.u8())}
	if r.err != nil {
		return nil, r.err
	}
	if r.remaining() > 0 {
		out.NodeID = r.u8()
	}
	if r.remaining() > 0 {
		out.NodeInfo = r.bytes(int(r.u8()))
	}
	return out, r.err
}

// RemoveFailedNodeRequest removes a node the controller already considers
// failed.
type RemoveFailedNodeRequest struct {
	NodeID uint8
}

func (RemoveFailedNodeRequest) Function() FunctionType { return FuncRemoveFailedNode }
func (RemoveFailedNodeRequest) ExpectsResponse() bool  { return true }
func (RemoveFailedNodeRequest) MatchesResponse(m Message) bool {
	return isResponseTo(FuncRemoveFailedNode, m)
}
func (RemoveFailedNodeRequest) ExpectsCallback(Host) bool { return true }
func (RemoveFailedNodeRequest) MatchesCallback(callbackID uint8, m Message) bool {
	return isCallbackFor(FuncRemoveFailedNode, callbackID, m)
}
func (r RemoveFailedNodeRequest) TargetNodeID() uint8 { return r.NodeID }

func (r RemoveFailedNodeRequest) MarshalPayload(callbackID uint8) ([]byte, error) {
	if r.NodeID == 0 {
		return nil, fmt.Errorf("%w: remove failed node needs a node id", ErrInvalidRequest)
	}
	return []byte{r.NodeID, callbackID}, nil
}

// RemoveFailedNodeResponse is a bitmask of reasons the removal could not
// start; zero means it started.
type RemoveFailedNodeResponse struct {
	Status uint8
}

const (
	RemoveFailedNotPrimaryController uint8 = 1 << 1
	RemoveFailedNoCallbackFunction   uint8 = 1 << 2
	RemoveFailedNodeNotFound         uint8 = 1 << 3
	RemoveFailedProcessBusy          uint8 = 1 << 4
	RemoveFailedRemoveFail           uint8 = 1 << 5
)

func (*RemoveFailedNodeResponse) Type() MessageType      { return TypeResponse }
func (*RemoveFailedNodeResponse) Function() FunctionType { return FuncRemoveFailedNode }
func (r *RemoveFailedNodeResponse) IsSuccess() bool      { return r.Status == 0 }

func decodeRemoveFailedNodeResponse(p []byte) (Message, error) {
	r := newReader(p)
	out := &RemoveFailedNodeResponse{Status: r.u8()}
	return out, r.err
}

type RemoveFailedNodeStatus uint8

const (
	RemoveFailedNodeOK         RemoveFailedNodeStatus = 0x00
	RemoveFailedNodeRemoved    RemoveFailedNodeStatus = 0x01
	RemoveFailedNodeNotRemoved RemoveFailedNodeStatus = 0x02
)

type RemoveFailedNodeCallback struct {
	callbackID uint8
	Status     RemoveFailedNodeStatus
}

func (*RemoveFailedNodeCallback) Type() MessageType      { return TypeRequest }
func (*RemoveFailedNodeCallback) Function() FunctionType { return FuncRemoveFailedNode }
func (c *RemoveFailedNodeCallback) CallbackID() uint8    { return c.callbackID }
func (c *RemoveFailedNodeCallback) IsSuccess() bool      { return c.Status == RemoveFailedNodeRemoved }

func decodeRemoveFailedNodeCallback(p []byte) (Message, error) {
	r := newReader(p)
	out := &RemoveFailedNodeCallback{callbackID: r.u8(), Status: RemoveFailedNodeStatus(r.u8())}
	return out, r.err
}

// NeighborUpdateStatus is the stage reported by RequestNodeNeighborUpdate.
type NeighborUpdateStatus uint8

const (
	NeighborUpdateStarted NeighborUpdateStatus = 0x21
	NeighborUpdateDone    NeighborUpdateStatus = 0x22
	NeighborUpdateFailed  NeighborUpdateStatus = 0x23
)

// RequestNodeNeighborUpdateRequest asks a node to rediscover its neighbors.
// The controller reports Started, then Done or Failed.
type RequestNodeNeighborUpdateRequest struct {
	noResponse
	NodeID uint8
}

func (RequestNodeNeighborUpdateRequest) Function() FunctionType    { return FuncRequestNodeNeighborUpdate }
func (RequestNodeNeighborUpdateRequest) ExpectsCallback(Host) bool { return true }
func (RequestNodeNeighborUpdateRequest) MatchesCallback(callbackID uint8, m Message) bool {
	return isCallbackFor(FuncRequestNodeNeighborUpdate, callbackID, m)
}
func (r RequestNodeNeighborUpdateRequest) TargetNodeID() uint8 { return r.NodeID }

func (RequestNodeNeighborUpdateRequest) IsFinalCallback(m Message) bool {
	cb, ok := m.(*RequestNodeNeighborUpdateCallback)
	return !ok || cb.Status != NeighborUpdateStarted
}

func (r RequestNodeNeighborUpdateRequest) MarshalPayload(callbackID uint8) ([]byte, error) {
	if r.NodeID == 0 {
		return nil, fmt.Errorf("%w: neighbor update needs a node id", ErrInvalidRequest)
	}
	return []byte{r.NodeID, callbackID}, nil
}

type RequestNodeNeighborUpdateCallback struct {
	callbackID uint8
	Status     NeighborUpdateStatus
}

func (*RequestNodeNeighborUpdateCallback) Type() MessageType { return TypeRequest }
func (*RequestNodeNeighborUpdateCallback) Function() FunctionType {
	return FuncRequestNodeNeighborUpdate
}
func (c *RequestNodeNeighborUpdateCallback) CallbackID() uint8 { return c.callbackID }
func (c *RequestNodeNeighborUpdateCallback) IsSuccess() bool {
	return c.Status != NeighborUpdateFailed
}

func decodeRequestNodeNeighborUpdateCallback(p []byte) (Message, error) {
	r := newReader(p)
	out := &RequestNodeNeighborUpdateCallback{callbackID: r.u8(), Status: NeighborUpdateStatus(r.u8())}
	return out, r.err
}

// RequestNodeInfoRequest asks a node for its node information frame. The
// completion is not a callback of the same function: it is an
// ApplicationUpdate for the node, or a NodeInfoRequestFailed update.
type RequestNodeInfoRequest struct {
	NodeID uint8
}

func (RequestNodeInfoRequest) Function() FunctionType { return FuncRequestNodeInfo }
func (RequestNodeInfoRequest) ExpectsResponse() bool  { return true }
func (RequestNodeInfoRequest) MatchesResponse(m Message) bool {
	return isResponseTo(FuncRequestNodeInfo, m)
}
func (RequestNodeInfoRequest) ExpectsCallback(Host) bool { return true }
func (RequestNodeInfoRequest) UncorrelatedCallback()     {}
func (r RequestNodeInfoRequest) TargetNodeID() uint8     { return r.NodeID }

// MatchesCallback ignores the callback id; node info updates do not carry one.
func (r RequestNodeInfoRequest) MatchesCallback(_ uint8, m Message) bool {
	u, ok := m.(*ApplicationUpdateRequest)
	if !ok {
		return false
	}
	switch u.UpdateType {
	case UpdateNodeInfoReceived:
		return u.NodeID == r.NodeID
	case UpdateNodeInfoRequestFailed:
		return true
	default:
		return false
	}
}

func (r RequestNodeInfoRequest) MarshalPayload(uint8) ([]byte, error) {
	if r.NodeID == 0 {
		return nil, fmt.Errorf("%w: request node info needs a node id", ErrInvalidRequest)
	}
	return []byte{r.NodeID}, nil
}

type RequestNodeInfoResponse struct {
	WasSent bool
}

func (*RequestNodeInfoResponse) Type() MessageType      { return TypeResponse }
func (*RequestNodeInfoResponse) Function() FunctionType { return FuncRequestNodeInfo }
func (r *RequestNodeInfoResponse) IsSuccess() bool      { return r.WasSent }

func decodeRequestNodeInfoResponse(p []byte) (Message, error) {
	r := newReader(p)
	out := &RequestNodeInfoResponse{WasSent: r.u8() != 0}
	return out, r.err
}

// ApplicationUpdateType is the kind of an ApplicationUpdate report.
type ApplicationUpdateType uint8

const (
	UpdateSUCIDChanged          ApplicationUpdateType = 0x10
	UpdateDeleteDone            ApplicationUpdateType = 0x20
	UpdateNewIDAssigned         ApplicationUpdateType = 0x40
	UpdateRoutingPending        ApplicationUpdateType = 0x80
	UpdateNodeInfoRequestFailed ApplicationUpdateType = 0x81
	UpdateNodeInfoRequestDone   ApplicationUpdateType = 0x82
	UpdateNodeInfoReceived      ApplicationUpdateType = 0x84
)

// ApplicationUpdateRequest is an unsolicited controller report about a node.
type ApplicationUpdateRequest struct {
	UpdateType ApplicationUpdateType
	NodeID     uint8
	NodeInfo   []byte
}

func (*ApplicationUpdateRequest) Type() MessageType      { return TypeRequest }
func (*ApplicationUpdateRequest) Function() FunctionType { return FuncApplicationUpdate }
func (u *ApplicationUpdateRequest) IsSuccess() bool {
	return u.UpdateType != UpdateNodeInfoRequestFailed
}

func decodeApplicationUpdateRequest(p []byte) (Message, error) {
	r := newReader(p)
	out := &ApplicationUpdateRequest{UpdateType: ApplicationUpdateType(r.u8()), NodeID: r.u8()}
	if r.err != nil {
		return nil, r.err
	}
	if r.remaining() > 0 {
		n := int(r.u8())
		if n > 0 {
			out.NodeInfo = r.bytes(n)
		}
	}
	return out, r.err
}

type GetNodeProtocolInfoRequest struct {
	noCallback
	NodeID uint8
}

func (GetNodeProtocolInfoRequest) Function() FunctionType { return FuncGetNodeProtocolInfo }
func (GetNodeProtocolInfoRequest) ExpectsResponse() bool  { return true }
func (GetNodeProtocolInfoRequest) MatchesResponse(m Message) bool {
	return isResponseTo(FuncGetNodeProtocolInfo, m)
}
func (r GetNodeProtocolInfoRequest) TargetNodeID() uint8 { return r.NodeID }

func (r GetNodeProtocolInfoRequest) MarshalPayload(uint8) ([]byte, error) {
	if r.NodeID == 0 {
		return nil, fmt.Errorf("%w: protocol info needs a node id", ErrInvalidRequest)
	}
	return []byte{r.NodeID}, nil
}

// NodeProtocolInfoResponse is the controller's cached view of a node. An
// unknown node comes back as all zeros.
type NodeProtocolInfoResponse struct {
	Capability    uint8
	Security      uint8
	Reserved      uint8
	BasicClass    uint8
	GenericClass  uint8
	SpecificClass uint8
}

func (*NodeProtocolInfoResponse) Type() MessageType      { return TypeResponse }
func (*NodeProtocolInfoResponse) Function() FunctionType { return FuncGetNodeProtocolInfo }

func (r *NodeProtocolInfoResponse) Listening() bool { return r.Capability&0x80 != 0 }
func (r *NodeProtocolInfoResponse) Routing() bool   { return r.Capability&0x40 != 0 }
func (r *NodeProtocolInfoResponse) FrequentListening() bool {
	return r.Security&0x60 != 0
}
func (r *NodeProtocolInfoResponse) Known() bool { return r.GenericClass != 0 }

func decodeNodeProtocolInfoResponse(p []byte) (Message, error) {
	r := newReader(p)
	out := &NodeProtocolInfoResponse{
		Capability:   r.u8(),
		Security:     r.u8(),
		Reserved:     r.u8(),
		BasicClass:   r.u8(),
		GenericClass: r.u8(),
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.remaining() > 0 {
		out.SpecificClass = r.u8()
	}
	return out, nil
}

type IsFailedNodeRequest struct {
	noCallback
	NodeID uint8
}

func (IsFailedNodeRequest) Function() FunctionType { return FuncIsFailedNode }
func (IsFailedNodeRequest) ExpectsResponse() bool  { return true }
func (IsFailedNodeRequest) MatchesResponse(m Message) bool {
	return isResponseTo(FuncIsFailedNode, m)
}
func (r IsFailedNodeRequest) TargetNodeID() uint8 { return r.NodeID }

func (r IsFailedNodeRequest) MarshalPayload(uint8) ([]byte, error) {
	if r.NodeID == 0 {
		return nil, fmt.Errorf("%w: is failed node needs a node id", ErrInvalidRequest)
	}
	return []byte{r.NodeID}, nil
}

type IsFailedNodeResponse struct {
	Failed bool
}

func (*IsFailedNodeResponse) Type() MessageType      { return TypeResponse }
func (*IsFailedNodeResponse) Function() FunctionType { return FuncIsFailedNode }

func decodeIsFailedNodeResponse(p []byte) (Message, error) {
	r := newReader(p)
	out := &IsFailedNodeResponse{Failed: r.u8() != 0}
	return out, r.err
}
