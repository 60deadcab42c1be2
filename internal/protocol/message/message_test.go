package message

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/danmuck/zwavectl/internal/protocol/frame"
	"github.com/danmuck/zwavectl/internal/testutil/testlog"
)

var hostCtx = ParseContext{Origin: OriginHost}
var controllerCtx = ParseContext{Origin: OriginController}

func TestRequestVariantsRoundTrip(t *testing.T) {
	testlog.Start(t)
	reg := NewRegistry()
	cases := []struct {
		req Request
		cb  uint8
		// wireCB is the id recovered from the bytes; RequestNodeInfo does
		// not carry one.
		wireCB uint8
	}{
		{GetSerialAPIInitDataRequest{}, 0, 0},
		{GetControllerCapabilitiesRequest{}, 0, 0},
		{GetSerialAPICapabilitiesRequest{}, 0, 0},
		{SoftResetRequest{}, 0, 0},
		{SendDataRequest{NodeID: 7, Payload: []byte{0x25, 0x01, 0xff}, TransmitOptions: DefaultTransmitOptions}, 3, 3},
		{GetControllerVersionRequest{}, 0, 0},
		{SendDataAbortRequest{}, 0, 0},
		{GetControllerIDRequest{}, 0, 0},
		{NVMBackupRestoreRequest{Operation: NVMOpen}, 0, 0},
		{NVMBackupRestoreRequest{Operation: NVMRead, Length: 0x40, Offset: 0x0120}, 0, 0},
		{NVMBackupRestoreRequest{Operation: NVMWrite, Offset: 0x0010, Data: []byte{0xde, 0xad}}, 0, 0},
		{GetNodeProtocolInfoRequest{NodeID: 4}, 0, 0},
		{AssignReturnRouteRequest{NodeID: 5, DestinationNodeID: 1}, 9, 9},
		{DeleteReturnRouteRequest{NodeID: 5}, 10, 10},
		{RequestNodeNeighborUpdateRequest{NodeID: 6}, 11, 11},
		{AddNodeToNetworkRequest{Mode: AddNodeAny, HighPower: true, NetworkWide: true}, 12, 12},
		{AddNodeToNetworkRequest{Mode: AddNodeStop}, 13, 13},
		{AssignSUCReturnRouteRequest{NodeID: 8}, 14, 14},
		{DeleteSUCReturnRouteRequest{NodeID: 8}, 15, 15},
		{RequestNodeInfoRequest{NodeID: 2}, 16, 0},
		{RemoveFailedNodeRequest{NodeID: 12}, 17, 17},
		{IsFailedNodeRequest{NodeID: 12}, 0, 0},
	}
	for _, tc := range cases {
		p, err := Prepare(tc.req, tc.cb)
		if err != nil {
			t.Fatalf("prepare %T: %v", tc.req, err)
		}
		m, err := reg.ParseFrame(p.Frame(), hostCtx)
		if err != nil {
			t.Fatalf("parse %T: %v", tc.req, err)
		}
		got, ok := m.(*Prepared)
		if !ok {
			t.Fatalf("parse %T returned %T", tc.req, m)
		}
		if !reflect.DeepEqual(got.Request(), tc.req) {
			t.Fatalf("round trip got=%#v want=%#v", got.Request(), tc.req)
		}
		if got.CallbackID() != tc.wireCB {
			t.Fatalf("%T callback id got=%d want=%d", tc.req, got.CallbackID(), tc.wireCB)
		}
		if !bytes.Equal(got.Payload(), p.Payload()) {
			t.Fatalf("%T payload got=% x want=% x", tc.req, got.Payload(), p.Payload())
		}
	}
}

func TestPreparedBytesSendData(t *testing.T) {
	testlog.Start(t)
	p, err := Prepare(SendDataRequest{NodeID: 2, Payload: []byte{0x20, 0x02}, TransmitOptions: 0x25}, 1)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	got, err := p.Bytes()
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}
	data := []byte{0x00, 0x13, 0x02, 0x02, 0x20, 0x02, 0x25, 0x01}
	want, _ := frame.Encode(frame.Data(data))
	if !bytes.Equal(got, want) {
		t.Fatalf("bytes got=% x want=% x", got, want)
	}
	if got[1] != byte(len(data)+1) {
		t.Fatalf("length byte got=%d", got[1])
	}
}

func TestPrepareRejectsInvalidRequests(t *testing.T) {
	testlog.Start(t)
	if _, err := Prepare(nil, 0); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("nil request: expected ErrInvalidRequest, got %v", err)
	}
	if _, err := Prepare(SendDataRequest{}, 1); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("node 0: expected ErrInvalidRequest, got %v", err)
	}
	if _, err := Prepare(SendDataRequest{NodeID: 1, Payload: make([]byte, 256)}, 1); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("oversized: expected ErrPayloadTooLarge, got %v", err)
	}
	if _, err := Prepare(AddNodeToNetworkRequest{}, 1); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("add node mode 0: expected ErrInvalidRequest, got %v", err)
	}
}

func TestParseOriginSelectsVariant(t *testing.T) {
	testlog.Start(t)
	reg := NewRegistry()
	m, err := reg.Parse(TypeRequest, FuncAssignReturnRoute, []byte{0x05, 0x01, 0x07}, hostCtx)
	if err != nil {
		t.Fatalf("host parse: %v", err)
	}
	p, ok := m.(*Prepared)
	if !ok {
		t.Fatalf("host parse returned %T", m)
	}
	if req := p.Request().(AssignReturnRouteRequest); req.NodeID != 5 || req.DestinationNodeID != 1 || p.CallbackID() != 7 {
		t.Fatalf("host parse got=%+v cb=%d", req, p.CallbackID())
	}

	m, err = reg.Parse(TypeRequest, FuncAssignReturnRoute, []byte{0x07, 0x01}, controllerCtx)
	if err != nil {
		t.Fatalf("controller parse: %v", err)
	}
	cb, ok := m.(*RouteCallback)
	if !ok {
		t.Fatalf("controller parse returned %T", m)
	}
	if cb.CallbackID() != 7 || cb.TransmitStatus != TransmitNoAck || cb.Function() != FuncAssignReturnRoute {
		t.Fatalf("controller parse got=%+v", cb)
	}
	if Succeeded(cb) {
		t.Fatalf("no_ack route callback must not succeed")
	}
}

func TestParseErrors(t *testing.T) {
	testlog.Start(t)
	reg := NewRegistry()

	_, err := reg.Parse(TypeRequest, FunctionType(0x99), nil, controllerCtx)
	var pe *ParseError
	if !errors.As(err, &pe) || !errors.Is(err, ErrUnsupportedOperation) {
		t.Fatalf("unknown function: expected ParseError(ErrUnsupportedOperation), got %v", err)
	}
	if pe.Function != FunctionType(0x99) || pe.Origin != OriginController {
		t.Fatalf("parse error context got=%+v", pe)
	}

	if _, err := reg.Parse(TypeResponse, FuncSendData, []byte{0x01}, hostCtx); !errors.Is(err, ErrUnsupportedOperation) {
		t.Fatalf("host response: expected ErrUnsupportedOperation, got %v", err)
	}
	if _, err := reg.Parse(TypeRequest, FuncApplicationUpdate, []byte{0x84, 0x02, 0x00}, hostCtx); !errors.Is(err, ErrUnsupportedOperation) {
		t.Fatalf("host application update: expected ErrUnsupportedOperation, got %v", err)
	}
	if _, err := reg.Parse(TypeResponse, FuncNVMBackupRestore, []byte{0x00, 0x00}, controllerCtx); !errors.Is(err, ErrDeserializationNotImplemented) {
		t.Fatalf("nvm response: expected ErrDeserializationNotImplemented, got %v", err)
	}
	if _, err := reg.Parse(TypeResponse, FuncGetControllerID, []byte{0x01, 0x02}, controllerCtx); !errors.Is(err, ErrTruncatedPayload) {
		t.Fatalf("short controller id: expected ErrTruncatedPayload, got %v", err)
	}
	if _, err := reg.ParseFrame(frame.Ack(), controllerCtx); !errors.Is(err, ErrNotDataFrame) {
		t.Fatalf("ack frame: expected ErrNotDataFrame, got %v", err)
	}
}

func TestRegistrySupports(t *testing.T) {
	testlog.Start(t)
	reg := NewRegistry()
	if !reg.Supports(TypeRequest, FuncSendData) || !reg.Supports(TypeResponse, FuncSendData) {
		t.Fatalf("expected SendData request and response")
	}
	if reg.Supports(TypeResponse, FuncSoftReset) {
		t.Fatalf("soft reset has no response")
	}
}

func TestDecodeControllerResponses(t *testing.T) {
	testlog.Start(t)
	reg := NewRegistry()

	m, err := reg.Parse(TypeResponse, FuncGetControllerID, []byte{0xc0, 0xff, 0xee, 0x01, 0x01}, controllerCtx)
	if err != nil {
		t.Fatalf("controller id: %v", err)
	}
	id := m.(*GetControllerIDResponse)
	if id.HomeID != 0xc0ffee01 || id.OwnNodeID != 1 {
		t.Fatalf("controller id got=%+v", id)
	}

	m, err = reg.Parse(TypeResponse, FuncGetControllerVersion, append([]byte("Z-Wave 7.18\x00"), 0x07), controllerCtx)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	ver := m.(*GetControllerVersionResponse)
	if ver.Version != "Z-Wave 7.18" || ver.LibraryType != LibraryBridgeController {
		t.Fatalf("version got=%+v", ver)
	}

	mask := make([]byte, 29)
	mask[0] = 0x05 // nodes 1 and 3
	mask[1] = 0x80 // node 16
	initData := append([]byte{0x09, 0x08, byte(len(mask))}, mask...)
	initData = append(initData, 0x07, 0x00)
	m, err = reg.Parse(TypeResponse, FuncGetSerialAPIInitData, initData, controllerCtx)
	if err != nil {
		t.Fatalf("init data: %v", err)
	}
	initResp := m.(*GetSerialAPIInitDataResponse)
	if !reflect.DeepEqual(initResp.NodeIDs, []uint8{1, 3, 16}) || !initResp.IsSIS() || initResp.IsSecondary() || initResp.ChipType != 0x07 {
		t.Fatalf("init data got=%+v", initResp)
	}

	caps := []byte{0x07, 0x12, 0x00, 0x86, 0x00, 0x01, 0x00, 0x5a, 0x16, 0x00}
	m, err = reg.Parse(TypeResponse, FuncGetSerialAPICapabilities, caps, controllerCtx)
	if err != nil {
		t.Fatalf("capabilities: %v", err)
	}
	sc := m.(*GetSerialAPICapabilitiesResponse)
	if sc.FirmwareVersion != "7.18" || sc.ManufacturerID != 0x0086 || sc.ProductID != 0x005a {
		t.Fatalf("capabilities got=%+v", sc)
	}
	// 0x16 = bits 1, 2, 4 of the first byte: functions 0x02, 0x03, 0x05.
	if !sc.Supports(FuncGetSerialAPIInitData) || !sc.Supports(FuncGetControllerCapabilities) || sc.Supports(FuncSendData) {
		t.Fatalf("supported functions got=%v", sc.SupportedFunctions)
	}

	m, err = reg.Parse(TypeRequest, FuncSerialAPIStarted, []byte{0x00, 0x00, 0x01, 0x02, 0x01, 0x02, 0x5e, 0x86, 0x01}, controllerCtx)
	if err != nil {
		t.Fatalf("serial api started: %v", err)
	}
	started := m.(*SerialAPIStarted)
	if !bytes.Equal(started.CommandClasses, []byte{0x5e, 0x86}) || !started.SupportsLongRange || started.GenericClass != 0x02 {
		t.Fatalf("serial api started got=%+v", started)
	}
}

func TestDecodeApplicationFrames(t *testing.T) {
	testlog.Start(t)
	reg := NewRegistry()

	m, err := reg.Parse(TypeRequest, FuncApplicationCommand, []byte{0x04, 0x05, 0x03, 0x20, 0x03, 0xff, 0xc4}, controllerCtx)
	if err != nil {
		t.Fatalf("application command: %v", err)
	}
	cmd := m.(*ApplicationCommandRequest)
	if cmd.SourceNodeID != 5 || !bytes.Equal(cmd.Command, []byte{0x20, 0x03, 0xff}) || !cmd.HasRSSI || cmd.RSSI != -60 || !cmd.IsBroadcast() {
		t.Fatalf("application command got=%+v", cmd)
	}

	m, err = reg.Parse(TypeRequest, FuncApplicationUpdate, []byte{0x84, 0x02, 0x03, 0x04, 0x10, 0x01}, controllerCtx)
	if err != nil {
		t.Fatalf("application update: %v", err)
	}
	upd := m.(*ApplicationUpdateRequest)
	if upd.UpdateType != UpdateNodeInfoReceived || upd.NodeID != 2 || !bytes.Equal(upd.NodeInfo, []byte{0x04, 0x10, 0x01}) {
		t.Fatalf("application update got=%+v", upd)
	}
}

func TestSucceeded(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name string
		m    Message
		want bool
	}{
		{"nil", nil, true},
		{"no reporter", &GetControllerIDResponse{}, true},
		{"send data queued", &SendDataResponse{Queued: true}, true},
		{"send data rejected", &SendDataResponse{}, false},
		{"transmit ok", &SendDataCallback{TransmitStatus: TransmitOK}, true},
		{"transmit no ack", &SendDataCallback{TransmitStatus: TransmitNoAck}, false},
		{"remove started", &RemoveFailedNodeResponse{}, true},
		{"remove busy", &RemoveFailedNodeResponse{Status: RemoveFailedProcessBusy}, false},
		{"node info failed", &ApplicationUpdateRequest{UpdateType: UpdateNodeInfoRequestFailed}, false},
	}
	for _, tc := range cases {
		if got := Succeeded(tc.m); got != tc.want {
			t.Fatalf("%s: succeeded got=%v want=%v", tc.name, got, tc.want)
		}
	}
}

func TestRemoveFailedNodeExchange(t *testing.T) {
	testlog.Start(t)
	reg := NewRegistry()
	p, err := Prepare(RemoveFailedNodeRequest{NodeID: 12}, 0x21)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if !bytes.Equal(p.Payload(), []byte{12, 0x21}) {
		t.Fatalf("payload got=% x", p.Payload())
	}
	c, err := LookupContract(p, StaticHost(1))
	if err != nil {
		t.Fatalf("contract: %v", err)
	}
	if !c.ExpectsResponse || !c.ExpectsCallback || c.TargetNodeID() != 12 {
		t.Fatalf("contract got=%+v", c)
	}

	resp, err := reg.Parse(TypeResponse, FuncRemoveFailedNode, []byte{0x00}, controllerCtx)
	if err != nil {
		t.Fatalf("response: %v", err)
	}
	if !c.MatchesResponse(resp) || !Succeeded(resp) {
		t.Fatalf("response should match and report started")
	}

	removed, _ := reg.Parse(TypeRequest, FuncRemoveFailedNode, []byte{0x21, 0x01}, controllerCtx)
	if !c.MatchesCallback(0x21, removed) || !c.IsFinalCallback(removed) || !Succeeded(removed) {
		t.Fatalf("removed callback should match, be final and succeed")
	}
	notRemoved, _ := reg.Parse(TypeRequest, FuncRemoveFailedNode, []byte{0x21, 0x02}, controllerCtx)
	if !c.MatchesCallback(0x21, notRemoved) || Succeeded(notRemoved) {
		t.Fatalf("not removed callback should match and fail")
	}
	other, _ := reg.Parse(TypeRequest, FuncRemoveFailedNode, []byte{0x22, 0x01}, controllerCtx)
	if c.MatchesCallback(0x21, other) {
		t.Fatalf("callback id 0x22 must not match 0x21")
	}
}

func TestAssignReturnRouteOnOwnNodeExpectsNoCallback(t *testing.T) {
	testlog.Start(t)
	own := ContractFor(AssignReturnRouteRequest{NodeID: 1, DestinationNodeID: 5}, StaticHost(1))
	if own.ExpectsCallback {
		t.Fatalf("route on own node must not expect a callback")
	}
	remote := ContractFor(AssignReturnRouteRequest{NodeID: 5, DestinationNodeID: 1}, StaticHost(1))
	if !remote.ExpectsCallback {
		t.Fatalf("route on node 5 must expect a callback")
	}
	unknown := ContractFor(AssignReturnRouteRequest{NodeID: 1, DestinationNodeID: 5}, nil)
	if !unknown.ExpectsCallback {
		t.Fatalf("without a host the callback must be expected")
	}
}

func TestMultiStageCallbacks(t *testing.T) {
	testlog.Start(t)
	c := ContractFor(RequestNodeNeighborUpdateRequest{NodeID: 4}, nil)
	started := &RequestNodeNeighborUpdateCallback{callbackID: 3, Status: NeighborUpdateStarted}
	done := &RequestNodeNeighborUpdateCallback{callbackID: 3, Status: NeighborUpdateDone}
	failed := &RequestNodeNeighborUpdateCallback{callbackID: 3, Status: NeighborUpdateFailed}
	if c.ExpectsResponse || !c.MatchesCallback(3, started) || c.IsFinalCallback(started) {
		t.Fatalf("started must match and stay non-final")
	}
	if !c.IsFinalCallback(done) || !c.IsFinalCallback(failed) || Succeeded(failed) {
		t.Fatalf("done and failed must be final, failed must not succeed")
	}

	add := ContractFor(AddNodeToNetworkRequest{Mode: AddNodeAny}, nil)
	for status, final := range map[AddNodeStatus]bool{
		AddNodeStatusLearnReady:    true,
		AddNodeStatusNodeFound:     false,
		AddNodeStatusAddingEndNode: false,
		AddNodeStatusDone:          true,
		AddNodeStatusFailed:        true,
	} {
		m := &AddNodeToNetworkCallback{callbackID: 1, Status: status}
		if add.IsFinalCallback(m) != final {
			t.Fatalf("add node status=0x%02x final got=%v want=%v", uint8(status), !final, final)
		}
	}
}

func TestAliasedCallbackMatching(t *testing.T) {
	testlog.Start(t)
	c := ContractFor(AssignSUCReturnRouteRequest{NodeID: 6}, nil)
	aliased := &RouteCallback{function: FuncDeleteSUCReturnRoute, callbackID: 9}
	if c.MatchesCallback(9, aliased) {
		t.Fatalf("aliased callback must not match directly")
	}
	if !c.MatchesAliasedCallback(9, aliased) {
		t.Fatalf("aliased callback with the same id must match")
	}
	if c.MatchesAliasedCallback(8, aliased) {
		t.Fatalf("aliased callback with another id must not match")
	}
	plain := ContractFor(DeleteReturnRouteRequest{NodeID: 6}, nil)
	if plain.MatchesAliasedCallback(9, aliased) {
		t.Fatalf("request without aliases must not match")
	}
}

func TestRequestNodeInfoMatchesApplicationUpdate(t *testing.T) {
	testlog.Start(t)
	c := ContractFor(RequestNodeInfoRequest{NodeID: 2}, nil)
	if !c.MatchesCallback(5, &ApplicationUpdateRequest{UpdateType: UpdateNodeInfoReceived, NodeID: 2}) {
		t.Fatalf("node info for node 2 must match")
	}
	if c.MatchesCallback(5, &ApplicationUpdateRequest{UpdateType: UpdateNodeInfoReceived, NodeID: 3}) {
		t.Fatalf("node info for node 3 must not match")
	}
	if !c.ExpectsCallback || c.UsesCallbackID || !c.ExclusiveCallback {
		t.Fatalf("contract got=%+v want uncorrelated exclusive callback", c)
	}
	if sd := ContractFor(SendDataRequest{NodeID: 2}, nil); !sd.UsesCallbackID || sd.ExclusiveCallback {
		t.Fatalf("send data contract got=%+v", sd)
	}
	failed := &ApplicationUpdateRequest{UpdateType: UpdateNodeInfoRequestFailed}
	if !c.MatchesCallback(5, failed) || Succeeded(failed) {
		t.Fatalf("request failed update must match and fail")
	}
}

func TestLookupContractNeedsPrepared(t *testing.T) {
	testlog.Start(t)
	if _, err := LookupContract(&SendDataResponse{}, nil); !errors.Is(err, ErrNoContract) {
		t.Fatalf("expected ErrNoContract, got %v", err)
	}
}
