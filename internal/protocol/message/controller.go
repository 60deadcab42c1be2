package message

import (
	"bytes"
	"fmt"
	"slices"
)

// GetControllerIDRequest asks for the home id and the controller's node id.
type GetControllerIDRequest struct {
	noCallback
}

func (GetControllerIDRequest) Function() FunctionType { return FuncGetControllerID }
func (GetControllerIDRequest) ExpectsResponse() bool  { return true }
func (GetControllerIDRequest) MatchesResponse(m Message) bool {
	return isResponseTo(FuncGetControllerID, m)
}
func (GetControllerIDRequest) MarshalPayload(uint8) ([]byte, error) { return nil, nil }

type GetControllerIDResponse struct {
	HomeID    uint32
	OwnNodeID uint8
}

func (*GetControllerIDResponse) Type() MessageType      { return TypeResponse }
func (*GetControllerIDResponse) Function() FunctionType { return FuncGetControllerID }

func decodeGetControllerIDResponse(p []byte) (Message, error) {
	r := newReader(p)
	out := &GetControllerIDResponse{HomeID: r.u32(), OwnNodeID: r.u8()}
	return out, r.err
}

// LibraryType identifies the Z-Wave protocol library the firmware was built with.
type LibraryType uint8

const (
	LibraryStaticController LibraryType = 0x01
	LibraryController       LibraryType = 0x02
	LibraryEnhancedEndNode  LibraryType = 0x03
	LibraryEndNode          LibraryType = 0x04
	LibraryInstaller        LibraryType = 0x05
	LibraryRoutingEndNode   LibraryType = 0x06
	LibraryBridgeController LibraryType = 0x07
	LibraryDeviceUnderTest  LibraryType = 0x08
)

func (l LibraryType) String() string {
	switch l {
	case LibraryStaticController:
		return "static_controller"
	case LibraryController:
		return "controller"
	case LibraryEnhancedEndNode:
		return "enhanced_end_node"
	case LibraryEndNode:
		return "end_node"
	case LibraryInstaller:
		return "installer"
	case LibraryRoutingEndNode:
		return "routing_end_node"
	case LibraryBridgeController:
		return "bridge_controller"
	case LibraryDeviceUnderTest:
		return "device_under_test"
	default:
		return fmt.Sprintf("library(0x%02x)", uint8(l))
	}
}

type GetControllerVersionRequest struct {
	noCallback
}

func (GetControllerVersionRequest) Function() FunctionType { return FuncGetControllerVersion }
func (GetControllerVersionRequest) ExpectsResponse() bool  { return true }
func (GetControllerVersionRequest) MatchesResponse(m Message) bool {
	return isResponseTo(FuncGetControllerVersion, m)
}
func (GetControllerVersionRequest) MarshalPayload(uint8) ([]byte, error) { return nil, nil }

// GetControllerVersionResponse carries the NUL-terminated version string
// ("Z-Wave 7.18") followed by the library type.
type GetControllerVersionResponse struct {
	Version     string
	LibraryType LibraryType
}

func (*GetControllerVersionResponse) Type() MessageType      { return TypeResponse }
func (*GetControllerVersionResponse) Function() FunctionType { return FuncGetControllerVersion }

func decodeGetControllerVersionResponse(p []byte) (Message, error) {
	end := bytes.IndexByte(p, 0)
	if end < 0 || end+1 >= len(p) {
		return nil, ErrTruncatedPayload
	}
	return &GetControllerVersionResponse{
		Version:     string(p[:end]),
		LibraryType: LibraryType(p[end+1]),
	}, nil
}

type GetSerialAPICapabilitiesRequest struct {
	noCallback
}

func (GetSerialAPICapabilitiesRequest) Function() FunctionType { return FuncGetSerialAPICapabilities }
func (GetSerialAPICapabilitiesRequest) ExpectsResponse() bool  { return true }
func (GetSerialAPICapabilitiesRequest) MatchesResponse(m Message) bool {
	return isResponseTo(FuncGetSerialAPICapabilities, m)
}
func (GetSerialAPICapabilitiesRequest) MarshalPayload(uint8) ([]byte, error) { return nil, nil }

type GetSerialAPICapabilitiesResponse struct {
	FirmwareVersion    string
	ManufacturerID     uint16
	ProductType        uint16
	ProductID          uint16
	SupportedFunctions []FunctionType
}

func (*GetSerialAPICapabilitiesResponse) Type() MessageType      { return TypeResponse }
func (*GetSerialAPICapabilitiesResponse) Function() FunctionType { return FuncGetSerialAPICapabilities }

func (r *GetSerialAPICapabilitiesResponse) Supports(fn FunctionType) bool {
	return slices.Contains(r.SupportedFunctions, fn)
}

func decodeGetSerialAPICapabilitiesResponse(p []byte) (Message, error) {
	r := newReader(p)
	major, minor := r.u8(), r.u8()
	out := &GetSerialAPICapabilitiesResponse{
		FirmwareVersion: fmt.Sprintf("%d.%d", major, minor),
		ManufacturerID:  r.u16(),
		ProductType:     r.u16(),
		ProductID:       r.u16(),
	}
	if r.err != nil {
		return nil, r.err
	}
	for _, id := range bitmaskIDs(r.rest()) {
		out.SupportedFunctions = append(out.SupportedFunctions, FunctionType(id))
	}
	return out, nil
}

type GetSerialAPIInitDataRequest struct {
	noCallback
}

func (GetSerialAPIInitDataRequest) Function() FunctionType { return FuncGetSerialAPIInitData }
func (GetSerialAPIInitDataRequest) ExpectsResponse() bool  { return true }
func (GetSerialAPIInitDataRequest) MatchesResponse(m Message) bool {
	return isResponseTo(FuncGetSerialAPIInitData, m)
}
func (GetSerialAPIInitDataRequest) MarshalPayload(uint8) ([]byte, error) { return nil, nil }

const (
	initDataEndNodeAPI uint8 = 0x01
	initDataSecondary  uint8 = 0x04
	initDataSIS        uint8 = 0x08
)

type GetSerialAPIInitDataResponse struct {
	APIVersion   uint8
	Capabilities uint8
	NodeIDs      []uint8
	ChipType     uint8
	ChipVersion  uint8
}

func (*GetSerialAPIInitDataResponse) Type() MessageType      { return TypeResponse }
func (*GetSerialAPIInitDataResponse) Function() FunctionType { return FuncGetSerialAPIInitData }

func (r *GetSerialAPIInitDataResponse) IsEndNodeAPI() bool { return r.Capabilities&initDataEndNodeAPI != 0 }
func (r *GetSerialAPIInitDataResponse) IsSecondary() bool  { return r.Capabilities&initDataSecondary != 0 }
func (r *GetSerialAPIInitDataResponse) IsSIS() bool        { return r.Capabilities&initDataSIS != 0 }

func decodeGetSerialAPIInitDataResponse(p []byte) (Message, error) {
	r := newReader(p)
	out := &GetSerialAPIInitDataResponse{APIVersion: r.u8(), Capabilities: r.u8()}
	maskLen := int(r.u8())
	mask := r.take(maskLen)
	if r.err != nil {
		return nil, r.err
	}
	out.NodeIDs = bitmaskIDs(mask)
	if r.remaining() >= 2 {
		out.ChipType, out.ChipVersion = r.u8(), r.u8()
	}
	return out, nil
}

type GetControllerCapabilitiesRequest struct {
	noCallback
}

func (GetControllerCapabilitiesRequest) Function() FunctionType { return FuncGetControllerCapabilities }
func (GetControllerCapabilitiesRequest) ExpectsResponse() bool  { return true }
func (GetControllerCapabilitiesRequest) MatchesResponse(m Message) bool {
	return isResponseTo(FuncGetControllerCapabilities, m)
}
func (GetControllerCapabilitiesRequest) MarshalPayload(uint8) ([]byte, error) { return nil, nil }

const (
	capSecondary      uint8 = 0x01
	capOnOtherNetwork uint8 = 0x02
	capSISPresent     uint8 = 0x04
	capWasRealPrimary uint8 = 0x08
	capSUC            uint8 = 0x10
)

type GetControllerCapabilitiesResponse struct {
	Flags uint8
}

func (*GetControllerCapabilitiesResponse) Type() MessageType      { return TypeResponse }
func (*GetControllerCapabilitiesResponse) Function() FunctionType { return FuncGetControllerCapabilities }

func (r *GetControllerCapabilitiesResponse) IsSecondary() bool      { return r.Flags&capSecondary != 0 }
func (r *GetControllerCapabilitiesResponse) IsOnOtherNetwork() bool { return r.Flags&capOnOtherNetwork != 0 }
func (r *GetControllerCapabilitiesResponse) IsSISPresent() bool     { return r.Flags&capSISPresent != 0 }
func (r *GetControllerCapabilitiesResponse) WasRealPrimary() bool   { return r.Flags&capWasRealPrimary != 0 }
func (r *GetControllerCapabilitiesResponse) IsSUC() bool            { return r.Flags&capSUC != 0 }

func decodeGetControllerCapabilitiesResponse(p []byte) (Message, error) {
	r := newReader(p)
	out := &GetControllerCapabilitiesResponse{Flags: r.u8()}
	return out, r.err
}

// SoftResetRequest restarts the controller firmware. The controller answers
// with an ACK only and later announces itself with SerialAPIStarted.
type SoftResetRequest struct {
	noResponse
	noCallback
}

func (SoftResetRequest) Function() FunctionType               { return FuncSoftReset }
func (SoftResetRequest) MarshalPayload(uint8) ([]byte, error) { return nil, nil }

// SerialAPIStarted is sent unsolicited by the controller after it (re)boots.
type SerialAPIStarted struct {
	WakeUpReason      uint8
	WatchdogStarted   bool
	DeviceOption      uint8
	GenericClass      uint8
	SpecificClass     uint8
	CommandClasses    []byte
	SupportsLongRange bool
}

func (*SerialAPIStarted) Type() MessageType      { return TypeRequest }
func (*SerialAPIStarted) Function() FunctionType { return FuncSerialAPIStarted }

func decodeSerialAPIStarted(p []byte) (Message, error) {
	r := newReader(p)
	out := &SerialAPIStarted{
		WakeUpReason:    r.u8(),
		WatchdogStarted: r.u8() != 0,
		DeviceOption:    r.u8(),
		GenericClass:    r.u8(),
		SpecificClass:   r.u8(),
	}
	out.CommandClasses = r.bytes(int(r.u8()))
	if r.err != nil {
		return nil, r.err
	}
	if r.remaining() > 0 {
		out.SupportsLongRange = r.u8()&0x01 != 0
	}
	return out, nil
}

func decodeEmptyRequest(req Request) func([]byte) (Message, error) {
	return func(p []byte) (Message, error) {
		if len(p) != 0 {
			return nil, fmt.Errorf("%w: unexpected %d payload bytes", ErrInvalidRequest, len(p))
		}
		return Prepare(req, 0)
	}
}

func decodeNodeIDRequest(build func(nodeID uint8) Request) func([]byte) (Message, error) {
	return func(p []byte) (Message, error) {
		r := newReader(p)
		nodeID := r.u8()
		if r.err != nil {
			return nil, r.err
		}
		return Prepare(build(nodeID), 0)
	}
}

func decodeNodeCallbackRequest(build func(nodeID uint8) Request) func([]byte) (Message, error) {
	return func(p []byte) (Message, error) {
		r := newReader(p)
		nodeID, cb := r.u8(), r.u8()
		if r.err != nil {
			return nil, r.err
		}
		return Prepare(build(nodeID), cb)
	}
}
