package message

// Receive status flags of ApplicationCommand.
const (
	RxStatusRoutedBusy  uint8 = 0x01
	RxStatusLowPower    uint8 = 0x02
	RxStatusBroadcast   uint8 = 0x04
	RxStatusMulticast   uint8 = 0x08
	RxStatusExplore     uint8 = 0x10
	RxStatusForeignHome uint8 = 0x40
)

// ApplicationCommandRequest carries a command class frame received from a
// node. Command is left encoded for the command class layer.
type ApplicationCommandRequest struct {
	RxStatus     uint8
	SourceNodeID uint8
	Command      []byte
	RSSI         int8
	HasRSSI      bool
}

func (*ApplicationCommandRequest) Type() MessageType      { return TypeRequest }
func (*ApplicationCommandRequest) Function() FunctionType { return FuncApplicationCommand }

func (a *ApplicationCommandRequest) IsBroadcast() bool { return a.RxStatus&RxStatusBroadcast != 0 }
func (a *ApplicationCommandRequest) IsMulticast() bool { return a.RxStatus&RxStatusMulticast != 0 }

func decodeApplicationCommandRequest(p []byte) (Message, error) {
	r := newReader(p)
	out := &ApplicationCommandRequest{RxStatus: r.u8(), SourceNodeID: r.u8()}
	out.Command = r.bytes(int(r.u8()))
	if r.err != nil {
		return nil, r.err
	}
	if r.remaining() > 0 {
		out.RSSI = int8(r.u8())
		out.HasRSSI = true
	}
	return out, nil
}
