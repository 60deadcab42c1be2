package message

import "fmt"

// NVMOperation selects what NVMBackupRestore does.
type NVMOperation uint8

const (
	NVMOpen  NVMOperation = 0x00
	NVMRead  NVMOperation = 0x01
	NVMWrite NVMOperation = 0x02
	NVMClose NVMOperation = 0x03
)

// NVMBackupRestoreRequest drives one step of an NVM backup or restore.
// Length is the read size; writes send len(Data). Responses are not decoded
// here: their content belongs to the backup layer.
type NVMBackupRestoreRequest struct {
	noCallback
	Operation NVMOperation
	Length    uint8
	Offset    uint16
	Data      []byte
}

func (NVMBackupRestoreRequest) Function() FunctionType { return FuncNVMBackupRestore }
func (NVMBackupRestoreRequest) ExpectsResponse() bool  { return true }
func (NVMBackupRestoreRequest) MatchesResponse(m Message) bool {
	return isResponseTo(FuncNVMBackupRestore, m)
}

func (r NVMBackupRestoreRequest) MarshalPayload(uint8) ([]byte, error) {
	switch r.Operation {
	case NVMOpen, NVMClose:
		return []byte{byte(r.Operation)}, nil
	case NVMRead:
		return []byte{byte(r.Operation), r.Length, byte(r.Offset >> 8), byte(r.Offset)}, nil
	case NVMWrite:
		if len(r.Data) > 0xFF {
			return nil, fmt.Errorf("%w: nvm write=%d", ErrPayloadTooLarge, len(r.Data))
		}
		out := []byte{byte(r.Operation), byte(len(r.Data)), byte(r.Offset >> 8), byte(r.Offset)}
		return append(out, r.Data...), nil
	default:
		return nil, fmt.Errorf("%w: nvm operation 0x%02x", ErrInvalidRequest, uint8(r.Operation))
	}
}

func decodeNVMBackupRestoreRequest(p []byte) (Message, error) {
	r := newReader(p)
	req := NVMBackupRestoreRequest{Operation: NVMOperation(r.u8())}
	switch req.Operation {
	case NVMRead:
		req.Length = r.u8()
		req.Offset = r.u16()
	case NVMWrite:
		n := int(r.u8())
		req.Offset = r.u16()
		req.Data = r.bytes(n)
	}
	if r.err != nil {
		return nil, r.err
	}
	return Prepare(req, 0)
}

func decodeNVMBackupRestoreResponse([]byte) (Message, error) {
	return nil, ErrDeserializationNotImplemented
}
