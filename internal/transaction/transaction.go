package transaction

import (
	"fmt"
	"time"

	"github.com/danmuck/zwavectl/internal/protocol/message"
)

// State is the lifecycle position of a transaction.
type State uint32

const (
	StateQueued State = iota
	StateSending
	StateAwaitingAck
	StateAwaitingReply
	StateAwaitingCallback
	StateResolved
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateSending:
		return "sending"
	case StateAwaitingAck:
		return "awaiting_ack"
	case StateAwaitingReply:
		return "awaiting_reply"
	case StateAwaitingCallback:
		return "awaiting_callback"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", uint32(s))
	}
}

func (s State) Terminal() bool {
	return s == StateResolved || s == StateFailed
}

// Transaction is one submitted request and everything the queue knows about
// it. It is owned by the queue and only touched under the queue mutex.
type Transaction struct {
	contract message.Contract
	prepared *message.Prepared
	wire     []byte
	priority Priority
	seq      uint64
	index    int

	state       State
	attempts    int
	maxAttempts int
	submittedAt time.Time

	timer *time.Timer
	gen   uint64

	reply     message.Message
	callbacks []message.Message

	pending *Pending
}

func (tx *Transaction) setState(s State) {
	tx.state = s
	tx.pending.state.Store(uint32(s))
}

func (tx *Transaction) stopTimer() {
	tx.gen++
	if tx.timer != nil {
		tx.timer.Stop()
		tx.timer = nil
	}
}

func (tx *Transaction) result() Result {
	return Result{
		Function:   tx.contract.Function,
		CallbackID: tx.prepared.CallbackID(),
		Attempts:   tx.attempts,
		Reply:      tx.reply,
		Callbacks:  tx.callbacks,
	}
}

// Snapshot is a read-only view of a live transaction.
type Snapshot struct {
	Function   message.FunctionType
	CallbackID uint8
	NodeID     uint8
	Priority   Priority
	State      State
	Attempts   int
	Age        time.Duration
}

func (tx *Transaction) snapshot(now time.Time) Snapshot {
	return Snapshot{
		Function:   tx.contract.Function,
		CallbackID: tx.prepared.CallbackID(),
		NodeID:     tx.contract.TargetNodeID(),
		Priority:   tx.priority,
		State:      tx.state,
		Attempts:   tx.attempts,
		Age:        now.Sub(tx.submittedAt),
	}
}
