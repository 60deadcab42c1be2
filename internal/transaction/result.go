package transaction

import (
	"context"
	"sync/atomic"

	"github.com/danmuck/zwavectl/internal/protocol/message"
)

// Result is what a resolved transaction delivers. Reply is nil when no
// response was expected; Callbacks holds every matched callback in arrival
// order, the final one last.
type Result struct {
	Function   message.FunctionType
	CallbackID uint8
	Attempts   int
	Reply      message.Message
	Callbacks  []message.Message
}

// Final returns the message that completed the transaction: the last
// callback, else the reply, else nil for ack-only operations.
func (r Result) Final() message.Message {
	if n := len(r.Callbacks); n > 0 {
		return r.Callbacks[n-1]
	}
	return r.Reply
}

// Success is the semantic outcome of the final message.
func (r Result) Success() bool {
	return message.Succeeded(r.Final())
}

// Pending is the submitter's handle on a transaction.
type Pending struct {
	callbackID uint8
	function   message.FunctionType
	state      atomic.Uint32
	done       chan struct{}
	result     Result
	err        error

	tx *Transaction
}

func newPending(fn message.FunctionType, callbackID uint8) *Pending {
	return &Pending{function: fn, callbackID: callbackID, done: make(chan struct{})}
}

func (p *Pending) Function() message.FunctionType { return p.function }
func (p *Pending) CallbackID() uint8              { return p.callbackID }
func (p *Pending) State() State                   { return State(p.state.Load()) }

// Done is closed once the transaction resolved or failed.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the transaction settles or ctx ends. A ctx error does
// not cancel the transaction; see Queue.Send.
func (p *Pending) Wait(ctx context.Context) (Result, error) {
	select {
	case <-p.done:
		return p.result, p.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Settled reports whether Done is closed.
func (p *Pending) Settled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}
