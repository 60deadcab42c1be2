package transaction

import (
	"cmp"
	"container/heap"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"slices"
	"sync"
	"time"

	logs "github.com/danmuck/zwavectl/internal/logging"
	"github.com/danmuck/zwavectl/internal/protocol/callbackid"
	"github.com/danmuck/zwavectl/internal/protocol/frame"
	"github.com/danmuck/zwavectl/internal/protocol/message"
)

// Hooks connects the queue to the rest of the driver.
type Hooks struct {
	// Host answers contract questions that depend on the controller.
	Host message.Host
	// Unsolicited receives every message no transaction claimed.
	Unsolicited func(m message.Message)
	Observers   []Observer
}

// Queue serializes Serial API transactions over one writer.
type Queue struct {
	mu    sync.Mutex
	cfg   Config
	w     io.Writer
	hooks Hooks
	ids   *callbackid.Pool
	rng   *rand.Rand

	queued   txHeap
	active   *Transaction
	awaiting []*Transaction
	seq      uint64
	closed   bool

	// effects run in order after mu is released.
	effects []func()
}

// Stats is a point-in-time count of queue occupancy.
type Stats struct {
	Queued           int
	InFlight         int
	AwaitingCallback int
	CallbackIDsInUse int
}

func NewQueue(cfg Config, w io.Writer, hooks Hooks) *Queue {
	return &Queue{
		cfg:   cfg.WithDefaults(),
		w:     w,
		hooks: hooks,
		ids:   callbackid.NewPool(),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (q *Queue) Config() Config { return q.cfg }

func (q *Queue) unlock() {
	fx := q.effects
	q.effects = nil
	q.mu.Unlock()
	for _, f := range fx {
		f()
	}
}

// Submit snapshots the request's contract, reserves a callback id when one
// is expected, prepares the wire bytes and queues the transaction.
func (q *Queue) Submit(req message.Request, priority Priority) (*Pending, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", message.ErrInvalidRequest)
	}
	q.mu.Lock()
	defer q.unlock()
	if q.closed {
		return nil, ErrQueueClosed
	}
	return q.submit(req, priority)
}

func (q *Queue) submit(req message.Request, priority Priority) (*Pending, error) {
	contract := message.ContractFor(req, q.hooks.Host)
	cbID := callbackid.None
	if contract.UsesCallbackID {
		id, err := q.ids.Acquire()
		if err != nil {
			return nil, fmt.Errorf("transaction: submit %s: %w", contract.Function, err)
		}
		cbID = id
	}
	prepared, err := message.Prepare(req, cbID)
	if err != nil {
		q.ids.Release(cbID)
		return nil, err
	}
	wire, err := prepared.Bytes()
	if err != nil {
		q.ids.Release(cbID)
		return nil, fmt.Errorf("transaction: encode %s: %w", contract.Function, err)
	}

	q.seq++
	tx := &Transaction{
		contract:    contract,
		prepared:    prepared,
		wire:        wire,
		priority:    priority,
		seq:         q.seq,
		index:       -1,
		maxAttempts: q.cfg.MaxSendAttempts,
		submittedAt: time.Now(),
		pending:     newPending(contract.Function, cbID),
	}
	tx.pending.tx = tx
	tx.setState(StateQueued)
	heap.Push(&q.queued, tx)
	logs.Debugf(
		"transaction.Queue.Submit function=%s priority=%s callback_id=%d queued=%d",
		contract.Function, priority, cbID, q.queued.Len(),
	)
	q.pump()
	return tx.pending, nil
}

// Send submits req and waits for its outcome. When ctx ends first the
// transaction is cancelled.
func (q *Queue) Send(ctx context.Context, req message.Request, priority Priority) (Result, error) {
	p, err := q.Submit(req, priority)
	if err != nil {
		return Result{}, err
	}
	select {
	case <-p.done:
	case <-ctx.Done():
		q.Cancel(p, ctx.Err())
		<-p.done
	}
	return p.result, p.err
}

// Cancel fails a live transaction with ErrCancelled. It reports false when
// the transaction had already settled.
func (q *Queue) Cancel(p *Pending, cause error) bool {
	if p == nil {
		return false
	}
	q.mu.Lock()
	defer q.unlock()
	tx := p.tx
	if tx == nil || tx.state.Terminal() {
		return false
	}
	q.settle(tx, StateFailed, newError(tx, KindCancelled, cause))
	q.pump()
	return true
}

// HandleControl feeds an ACK, NAK or CAN from the controller.
func (q *Queue) HandleControl(kind frame.Kind) {
	q.mu.Lock()
	defer q.unlock()
	tx := q.active
	if tx == nil || tx.state != StateAwaitingAck {
		logs.Debugf("transaction.Queue.HandleControl unexpected kind=%s", kind)
		return
	}
	switch kind {
	case frame.KindAck:
		q.onAck(tx)
	case frame.KindNak:
		q.retry(tx, KindTimeout, ErrNak)
	case frame.KindCan:
		q.retry(tx, KindTimeout, ErrCan)
	}
}

// HandleMessage routes a parsed controller message to the transaction it
// belongs to, or to the unsolicited sink.
func (q *Queue) HandleMessage(m message.Message) {
	if m == nil {
		return
	}
	q.mu.Lock()
	defer q.unlock()

	if tx := q.active; tx != nil && tx.contract.ExpectsResponse && tx.contract.MatchesResponse(m) {
		switch tx.state {
		case StateAwaitingReply:
			q.onReply(tx, m)
			return
		case StateAwaitingAck:
			// the reply implies the ACK was lost
			logs.Debugf("transaction.Queue.HandleMessage implied_ack function=%s", tx.contract.Function)
			q.onReply(tx, m)
			return
		}
	}
	for _, tx := range q.awaiting {
		if q.matchesCallback(tx, m) {
			q.onCallback(tx, m)
			return
		}
	}
	if sink := q.hooks.Unsolicited; sink != nil {
		q.effects = append(q.effects, func() { sink(m) })
	}
}

// HandleParseError fails the transaction waiting for a frame that could not
// be deserialized. Other parse errors are dropped.
func (q *Queue) HandleParseError(err error) {
	var pe *message.ParseError
	if !errors.As(err, &pe) || !errors.Is(err, message.ErrDeserializationNotImplemented) {
		logs.Debugf("transaction.Queue.HandleParseError dropped err=%v", err)
		return
	}
	q.mu.Lock()
	defer q.unlock()

	if pe.Type == message.TypeResponse {
		tx := q.active
		if tx != nil && tx.contract.ExpectsResponse && tx.contract.Function == pe.Function &&
			(tx.state == StateAwaitingReply || tx.state == StateAwaitingAck) {
			q.fail(tx, KindUnparsable, err)
			return
		}
	} else {
		for _, tx := range q.awaiting {
			if tx.contract.Function == pe.Function {
				q.fail(tx, KindUnparsable, err)
				return
			}
		}
	}
	logs.Warnf("transaction.Queue.HandleParseError unclaimed function=%s type=%s", pe.Function, pe.Type)
}

// CancelAll fails every live transaction with ErrCancelled and releases all
// callback ids. The queue stays open.
func (q *Queue) CancelAll(reason string) {
	q.mu.Lock()
	defer q.unlock()
	q.cancelAll(reason)
}

// Close cancels everything and rejects later submissions.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.cancelAll("queue closed")
}

// Snapshot lists live transactions in submission order.
func (q *Queue) Snapshot() []Snapshot {
	q.mu.Lock()
	defer q.unlock()
	now := time.Now()
	live := q.live()
	out := make([]Snapshot, 0, len(live))
	for _, tx := range live {
		out = append(out, tx.snapshot(now))
	}
	return out
}

func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.unlock()
	s := Stats{
		Queued:           q.queued.Len(),
		AwaitingCallback: len(q.awaiting),
		CallbackIDsInUse: q.ids.InUse(),
	}
	if q.active != nil {
		s.InFlight = 1
	}
	return s
}

// pump starts the best queued transaction when the send slot is free.
// Transactions whose callback could be confused with one already waiting
// stay queued until it settles.
func (q *Queue) pump() {
	if q.closed || q.active != nil {
		return
	}
	var next *Transaction
	var held []*Transaction
	for q.queued.Len() > 0 {
		tx := heap.Pop(&q.queued).(*Transaction)
		if q.callbackBusy(tx) {
			held = append(held, tx)
			continue
		}
		next = tx
		break
	}
	for _, tx := range held {
		heap.Push(&q.queued, tx)
	}
	if next == nil {
		return
	}
	q.active = next
	q.transmit(next)
}

func (q *Queue) callbackBusy(tx *Transaction) bool {
	if !tx.contract.ExclusiveCallback {
		return false
	}
	return slices.ContainsFunc(q.awaiting, func(w *Transaction) bool {
		return w.contract.ExclusiveCallback && w.contract.Function == tx.contract.Function
	})
}

// arm runs fn under the queue lock after d. Stopping or re-arming the
// transaction's timer first turns the pending call into a no-op.
func (q *Queue) arm(tx *Transaction, d time.Duration, fn func()) {
	tx.stopTimer()
	gen := tx.gen
	tx.timer = time.AfterFunc(d, func() {
		q.mu.Lock()
		defer q.unlock()
		if tx.gen != gen || tx.state.Terminal() {
			return
		}
		fn()
	})
}

func (q *Queue) transmit(tx *Transaction) {
	tx.attempts++
	tx.setState(StateSending)
	if _, err := q.w.Write(tx.wire); err != nil {
		logs.Warnf(
			"transaction.Queue.transmit function=%s attempt=%d err=%v",
			tx.contract.Function, tx.attempts, err,
		)
		q.retry(tx, KindWrite, err)
		return
	}
	logs.Tracef("transaction.Queue.transmit function=%s attempt=%d bytes=% x", tx.contract.Function, tx.attempts, tx.wire)
	tx.setState(StateAwaitingAck)
	q.arm(tx, q.cfg.AckTimeout, func() {
		q.retry(tx, KindTimeout, ErrAckTimeout)
	})
}

// retry re-sends the same prepared bytes after the backoff delay, or fails
// the transaction once its attempts are spent.
func (q *Queue) retry(tx *Transaction, kind ErrorKind, cause error) {
	tx.stopTimer()
	if tx.attempts >= tx.maxAttempts {
		q.fail(tx, kind, cause)
		return
	}
	delay := q.cfg.Backoff.Delay(tx.attempts, q.rng)
	logs.Debugf(
		"transaction.Queue.retry function=%s attempt=%d delay=%s cause=%v",
		tx.contract.Function, tx.attempts, delay, cause,
	)
	tx.setState(StateSending)
	q.arm(tx, delay, func() { q.transmit(tx) })
}

func (q *Queue) onAck(tx *Transaction) {
	tx.stopTimer()
	switch {
	case tx.contract.ExpectsResponse:
		tx.setState(StateAwaitingReply)
		q.arm(tx, q.cfg.ResponseTimeout, func() {
			q.retry(tx, KindTimeout, ErrResponseTimeout)
		})
	case tx.contract.ExpectsCallback:
		q.awaitCallbacks(tx)
	default:
		q.resolve(tx)
	}
}

func (q *Queue) onReply(tx *Transaction, m message.Message) {
	tx.stopTimer()
	tx.reply = m
	// a reply reporting failure means no callback will follow
	if tx.contract.ExpectsCallback && message.Succeeded(m) {
		q.awaitCallbacks(tx)
		return
	}
	q.resolve(tx)
}

func (q *Queue) awaitCallbacks(tx *Transaction) {
	tx.setState(StateAwaitingCallback)
	if q.active == tx {
		q.active = nil
	}
	i, _ := slices.BinarySearchFunc(q.awaiting, tx.seq, func(t *Transaction, seq uint64) int {
		return cmp.Compare(t.seq, seq)
	})
	q.awaiting = slices.Insert(q.awaiting, i, tx)
	q.armCallbackTimeout(tx)
	q.pump()
}

func (q *Queue) armCallbackTimeout(tx *Transaction) {
	q.arm(tx, q.cfg.CallbackTimeout, func() {
		q.fail(tx, KindTimeout, ErrCallbackTimeout)
		if tx.contract.Function == message.FuncSendData {
			q.abortSendData()
		}
	})
}

// abortSendData stops the controller's stalled transmission so the radio is
// free for the next transaction. The abort has no reply or callback.
func (q *Queue) abortSendData() {
	if q.closed {
		return
	}
	if _, err := q.submit(message.SendDataAbortRequest{}, PriorityImmediate); err != nil {
		logs.Warnf("transaction.Queue.abortSendData err=%v", err)
	}
}

func (q *Queue) matchesCallback(tx *Transaction, m message.Message) bool {
	id := tx.prepared.CallbackID()
	if tx.contract.MatchesCallback(id, m) {
		return true
	}
	if q.cfg.TolerateCallbackFunctionMismatch && tx.contract.MatchesAliasedCallback(id, m) {
		logs.Warnf(
			"transaction.Queue.matchesCallback aliased function=%s got=%s callback_id=%d",
			tx.contract.Function, m.Function(), id,
		)
		return true
	}
	return false
}

func (q *Queue) onCallback(tx *Transaction, m message.Message) {
	tx.callbacks = append(tx.callbacks, m)
	if !tx.contract.IsFinalCallback(m) {
		q.armCallbackTimeout(tx)
		return
	}
	q.resolve(tx)
}

func (q *Queue) resolve(tx *Transaction) {
	q.settle(tx, StateResolved, nil)
	q.pump()
}

func (q *Queue) fail(tx *Transaction, kind ErrorKind, cause error) {
	err := newError(tx, kind, cause)
	logs.Warnf("transaction.Queue.fail %v", err)
	q.settle(tx, StateFailed, err)
	q.pump()
}

func newError(tx *Transaction, kind ErrorKind, cause error) *Error {
	return &Error{
		Kind:       kind,
		Function:   tx.contract.Function,
		CallbackID: tx.prepared.CallbackID(),
		Attempts:   tx.attempts,
		Stage:      tx.state,
		Cause:      cause,
	}
}

// settle moves tx to a terminal state exactly once and schedules delivery.
// It does not pump.
func (q *Queue) settle(tx *Transaction, state State, failure *Error) {
	if tx.state.Terminal() {
		return
	}
	tx.stopTimer()
	tx.setState(state)
	q.ids.Release(tx.prepared.CallbackID())
	q.detach(tx)

	p := tx.pending
	p.result = tx.result()
	outcome := Outcome{
		Function:   tx.contract.Function,
		NodeID:     tx.contract.TargetNodeID(),
		CallbackID: tx.prepared.CallbackID(),
		Attempts:   tx.attempts,
		Duration:   time.Since(tx.submittedAt),
	}
	switch {
	case failure != nil:
		p.err = failure
		outcome.Kind = outcomeKindFor(failure.Kind)
		outcome.Err = failure
	case p.result.Success():
		outcome.Kind = OutcomeSuccess
	default:
		outcome.Kind = OutcomeSemanticFailure
	}
	logs.Debugf(
		"transaction.Queue.settle function=%s state=%s outcome=%s attempts=%d",
		outcome.Function, state, outcome.Kind, outcome.Attempts,
	)
	observers := q.hooks.Observers
	q.effects = append(q.effects, func() {
		close(p.done)
		for _, o := range observers {
			o.Settled(outcome)
		}
	})
}

func (q *Queue) detach(tx *Transaction) {
	if tx.index >= 0 {
		heap.Remove(&q.queued, tx.index)
	}
	if q.active == tx {
		q.active = nil
	}
	if i := slices.Index(q.awaiting, tx); i >= 0 {
		q.awaiting = slices.Delete(q.awaiting, i, i+1)
	}
}

func (q *Queue) live() []*Transaction {
	out := make([]*Transaction, 0, q.queued.Len()+len(q.awaiting)+1)
	out = append(out, q.queued...)
	out = append(out, q.awaiting...)
	if q.active != nil {
		out = append(out, q.active)
	}
	slices.SortFunc(out, func(a, b *Transaction) int {
		return cmp.Compare(a.seq, b.seq)
	})
	return out
}

func (q *Queue) cancelAll(reason string) {
	cause := errors.New(reason)
	live := q.live()
	for _, tx := range live {
		q.settle(tx, StateFailed, newError(tx, KindCancelled, cause))
	}
	q.queued = q.queued[:0]
	q.active = nil
	q.awaiting = nil
	q.ids.Reset()
	if len(live) > 0 {
		logs.Infof("transaction.Queue.cancelAll reason=%q cancelled=%d", reason, len(live))
	}
}
