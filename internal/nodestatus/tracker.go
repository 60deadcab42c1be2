// Package nodestatus derives node reachability from settled transactions.
// The transaction queue reports outcomes; only this package judges whether a
// node is alive.
package nodestatus

import (
	"sort"
	"sync"
	"time"

	logs "github.com/danmuck/zwavectl/internal/logging"
	"github.com/danmuck/zwavectl/internal/protocol/message"
	"github.com/danmuck/zwavectl/internal/transaction"
)

const DefaultDeadAfter = 3

type Status uint8

const (
	StatusUnknown Status = iota
	StatusAlive
	StatusDead
)

func (s Status) String() string {
	switch s {
	case StatusAlive:
		return "alive"
	case StatusDead:
		return "dead"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Node is a point-in-time view of one node.
type Node struct {
	ID                  uint8     `json:"id"`
	Status              Status    `json:"status"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastSuccess         time.Time `json:"last_success,omitzero"`
	LastFailure         time.Time `json:"last_failure,omitzero"`
}

// reachability lists the functions whose outcome reports whether the node
// itself answered over the radio.
var reachability = map[message.FunctionType]bool{
	message.FuncSendData:             true,
	message.FuncRequestNodeInfo:      true,
	message.FuncAssignReturnRoute:    true,
	message.FuncDeleteReturnRoute:    true,
	message.FuncAssignSUCReturnRoute: true,
	message.FuncDeleteSUCReturnRoute: true,
}

// Tracker is a transaction.Observer. A success marks the node alive; DeadAfter
// consecutive semantic failures mark it dead. Only reachability functions
// count. Timeouts, cancellations and local failures leave the node unchanged.
// A node removed with RemoveFailedNode is forgotten.
type Tracker struct {
	mu        sync.Mutex
	deadAfter int
	nodes     map[uint8]*Node
	now       func() time.Time
}

func NewTracker(deadAfter int) *Tracker {
	if deadAfter <= 0 {
		deadAfter = DefaultDeadAfter
	}
	return &Tracker{
		deadAfter: deadAfter,
		nodes:     make(map[uint8]*Node),
		now:       time.Now,
	}
}

// Seed registers node ids the controller reported so they are listed before
// any traffic reaches them.
func (t *Tracker) Seed(ids ...int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range ids {
		if id <= 0 || id > 0xFF {
			continue
		}
		t.node(uint8(id))
	}
}

func (t *Tracker) Settled(o transaction.Outcome) {
	if o.NodeID == 0 {
		return
	}
	if o.Function == message.FuncRemoveFailedNode && o.Kind == transaction.OutcomeSuccess {
		logs.Infof("nodestatus.Tracker.Settled node_id=%d removed", o.NodeID)
		t.Forget(o.NodeID)
		return
	}
	if !reachability[o.Function] {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.node(o.NodeID)
	prev := n.Status
	switch o.Kind {
	case transaction.OutcomeSuccess:
		n.Status = StatusAlive
		n.ConsecutiveFailures = 0
		n.LastSuccess = t.now()
	case transaction.OutcomeSemanticFailure:
		n.ConsecutiveFailures++
		n.LastFailure = t.now()
		if n.ConsecutiveFailures >= t.deadAfter {
			n.Status = StatusDead
		}
	default:
		return
	}
	if n.Status != prev {
		logs.Infof(
			"nodestatus.Tracker.Settled node_id=%d status=%s->%s function=%s failures=%d",
			n.ID, prev, n.Status, o.Function, n.ConsecutiveFailures,
		)
	}
}

func (t *Tracker) Get(id uint8) (Node, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Forget drops a node, e.g. after it was removed from the network.
func (t *Tracker) Forget(id uint8) {
	t.mu.Lock()
	delete(t.nodes, id)
	t.mu.Unlock()
}

// List returns every known node ordered by id.
func (t *Tracker) List() []Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Node, 0, len(t.nodes))
	for _, n := range t.nodes {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

func (t *Tracker) node(id uint8) *Node {
	n, ok := t.nodes[id]
	if !ok {
		n = &Node{ID: id}
		t.nodes[id] = n
	}
	return n
}
