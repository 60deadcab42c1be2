package transaction

import "fmt"

// Priority orders queued transactions; lower values are sent first.
type Priority uint8

const (
	PriorityImmediate Priority = iota
	PriorityController
	PriorityMultistepController
	PriorityPing
	PriorityNormal
	PriorityNodeQuery
	PriorityPoll
)

func (p Priority) String() string {
	switch p {
	case PriorityImmediate:
		return "immediate"
	case PriorityController:
		return "controller"
	case PriorityMultistepController:
		return "multistep_controller"
	case PriorityPing:
		return "ping"
	case PriorityNormal:
		return "normal"
	case PriorityNodeQuery:
		return "node_query"
	case PriorityPoll:
		return "poll"
	default:
		return fmt.Sprintf("priority(%d)", uint8(p))
	}
}

// txHeap implements container/heap ordered by (priority, submission seq).
type txHeap []*Transaction

func (h txHeap) Len() int { return len(h) }

func (h txHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h txHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *txHeap) Push(x any) {
	tx := x.(*Transaction)
	tx.index = len(*h)
	*h = append(*h, tx)
}

func (h *txHeap) Pop() any {
	old := *h
	n := len(old)
	tx := old[n-1]
	old[n-1] = nil
	tx.index = -1
	*h = old[:n-1]
	return tx
}
