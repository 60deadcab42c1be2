package transaction

import (
	"time"

	"github.com/danmuck/zwavectl/internal/protocol/message"
)

// OutcomeKind is how a transaction settled, as seen by liveness tracking.
type OutcomeKind uint8

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeSemanticFailure
	OutcomeTimeout
	OutcomeCancelled
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeSemanticFailure:
		return "semantic_failure"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// Outcome describes one settled transaction. NodeID is 0 when the request
// does not address a node.
type Outcome struct {
	Function   message.FunctionType
	NodeID     uint8
	CallbackID uint8
	Kind       OutcomeKind
	Attempts   int
	Duration   time.Duration
	Err        error
}

// Observer receives every settled transaction. Settled runs outside the
// queue lock and must not block.
type Observer interface {
	Settled(o Outcome)
}

type ObserverFunc func(o Outcome)

func (f ObserverFunc) Settled(o Outcome) { f(o) }

func outcomeKindFor(kind ErrorKind) OutcomeKind {
	switch kind {
	case KindTimeout:
		return OutcomeTimeout
	case KindCancelled:
		return OutcomeCancelled
	default:
		return OutcomeFailed
	}
}
