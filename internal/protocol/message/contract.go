package message

import (
	"fmt"
	"slices"
)

// Contract is the operation contract of one request instance, evaluated once
// at submission so later changes to the Host do not alter a pending
// transaction.
type Contract struct {
	Function        FunctionType
	ExpectsResponse bool
	ExpectsCallback bool
	// UsesCallbackID is false when the callback is matched by content only.
	UsesCallbackID bool
	// ExclusiveCallback allows one transaction of this function in the
	// callback table at a time.
	ExclusiveCallback bool

	request Request
	aliases []FunctionType
}

func ContractFor(req Request, h Host) Contract {
	c := Contract{
		Function:        req.Function(),
		ExpectsResponse: req.ExpectsResponse(),
		ExpectsCallback: req.ExpectsCallback(h),
		request:         req,
	}
	_, uncorrelated := req.(UncorrelatedCallback)
	c.UsesCallbackID = c.ExpectsCallback && !uncorrelated
	c.ExclusiveCallback = c.ExpectsCallback && uncorrelated
	if a, ok := req.(CallbackAliaser); ok {
		c.aliases = slices.Clone(a.CallbackAliases())
	}
	return c
}

// LookupContract returns the contract of a prepared request.
func LookupContract(m Message, h Host) (Contract, error) {
	p, ok := m.(*Prepared)
	if !ok {
		return Contract{}, fmt.Errorf("%w: %T", ErrNoContract, m)
	}
	return ContractFor(p.Request(), h), nil
}

func (c Contract) MatchesResponse(m Message) bool {
	return c.request.MatchesResponse(m)
}

func (c Contract) MatchesCallback(callbackID uint8, m Message) bool {
	return c.request.MatchesCallback(callbackID, m)
}

// IsFinalCallback defaults to true for requests that complete in one callback.
func (c Contract) IsFinalCallback(m Message) bool {
	if f, ok := c.request.(FinalCallbackReporter); ok {
		return f.IsFinalCallback(m)
	}
	return true
}

// MatchesAliasedCallback accepts a callback carrying an aliased function code
// when its callback id equals the one the request was sent with.
func (c Contract) MatchesAliasedCallback(callbackID uint8, m Message) bool {
	if callbackID == 0 || m == nil || m.Type() != TypeRequest {
		return false
	}
	if !slices.Contains(c.aliases, m.Function()) {
		return false
	}
	cb, ok := m.(CallbackCarrier)
	return ok && cb.CallbackID() == callbackID
}

// TargetNodeID returns the node a request addresses, 0 when it has none.
func (c Contract) TargetNodeID() uint8 {
	if n, ok := c.request.(NodeTargeted); ok {
		return n.TargetNodeID()
	}
	return 0
}
