// Package callbackid issues the one-byte correlation ids that link a Serial
// API request to its asynchronous callbacks.
package callbackid

import (
	"errors"
	"sync"
)

// None is the wire value for "no callback requested".
const None uint8 = 0

const (
	minID = 1
	maxID = 255
)

var ErrNoIDsAvailable = errors.New("callbackid: all ids in use")

// Pool hands out ids 1..255 in cyclic order and never reissues an id that is
// still held.
type Pool struct {
	mu    sync.Mutex
	next  uint8
	held  [maxID + 1]bool
	inUse int
}

func NewPool() *Pool {
	return &Pool{next: minID}
}

func (p *Pool) Acquire() (uint8, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inUse >= maxID {
		return None, ErrNoIDsAvailable
	}
	for range maxID {
		id := p.next
		p.advance()
		if p.held[id] {
			continue
		}
		p.held[id] = true
		p.inUse++
		return id, nil
	}
	return None, ErrNoIDsAvailable
}

// Release returns id to the pool. Releasing None or an id that is not held
// is a no-op.
func (p *Pool) Release(id uint8) {
	if id == None {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.held[id] {
		return
	}
	p.held[id] = false
	p.inUse--
}

// Held reports whether id is currently assigned.
func (p *Pool) Held(id uint8) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.held[id]
}

func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse
}

// Reset releases every id. The cyclic cursor keeps its position so ids from
// before the reset are not immediately reused.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.held = [maxID + 1]bool{}
	p.inUse = 0
}

func (p *Pool) advance() {
	if p.next == maxID {
		p.next = minID
		return
	}
	p.next++
}
