package callbackid

import (
	"errors"
	"testing"

	"github.com/danmuck/zwavectl/internal/testutil/testlog"
)

func TestAcquireCyclesFromOne(t *testing.T) {
	testlog.Start(t)
	p := NewPool()
	for want := uint8(1); want <= 3; want++ {
		got, err := p.Acquire()
		if err != nil {
			t.Fatalf("acquire: %v", err)
		}
		if got != want {
			t.Fatalf("acquire got=%d want=%d", got, want)
		}
		p.Release(got)
	}
	if p.InUse() != 0 {
		t.Fatalf("in use got=%d want=0", p.InUse())
	}
}

func TestAcquireWrapsAndSkipsHeldIDs(t *testing.T) {
	testlog.Start(t)
	p := NewPool()
	first, _ := p.Acquire() // 1 stays held
	for i := 0; i < 253; i++ {
		id, err := p.Acquire()
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		p.Release(id)
	}
	last, _ := p.Acquire()
	if last != 255 {
		t.Fatalf("expected 255 before wrap, got %d", last)
	}
	p.Release(last)
	next, err := p.Acquire()
	if err != nil {
		t.Fatalf("acquire after wrap: %v", err)
	}
	if next == first {
		t.Fatalf("reissued held id %d", first)
	}
	if next != 2 {
		t.Fatalf("expected 2 after skipping held 1, got %d", next)
	}
}

func TestAcquireExhaustion(t *testing.T) {
	testlog.Start(t)
	p := NewPool()
	seen := make(map[uint8]bool)
	for i := 0; i < 255; i++ {
		id, err := p.Acquire()
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		if id == None || seen[id] {
			t.Fatalf("invalid or duplicate id %d", id)
		}
		seen[id] = true
	}
	if _, err := p.Acquire(); !errors.Is(err, ErrNoIDsAvailable) {
		t.Fatalf("expected ErrNoIDsAvailable, got %v", err)
	}
	p.Release(77)
	id, err := p.Acquire()
	if err != nil || id != 77 {
		t.Fatalf("expected freed id 77, got id=%d err=%v", id, err)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	testlog.Start(t)
	p := NewPool()
	id, _ := p.Acquire()
	p.Release(id)
	p.Release(id)
	p.Release(None)
	p.Release(200)
	if p.InUse() != 0 {
		t.Fatalf("in use got=%d want=0", p.InUse())
	}
	if p.Held(id) {
		t.Fatalf("id %d still held", id)
	}
}

func TestResetReleasesAll(t *testing.T) {
	testlog.Start(t)
	p := NewPool()
	a, _ := p.Acquire()
	b, _ := p.Acquire()
	p.Reset()
	if p.Held(a) || p.Held(b) || p.InUse() != 0 {
		t.Fatalf("reset left ids held")
	}
	c, _ := p.Acquire()
	if c != 3 {
		t.Fatalf("expected cursor to continue at 3, got %d", c)
	}
}
