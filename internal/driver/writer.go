package driver

import (
	"io"
	"sync"

	"github.com/danmuck/zwavectl/internal/protocol/frame"
)

// FrameObserver counts frames crossing the link. direction is "in" or "out";
// kind is a frame.Kind or frame.EventKind name.
type FrameObserver interface {
	ObserveFrame(direction, kind string)
}

// lockedWriter serializes the queue's data frames and the reader's ACK/NAK
// replies onto the port.
type lockedWriter struct {
	mu     sync.Mutex
	w      io.Writer
	frames FrameObserver
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	n, err := l.w.Write(p)
	l.mu.Unlock()
	if err == nil && len(p) > 0 && l.frames != nil {
		l.frames.ObserveFrame("out", outboundKind(p[0]).String())
	}
	return n, err
}

func (l *lockedWriter) writeControl(f frame.Frame) error {
	b, err := frame.Encode(f)
	if err != nil {
		return err
	}
	_, err = l.Write(b)
	return err
}

func outboundKind(first byte) frame.Kind {
	switch first {
	case frame.ACK:
		return frame.KindAck
	case frame.NAK:
		return frame.KindNak
	case frame.CAN:
		return frame.KindCan
	default:
		return frame.KindData
	}
}
