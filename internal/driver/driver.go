// Package driver owns the controller link: it reads the port, answers
// frames with ACK/NAK, parses messages and feeds them to the transaction
// queue.
package driver

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	logs "github.com/danmuck/zwavectl/internal/logging"
	"github.com/danmuck/zwavectl/internal/protocol/frame"
	"github.com/danmuck/zwavectl/internal/protocol/message"
	"github.com/danmuck/zwavectl/internal/serialport"
	"github.com/danmuck/zwavectl/internal/transaction"
)

const readBufferSize = 256

// Options are the driver's outward hooks.
type Options struct {
	// Unsolicited receives controller messages no transaction claimed,
	// SerialAPIStarted included.
	Unsolicited func(m message.Message)
	Observers   []transaction.Observer
	Frames      FrameObserver
}

type Driver struct {
	cfg    Config
	opts   Options
	port   io.ReadWriteCloser
	writer *lockedWriter
	dec    *frame.Decoder
	reg    *message.Registry
	queue  *transaction.Queue

	ownNodeID atomic.Uint32
	infoMu    sync.RWMutex
	info      ControllerInfo

	started   atomic.Bool
	closing   atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
	readErr   error
}

// Open opens cfg.Port and wires a driver over it. Call Start to begin
// reading.
func Open(cfg Config, opts Options) (*Driver, error) {
	cfg = cfg.withDefaults()
	port, err := serialport.Open(serialport.Config{
		Name:        cfg.Port,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, err
	}
	return New(port, cfg, opts), nil
}

// New wires a driver over an already open port. Call Start to begin reading.
func New(port io.ReadWriteCloser, cfg Config, opts Options) *Driver {
	cfg = cfg.withDefaults()
	d := &Driver{
		cfg:    cfg,
		opts:   opts,
		port:   port,
		writer: &lockedWriter{w: port, frames: opts.Frames},
		dec:    frame.NewDecoder(),
		reg:    message.NewRegistry(),
		done:   make(chan struct{}),
	}
	d.queue = transaction.NewQueue(cfg.Transaction, d.writer, transaction.Hooks{
		Host:        d,
		Unsolicited: d.handleUnsolicited,
		Observers:   opts.Observers,
	})
	return d
}

// Start sends a NAK to resynchronize the controller and starts the reader.
func (d *Driver) Start() error {
	if !d.started.CompareAndSwap(false, true) {
		return nil
	}
	if err := d.writer.writeControl(frame.Nak()); err != nil {
		d.started.Store(false)
		return fmt.Errorf("driver: resync: %w", err)
	}
	go d.readLoop()
	logs.Infof("driver.Driver.Start port=%s", d.cfg.Port)
	return nil
}

// OwnNodeID implements message.Host. It is 0 until Identify succeeds.
func (d *Driver) OwnNodeID() uint8 {
	return uint8(d.ownNodeID.Load())
}

func (d *Driver) Queue() *transaction.Queue { return d.queue }

func (d *Driver) Info() ControllerInfo {
	d.infoMu.RLock()
	defer d.infoMu.RUnlock()
	return d.info
}

// Done is closed when the reader stops.
func (d *Driver) Done() <-chan struct{} { return d.done }

// Err returns the error that stopped the reader, nil after Close.
func (d *Driver) Err() error {
	select {
	case <-d.done:
		return d.readErr
	default:
		return nil
	}
}

func (d *Driver) Send(ctx context.Context, req message.Request, priority transaction.Priority) (transaction.Result, error) {
	return d.queue.Send(ctx, req, priority)
}

func (d *Driver) Submit(req message.Request, priority transaction.Priority) (*transaction.Pending, error) {
	return d.queue.Submit(req, priority)
}

// Identify queries the controller and records its node id for contracts
// that depend on it.
func (d *Driver) Identify(ctx context.Context) (ControllerInfo, error) {
	var info ControllerInfo

	res, err := d.Send(ctx, message.GetControllerIDRequest{}, transaction.PriorityController)
	if err != nil {
		return info, fmt.Errorf("driver: identify: %w", err)
	}
	id, ok := res.Reply.(*message.GetControllerIDResponse)
	if !ok {
		return info, fmt.Errorf("driver: identify: unexpected reply %T", res.Reply)
	}
	info.HomeID, info.OwnNodeID = id.HomeID, id.OwnNodeID
	d.ownNodeID.Store(uint32(id.OwnNodeID))

	res, err = d.Send(ctx, message.GetControllerVersionRequest{}, transaction.PriorityController)
	if err != nil {
		return info, fmt.Errorf("driver: identify version: %w", err)
	}
	if v, ok := res.Reply.(*message.GetControllerVersionResponse); ok {
		info.Version, info.LibraryType = v.Version, v.LibraryType.String()
	}

	res, err = d.Send(ctx, message.GetSerialAPICapabilitiesRequest{}, transaction.PriorityController)
	if err != nil {
		return info, fmt.Errorf("driver: identify capabilities: %w", err)
	}
	if c, ok := res.Reply.(*message.GetSerialAPICapabilitiesResponse); ok {
		info.FirmwareVersion = c.FirmwareVersion
		info.ManufacturerID, info.ProductType, info.ProductID = c.ManufacturerID, c.ProductType, c.ProductID
		info.SupportedFunctions = c.SupportedFunctions
	}

	if len(info.SupportedFunctions) == 0 || info.Supports(message.FuncGetSerialAPIInitData) {
		res, err = d.Send(ctx, message.GetSerialAPIInitDataRequest{}, transaction.PriorityController)
		if err != nil {
			return info, fmt.Errorf("driver: identify init data: %w", err)
		}
		if i, ok := res.Reply.(*message.GetSerialAPIInitDataResponse); ok {
			info.APIVersion = i.APIVersion
			info.IsSecondary, info.IsSIS = i.IsSecondary(), i.IsSIS()
			for _, id := range i.NodeIDs {
				info.NodeIDs = append(info.NodeIDs, int(id))
			}
		}
	}

	d.infoMu.Lock()
	d.info = info
	d.infoMu.Unlock()
	logs.Infof(
		"driver.Driver.Identify home_id=%08x node_id=%d version=%q firmware=%s nodes=%d",
		info.HomeID, info.OwnNodeID, info.Version, info.FirmwareVersion, len(info.NodeIDs),
	)
	return info, nil
}

// Reset soft-resets the controller. Transactions still pending are lost by
// the firmware, so they are cancelled.
func (d *Driver) Reset(ctx context.Context) error {
	if _, err := d.Send(ctx, message.SoftResetRequest{}, transaction.PriorityImmediate); err != nil {
		return fmt.Errorf("driver: soft reset: %w", err)
	}
	d.queue.CancelAll("soft reset")
	return nil
}

// Close cancels every transaction, closes the port and waits for the reader.
func (d *Driver) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.closing.Store(true)
		d.queue.Close()
		err = d.port.Close()
		if d.started.Load() {
			<-d.done
		} else {
			close(d.done)
		}
	})
	return err
}

func (d *Driver) readLoop() {
	defer close(d.done)
	buf := make([]byte, readBufferSize)
	lastData := time.Now()
	for {
		n, err := d.port.Read(buf)
		if n > 0 {
			lastData = time.Now()
			for ev := range d.dec.Feed(buf[:n]) {
				d.handleEvent(ev)
			}
		}
		if err != nil {
			if !d.closing.Load() {
				d.readErr = err
				logs.Errorf("driver.Driver.readLoop err=%v", err)
				d.queue.Close()
			}
			return
		}
		if n == 0 && d.dec.Pending() > 0 && time.Since(lastData) > d.cfg.FrameTimeout {
			stale := d.dec.Reset()
			logs.Warnf("driver.Driver.readLoop dropped stale bytes=% x", stale)
			if d.opts.Frames != nil {
				d.opts.Frames.ObserveFrame("in", "stale")
			}
		}
	}
}

func (d *Driver) handleEvent(ev frame.Event) {
	switch ev.Kind {
	case frame.EventFrame:
		d.observeIn(ev.Frame.Kind.String())
		if ev.Frame.Kind != frame.KindData {
			d.queue.HandleControl(ev.Frame.Kind)
			return
		}
		if err := d.writer.writeControl(frame.Ack()); err != nil {
			logs.Warnf("driver.Driver.handleEvent ack err=%v", err)
		}
		m, err := d.reg.ParseFrame(ev.Frame, message.ParseContext{Origin: message.OriginController})
		if err != nil {
			logs.Debugf("driver.Driver.handleEvent parse err=%v", err)
			d.queue.HandleParseError(err)
			return
		}
		d.queue.HandleMessage(m)
	case frame.EventInvalid:
		d.observeIn(ev.Kind.String())
		logs.Warnf("driver.Driver.handleEvent invalid frame=% x err=%v", ev.Raw, ev.Err)
		if err := d.writer.writeControl(frame.Nak()); err != nil {
			logs.Warnf("driver.Driver.handleEvent nak err=%v", err)
		}
	case frame.EventDiscarded:
		d.observeIn(ev.Kind.String())
		logs.Debugf("driver.Driver.handleEvent discarded byte=% x", ev.Raw)
	}
}

func (d *Driver) observeIn(kind string) {
	if d.opts.Frames != nil {
		d.opts.Frames.ObserveFrame("in", kind)
	}
}

func (d *Driver) handleUnsolicited(m message.Message) {
	if started, ok := m.(*message.SerialAPIStarted); ok {
		logs.Warnf("driver.Driver.handleUnsolicited controller restarted wake_up_reason=%d", started.WakeUpReason)
		d.queue.CancelAll("controller restarted")
	}
	if d.opts.Unsolicited != nil {
		d.opts.Unsolicited(m)
	}
}
