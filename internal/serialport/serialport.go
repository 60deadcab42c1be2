// Package serialport opens the byte stream to a Z-Wave controller: a local
// serial device, or a tcp://host:port bridge such as ser2net.
//
// Reads return (0, nil) when the read timeout passes without data so the
// caller can run its own idle checks.
package serialport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/tarm/serial"
)

const (
	DefaultBaud        = 115200
	DefaultReadTimeout = 100 * time.Millisecond
	tcpScheme          = "tcp://"
	dialTimeout        = 5 * time.Second
)

var ErrNoPort = errors.New("serialport: no port configured")

// Port is an open controller link.
type Port interface {
	io.ReadWriteCloser
}

type Config struct {
	// Name is a device path (/dev/ttyACM0, COM3) or tcp://host:port.
	Name        string
	Baud        int
	ReadTimeout time.Duration
}

func Open(cfg Config) (Port, error) {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		return nil, ErrNoPort
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if addr, ok := strings.CutPrefix(name, tcpScheme); ok {
		return dialTCP(addr, cfg.ReadTimeout)
	}
	if cfg.Baud <= 0 {
		cfg.Baud = DefaultBaud
	}
	p, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        cfg.Baud,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("serialport: open %s: %w", name, err)
	}
	return &serialPort{p: p}, nil
}

type serialPort struct {
	p *serial.Port
}

func (s *serialPort) Read(b []byte) (int, error) {
	n, err := s.p.Read(b)
	if n == 0 && errors.Is(err, io.EOF) {
		// VTIME expired
		return 0, nil
	}
	return n, err
}

func (s *serialPort) Write(b []byte) (int, error) {
	return s.p.Write(b)
}

func (s *serialPort) Close() error {
	return s.p.Close()
}

type tcpPort struct {
	conn        net.Conn
	readTimeout time.Duration
}

func dialTCP(addr string, readTimeout time.Duration) (Port, error) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("serialport: dial %s: %w", addr, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return &tcpPort{conn: conn, readTimeout: readTimeout}, nil
}

func (t *tcpPort) Read(b []byte) (int, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(t.readTimeout)); err != nil {
		return 0, err
	}
	n, err := t.conn.Read(b)
	if n == 0 && errors.Is(err, os.ErrDeadlineExceeded) {
		return 0, nil
	}
	if n > 0 && errors.Is(err, os.ErrDeadlineExceeded) {
		err = nil
	}
	return n, err
}

func (t *tcpPort) Write(b []byte) (int, error) {
	return t.conn.Write(b)
}

func (t *tcpPort) Close() error {
	return t.conn.Close()
}
