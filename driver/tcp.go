package driver

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"pyrometer-server/logger"
)

const drainTimeout = 10 * time.Millisecond

// TCPPort carries the pyrometer line over a serial-to-Ethernet converter
// or the mock-pyrometer simulator. Reads behave like a serial port with a
// read timeout: an idle poll returns (0, nil).
type TCPPort struct {
	conn        net.Conn
	readTimeout time.Duration
}

var _ Port = (*TCPPort)(nil)

// OpenTCP dials address and polls reads every readTimeout.
func OpenTCP(address string, readTimeout time.Duration) (Port, error) {
	conn, err := net.DialTimeout("tcp", address, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}

	logger.Info("Connected to pyrometer at %s (TCP)", address)
	return NewTCPPort(conn, readTimeout), nil
}

// NewTCPPort wraps an established connection.
func NewTCPPort(conn net.Conn, readTimeout time.Duration) *TCPPort {
	if readTimeout <= 0 {
		readTimeout = DefaultSerialOptions.ReadTimeout
	}
	return &TCPPort{conn: conn, readTimeout: readTimeout}
}

func (t *TCPPort) Read(p []byte) (int, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(t.readTimeout)); err != nil {
		return 0, err
	}
	n, err := t.conn.Read(p)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return n, nil
	}
	return n, err
}

func (t *TCPPort) Write(p []byte) (int, error) {
	return t.conn.Write(p)
}

func (t *TCPPort) Close() error {
	return t.conn.Close()
}

// ResetInputBuffer discards whatever arrives within a short drain window.
func (t *TCPPort) ResetInputBuffer() error {
	if err := t.conn.SetReadDeadline(time.Now().Add(drainTimeout)); err != nil {
		return err
	}
	buf := make([]byte, 256)
	for {
		_, err := t.conn.Read(buf)
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
