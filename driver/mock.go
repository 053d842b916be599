package driver

import (
	"bytes"
	"io"
	"sync"
	"time"

	"pyrometer-server/logger"
	"pyrometer-server/protocol"
)

// MockPort emulates a serial line with a Simulator on the far end.
type MockPort struct {
	Sim *Simulator

	readBuf  *bytes.Buffer
	writeBuf *bytes.Buffer
	pending  []byte
	mu       sync.Mutex
	closed   bool
	simDelay time.Duration // simulated device turnaround
}

var _ Port = (*MockPort)(nil)

func NewMockPort(sim *Simulator) *MockPort {
	return &MockPort{
		Sim:      sim,
		readBuf:  new(bytes.Buffer),
		writeBuf: new(bytes.Buffer),
	}
}

// SetDelay makes replies arrive d after the request.
func (m *MockPort) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.simDelay = d
}

func (m *MockPort) Read(p []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, io.EOF
	}

	if m.readBuf.Len() == 0 {
		return 0, nil
	}
	return m.readBuf.Read(p)
}

func (m *MockPort) Write(p []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, io.ErrClosedPipe
	}
	m.writeBuf.Write(p)

	// A request may arrive split across writes
	m.pending = append(m.pending, p...)
	for {
		i := bytes.IndexByte(m.pending, protocol.Terminator)
		if i < 0 {
			break
		}
		req := string(m.pending[:i])
		m.pending = m.pending[i+1:]

		reply, ok := m.Sim.Handle(req)
		if !ok {
			continue
		}
		if m.simDelay > 0 {
			go m.deliverLater(reply, m.simDelay)
			continue
		}
		m.readBuf.WriteString(reply)
		m.readBuf.WriteByte(protocol.Terminator)
	}

	return len(p), nil
}

func (m *MockPort) deliverLater(reply string, d time.Duration) {
	time.Sleep(d)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	logger.Debug("[MockPyrometer] reply %q", reply)
	m.readBuf.WriteString(reply)
	m.readBuf.WriteByte(protocol.Terminator)
}

func (m *MockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockPort) ResetInputBuffer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readBuf.Reset()
	return nil
}

// Written returns every byte written to the port so far.
func (m *MockPort) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.writeBuf.Bytes()...)
}
