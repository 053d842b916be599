package driver

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyrometer-server/protocol"
)

// scriptedPort replies to each write with the next canned response.
type scriptedPort struct {
	mu      sync.Mutex
	replies []string
	written bytes.Buffer
	out     bytes.Buffer
	writes  int
	readErr error
	closed  bool
}

func newScriptedPort(replies ...string) *scriptedPort {
	return &scriptedPort{replies: replies}
}

func (s *scriptedPort) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out.Len() == 0 {
		return 0, s.readErr
	}
	return s.out.Read(p)
}

func (s *scriptedPort) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	s.written.Write(p)
	if len(s.replies) > 0 {
		s.out.WriteString(s.replies[0])
		s.replies = s.replies[1:]
	}
	return len(p), nil
}

func (s *scriptedPort) Close() error {
	s.closed = true
	return nil
}

func (s *scriptedPort) ResetInputBuffer() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out.Reset()
	return nil
}

func newTestPyrometer(t *testing.T, port Port, opts ...Option) *Pyrometer {
	t.Helper()
	p, err := NewPyrometer(port, "01", opts...)
	require.NoError(t, err)
	return p
}

func TestInstrumentIDFraming(t *testing.T) {
	port := newScriptedPort("IGA 6-23\r")
	p := newTestPyrometer(t, port)

	id, err := p.InstrumentID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "IGA 6-23", id)
	assert.Equal(t, "01na\r", port.written.String())
}

func TestFocus(t *testing.T) {
	port := newScriptedPort("0250\r")
	p := newTestPyrometer(t, port)

	focus, err := p.Focus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0250", focus)
	assert.Equal(t, "01df\r", port.written.String())
}

func TestPackedFloatGetters(t *testing.T) {
	tests := []struct {
		name   string
		call   func(*Pyrometer, context.Context) (float64, error)
		reply  string
		sent   string
		expect float64
	}{
		{"emissivity", (*Pyrometer).Emissivity, "0551\r", "01em\r", 55.1},
		{"transmissivity", (*Pyrometer).Transmissivity, "1000\r", "01et\r", 100},
		{"temperature", (*Pyrometer).ReadTemperature, "08124\r", "01ms\r", 812.4},
		{"negative temperature", (*Pyrometer).ReadTemperature, "-091\r", "01ms\r", -9.1},
		{"crlf reply", (*Pyrometer).ReadTemperature, "\n0551\r\n", "01ms\r", 55.1},
		{"lf reply", (*Pyrometer).Emissivity, "0551\n", "01em\r", 55.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := newScriptedPort(tt.reply)
			p := newTestPyrometer(t, port)

			v, err := tt.call(p, context.Background())
			require.NoError(t, err)
			assert.InDelta(t, tt.expect, v, 1e-9)
			assert.Equal(t, tt.sent, port.written.String())
		})
	}
}

func TestPackedFloatParseError(t *testing.T) {
	p := newTestPyrometer(t, newScriptedPort("no\r"))

	_, err := p.ReadTemperature(context.Background())
	var perr *protocol.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "no", perr.Raw)
}

func TestSetEmissivityRoundTrip(t *testing.T) {
	port := newScriptedPort("ok\r", "0532\r", "0532\r")
	p := newTestPyrometer(t, port)
	ctx := context.Background()

	require.NoError(t, p.SetEmissivity(ctx, 0.532))
	assert.Equal(t, "01em0532\r01em\r", port.written.String())

	v, err := p.Emissivity(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 53.2, v, 1e-9)
}

func TestSetTransmissivityRoundTrip(t *testing.T) {
	port := newScriptedPort("ok\r", "1000\r")
	p := newTestPyrometer(t, port)

	require.NoError(t, p.SetTransmissivity(context.Background(), 1))
	assert.Equal(t, "01et1000\r01et\r", port.written.String())
}

func TestSetEmissivityVerificationError(t *testing.T) {
	port := newScriptedPort("ok\r", "0500\r")
	p := newTestPyrometer(t, port)

	err := p.SetEmissivity(context.Background(), 0.532)
	var verr *protocol.VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "emissivity", verr.Property)
	assert.Equal(t, "53.2", verr.Want)
	assert.Equal(t, "50.0", verr.Got)
}

func TestSetEmissivityAckRejected(t *testing.T) {
	port := newScriptedPort("error\r", "0532\r")
	p := newTestPyrometer(t, port)

	err := p.SetEmissivity(context.Background(), 0.532)
	var ackErr *protocol.AckRejectedError
	require.ErrorAs(t, err, &ackErr)
	assert.Equal(t, "error", ackErr.Raw)
	assert.Equal(t, 1, port.writes, "no readback after a rejected write")
}

func TestSetEmissivityOutOfRange(t *testing.T) {
	port := newScriptedPort()
	p := newTestPyrometer(t, port)

	err := p.SetEmissivity(context.Background(), 53.2)
	var rerr *protocol.RangeError
	require.ErrorAs(t, err, &rerr)
	assert.Zero(t, port.writes)
}

func TestSetT90(t *testing.T) {
	port := newScriptedPort("ok\r", "3\r")
	p := newTestPyrometer(t, port)

	require.NoError(t, p.SetT90(context.Background(), "0.25s"))
	assert.Equal(t, "01ez3\r01ez\r", port.written.String())
}

func TestSetT90VerificationError(t *testing.T) {
	p := newTestPyrometer(t, newScriptedPort("ok\r", "2\r"))

	err := p.SetT90(context.Background(), "0.25s")
	var verr *protocol.VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "0.25s", verr.Want)
	assert.Equal(t, "0.05s", verr.Got)
}

func TestSetT90UnknownNameSendsNothing(t *testing.T) {
	table, err := protocol.NewT90Table(map[string]int{"slow": 0, "medium": 1})
	require.NoError(t, err)
	port := newScriptedPort("ok\r")
	p := newTestPyrometer(t, port, WithT90Table(table))

	err = p.SetT90(context.Background(), "fast")
	var nameErr *protocol.UnknownNameError
	require.ErrorAs(t, err, &nameErr)
	assert.Equal(t, "fast", nameErr.Name)
	assert.Zero(t, port.writes)
	assert.Zero(t, port.written.Len())
}

func TestT90(t *testing.T) {
	p := newTestPyrometer(t, newScriptedPort("4\r", "9\r", "x\r"))
	ctx := context.Background()

	name, err := p.T90(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1s", name)

	_, err = p.T90(ctx)
	var codeErr *protocol.UnknownCodeError
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, 9, codeErr.Code)

	_, err = p.T90(ctx)
	var perr *protocol.ParseError
	require.ErrorAs(t, err, &perr)
}

func TestTimeoutBreaksDriver(t *testing.T) {
	port := newScriptedPort()
	p := newTestPyrometer(t, port, WithResponseTimeout(30*time.Millisecond))

	_, err := p.InstrumentID(context.Background())
	var ioErr *protocol.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "read", ioErr.Op)
	assert.ErrorIs(t, err, protocol.ErrTimeout)

	port.replies = []string{"IGA\r"}
	_, err = p.InstrumentID(context.Background())
	assert.ErrorIs(t, err, protocol.ErrClosed)
	assert.Equal(t, 1, port.writes, "nothing sent once broken")
}

func TestReadErrorPropagates(t *testing.T) {
	port := newScriptedPort()
	port.readErr = io.EOF
	p := newTestPyrometer(t, port)

	_, err := p.ReadTemperature(context.Background())
	var ioErr *protocol.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.ErrorIs(t, err, io.EOF)
}

func TestCanceledContext(t *testing.T) {
	p := newTestPyrometer(t, newScriptedPort())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Focus(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInstrumentIDLineFeedTerminated(t *testing.T) {
	port := newScriptedPort("IGA 6\n", "ok\n", "0532\n")
	p := newTestPyrometer(t, port, WithResponseTimeout(100*time.Millisecond))

	id, err := p.InstrumentID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "IGA 6", id)

	require.NoError(t, p.SetEmissivity(context.Background(), 0.532))
}

func TestCanceledMidReadIsTerminal(t *testing.T) {
	port := newScriptedPort()
	p := newTestPyrometer(t, port, WithResponseTimeout(time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := p.Focus(ctx)
	var ioErr *protocol.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "read", ioErr.Op)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, port.writes)

	// The reply to the abandoned request may still arrive, so pairing is lost.
	_, err = p.Focus(context.Background())
	assert.ErrorIs(t, err, protocol.ErrClosed)
}

func TestCloseMakesDriverUnusable(t *testing.T) {
	port := newScriptedPort("IGA\r")
	p := newTestPyrometer(t, port)

	require.NoError(t, p.Close())
	assert.True(t, port.closed)

	_, err := p.InstrumentID(context.Background())
	assert.ErrorIs(t, err, protocol.ErrClosed)
}

func TestNewPyrometerValidates(t *testing.T) {
	_, err := NewPyrometer(nil, "01")
	assert.Error(t, err)

	_, err = NewPyrometer(newScriptedPort(), "0\r1")
	assert.Error(t, err)
}
