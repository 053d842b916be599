package driver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"pyrometer-server/logger"
	"pyrometer-server/protocol"
)

const (
	DefaultResponseTimeout = 2 * time.Second
	pollInterval           = 10 * time.Millisecond

	lineEnds = "\r\n"
)

// Pyrometer drives one instrument over a Port. Every call is a fresh
// command/response exchange; nothing is cached.
//
// Units differ between getters and setters: SetEmissivity and
// SetTransmissivity take a fraction in [0,1], while Emissivity and
// Transmissivity return the device value in percent (0..100).
type Pyrometer struct {
	mu       sync.Mutex // held for exactly one write+read exchange
	port     Port
	deviceID string
	t90      *protocol.T90Table
	timeout  time.Duration

	pending []byte
	broken  error
}

// Option configures a Pyrometer.
type Option func(*Pyrometer)

// WithT90Table replaces the default response time table.
func WithT90Table(t *protocol.T90Table) Option {
	return func(p *Pyrometer) {
		if t != nil {
			p.t90 = t
		}
	}
}

// WithResponseTimeout bounds how long a single reply may take.
func WithResponseTimeout(d time.Duration) Option {
	return func(p *Pyrometer) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// NewPyrometer wraps an already open port. No handshake is performed.
func NewPyrometer(port Port, deviceID string, opts ...Option) (*Pyrometer, error) {
	if port == nil {
		return nil, errors.New("nil port")
	}
	if err := protocol.ValidateDeviceID(deviceID); err != nil {
		return nil, err
	}

	p := &Pyrometer{
		port:     port,
		deviceID: deviceID,
		t90:      protocol.DefaultT90Table(),
		timeout:  DefaultResponseTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// DeviceID returns the address prefixed to every command.
func (p *Pyrometer) DeviceID() string {
	return p.deviceID
}

// T90Table returns the response time table in use.
func (p *Pyrometer) T90Table() *protocol.T90Table {
	return p.t90
}

// Close closes the underlying port. The driver cannot be used afterwards.
func (p *Pyrometer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.broken == nil {
		p.broken = protocol.ErrClosed
	}
	return p.port.Close()
}

// Focus returns the focus point descriptor.
func (p *Pyrometer) Focus(ctx context.Context) (string, error) {
	line, err := p.exchange(ctx, protocol.CmdFocus, "")
	if err != nil {
		return "", err
	}
	return protocol.ParsePlain(line)
}

// InstrumentID returns the instrument identification string.
func (p *Pyrometer) InstrumentID(ctx context.Context) (string, error) {
	line, err := p.exchange(ctx, protocol.CmdInstrumentID, "")
	if err != nil {
		return "", err
	}
	return protocol.ParsePlain(line)
}

// Emissivity returns the current emissivity in percent (0..100).
func (p *Pyrometer) Emissivity(ctx context.Context) (float64, error) {
	return p.readFloat(ctx, protocol.CmdEmissivity)
}

// Transmissivity returns the current transmissivity in percent (0..100).
func (p *Pyrometer) Transmissivity(ctx context.Context) (float64, error) {
	return p.readFloat(ctx, protocol.CmdTransmissivity)
}

// ReadTemperature returns the current temperature reading.
func (p *Pyrometer) ReadTemperature(ctx context.Context) (float64, error) {
	return p.readFloat(ctx, protocol.CmdTemperature)
}

// T90 returns the name of the active response time setting.
func (p *Pyrometer) T90(ctx context.Context) (string, error) {
	line, err := p.exchange(ctx, protocol.CmdT90, "")
	if err != nil {
		return "", err
	}
	code, err := protocol.ParseIndex(line)
	if err != nil {
		return "", err
	}
	return p.t90.Name(code)
}

// SetEmissivity writes a fraction in [0,1] and verifies the device applied it.
func (p *Pyrometer) SetEmissivity(ctx context.Context, v float64) error {
	return p.setFraction(ctx, protocol.CmdEmissivity, "emissivity", v, p.Emissivity)
}

// SetTransmissivity writes a fraction in [0,1] and verifies the device applied it.
func (p *Pyrometer) SetTransmissivity(ctx context.Context, v float64) error {
	return p.setFraction(ctx, protocol.CmdTransmissivity, "transmissivity", v, p.Transmissivity)
}

// SetT90 selects a response time by name and verifies the device applied it.
// Unknown names fail before anything is sent.
func (p *Pyrometer) SetT90(ctx context.Context, name string) error {
	code, err := p.t90.Code(name)
	if err != nil {
		return err
	}
	if err := p.write(ctx, protocol.CmdT90, fmt.Sprint(code)); err != nil {
		return err
	}

	got, err := p.T90(ctx)
	if err != nil {
		return err
	}
	if got != name {
		return &protocol.VerificationError{Property: "t90", Want: name, Got: got}
	}
	return nil
}

func (p *Pyrometer) setFraction(ctx context.Context, cmd protocol.Command, property string, v float64,
	get func(context.Context) (float64, error),
) error {
	args, err := protocol.EncodeFraction(property, v)
	if err != nil {
		return err
	}
	// Compare against what actually went on the wire, not the unrounded input.
	want, err := protocol.DecodePacked(args)
	if err != nil {
		return err
	}

	if err := p.write(ctx, cmd, args); err != nil {
		return err
	}

	got, err := get(ctx)
	if err != nil {
		return err
	}
	if math.Abs(got-want) > 1e-9 {
		return &protocol.VerificationError{
			Property: property,
			Want:     fmt.Sprintf("%.1f", want),
			Got:      fmt.Sprintf("%.1f", got),
		}
	}
	return nil
}

func (p *Pyrometer) readFloat(ctx context.Context, cmd protocol.Command) (float64, error) {
	line, err := p.exchange(ctx, cmd, "")
	if err != nil {
		return 0, err
	}
	return protocol.DecodePacked(line)
}

// write sends a command that must be answered with "ok".
func (p *Pyrometer) write(ctx context.Context, cmd protocol.Command, args string) error {
	line, err := p.exchange(ctx, cmd, args)
	if err != nil {
		return err
	}
	return protocol.ParseAck(line)
}

// exchange performs one request/response round trip under the lock.
func (p *Pyrometer) exchange(ctx context.Context, cmd protocol.Command, args string) (string, error) {
	frame, err := protocol.BuildCommand(p.deviceID, cmd, args)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// The deadline may have passed while waiting for the lock; nothing is on the wire yet.
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.broken != nil {
		return "", &protocol.IOError{Op: "write", Err: errors.Wrapf(protocol.ErrClosed, "unusable after %v", p.broken)}
	}

	// Stale bytes would pair this request with an old reply
	p.pending = p.pending[:0]
	if err := p.port.ResetInputBuffer(); err != nil {
		return "", p.fail("reset", err)
	}

	logger.Protocol("TX", cmd.String(), frame)
	n, err := p.port.Write(frame)
	if err == nil && n < len(frame) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return "", p.fail("write", err)
	}

	line, err := p.readLine(ctx)
	if err != nil {
		return "", p.fail("read", err)
	}
	logger.Protocol("RX", cmd.String(), []byte(line))
	return line, nil
}

// readLine returns the next non-empty line terminated by '\r' or '\n'.
// A "\r\n" pair yields one line followed by an empty one, which is skipped.
func (p *Pyrometer) readLine(ctx context.Context) (string, error) {
	deadline := time.Now().Add(p.timeout)
	buf := make([]byte, 64)

	for {
		if i := bytes.IndexAny(p.pending, lineEnds); i >= 0 {
			line := protocol.TrimLine(p.pending[:i])
			p.pending = p.pending[i+1:]
			if line == "" {
				continue
			}
			return line, nil
		}

		if err := ctx.Err(); err != nil {
			return "", err
		}
		if time.Now().After(deadline) {
			return "", protocol.ErrTimeout
		}

		n, err := p.port.Read(buf)
		if n > 0 {
			p.pending = append(p.pending, buf[:n]...)
			continue
		}
		if err != nil {
			return "", err
		}
		time.Sleep(pollInterval)
	}
}

// fail marks the driver unusable; request/response pairing is lost.
func (p *Pyrometer) fail(op string, err error) error {
	p.broken = err
	logger.WithFields(logrus.Fields{"device": p.deviceID, "op": op}).Errorf("pyrometer exchange failed: %v", err)
	return &protocol.IOError{Op: op, Err: err}
}
