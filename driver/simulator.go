package driver

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"

	"pyrometer-server/protocol"
)

// Simulator answers the pyrometer command set the way an IGA 6 does.
// Emissivity and transmissivity are kept in tenths of a percent and clamped
// to the device limits, so a write can be acknowledged and still not take effect.
type Simulator struct {
	mu sync.Mutex

	deviceID       string
	identity       string
	focus          string
	emissivity     int // tenths of a percent
	transmissivity int
	t90Code        int
	maxT90         int
	tempTenths     int

	MinEmissivity     int // tenths, inclusive
	MinTransmissivity int
}

// NewSimulator returns a device answering to deviceID with factory settings.
func NewSimulator(deviceID string) *Simulator {
	return &Simulator{
		deviceID:          deviceID,
		identity:          "IGA 6-23 SIM",
		focus:             "0250",
		emissivity:        1000,
		transmissivity:    1000,
		t90Code:           0,
		maxT90:            len(protocol.DefaultT90Settings) - 1,
		tempTenths:        2500,
		MinEmissivity:     50,
		MinTransmissivity: 100,
	}
}

// SetTemperature sets the value returned by the next "ms" command.
func (s *Simulator) SetTemperature(celsius float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tempTenths = int(math.Round(celsius * 10))
}

// SetIdentity sets the "na" reply.
func (s *Simulator) SetIdentity(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = id
}

// Handle processes one request line without its terminator. ok is false
// when the request is addressed to another device and must not be answered.
func (s *Simulator) Handle(request string) (reply string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !strings.HasPrefix(request, s.deviceID) {
		return "", false
	}
	body := request[len(s.deviceID):]
	if len(body) < 2 {
		return "no", true
	}
	op, args := body[:2], body[2:]

	switch op {
	case protocol.CmdFocus.Opcode():
		return s.focus, true
	case protocol.CmdInstrumentID.Opcode():
		return s.identity, true
	case protocol.CmdEmissivity.Opcode():
		return s.percent(&s.emissivity, s.MinEmissivity, args), true
	case protocol.CmdTransmissivity.Opcode():
		return s.percent(&s.transmissivity, s.MinTransmissivity, args), true
	case protocol.CmdT90.Opcode():
		if args == "" {
			return strconv.Itoa(s.t90Code), true
		}
		code, err := strconv.Atoi(args)
		if err != nil || code < 0 || code > s.maxT90 {
			return "no", true
		}
		s.t90Code = code
		return protocol.AckOK, true
	case protocol.CmdTemperature.Opcode():
		if args != "" {
			return "no", true
		}
		return fmt.Sprintf("%05d", s.tempTenths), true
	default:
		return "no", true
	}
}

func (s *Simulator) percent(field *int, lo int, args string) string {
	if args == "" {
		return fmt.Sprintf("%04d", *field)
	}
	if len(args) > 4 {
		return "no"
	}
	v, err := strconv.Atoi(args)
	if err != nil || v < 0 || strings.ContainsAny(args, "+-") {
		return "no"
	}
	switch {
	case v < lo:
		v = lo
	case v > 1000:
		v = 1000
	}
	*field = v
	return protocol.AckOK
}

// Serve answers requests read from rw until it fails or is closed.
func (s *Simulator) Serve(rw io.ReadWriter) error {
	buf := make([]byte, 256)
	var pending []byte
	for {
		n, err := rw.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			for {
				i := bytes.IndexByte(pending, protocol.Terminator)
				if i < 0 {
					break
				}
				req := strings.TrimSpace(string(pending[:i]))
				pending = pending[i+1:]

				reply, ok := s.Handle(req)
				if !ok {
					continue
				}
				if _, werr := io.WriteString(rw, reply+string(protocol.Terminator)); werr != nil {
					return werr
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}
