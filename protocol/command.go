package protocol

import (
	"fmt"
	"strings"
)

const (
	// Terminator ends every request sent to the instrument.
	Terminator byte = '\r'

	// AckOK is the only response line accepted after a write command.
	AckOK = "ok"
)

// Command is one entry of the instrument's fixed command set.
type Command int

const (
	CmdFocus Command = iota
	CmdInstrumentID
	CmdEmissivity
	CmdTransmissivity
	CmdT90
	CmdTemperature
	CmdTemperaturesMonoRatio
)

var opcodes = map[Command]string{
	CmdFocus:                 "df",
	CmdInstrumentID:          "na",
	CmdEmissivity:            "em",
	CmdTransmissivity:        "et",
	CmdT90:                   "ez",
	CmdTemperature:           "ms",
	CmdTemperaturesMonoRatio: "ek",
}

// Opcode returns the two letter ASCII code sent on the wire.
func (c Command) Opcode() string {
	return opcodes[c]
}

// String returns the string representation of the command
func (c Command) String() string {
	switch c {
	case CmdFocus:
		return "FOCUS"
	case CmdInstrumentID:
		return "INSTRUMENT_ID"
	case CmdEmissivity:
		return "EMISSIVITY"
	case CmdTransmissivity:
		return "TRANSMISSIVITY"
	case CmdT90:
		return "T90"
	case CmdTemperature:
		return "TEMPERATURE"
	case CmdTemperaturesMonoRatio:
		return "TEMPERATURES_MONO_RATIO"
	default:
		return "UNKNOWN"
	}
}

// ValidateDeviceID checks that id can be prefixed to a request without
// corrupting the frame.
func ValidateDeviceID(id string) error {
	for i := 0; i < len(id); i++ {
		b := id[i]
		if b == '\r' || b == '\n' || b < 0x20 || b > 0x7e {
			return fmt.Errorf("invalid device id %q: byte 0x%02x at %d", id, b, i)
		}
	}
	return nil
}

// BuildCommand frames a request: <deviceID><opcode><args>\r
func BuildCommand(deviceID string, cmd Command, args string) ([]byte, error) {
	op, ok := opcodes[cmd]
	if !ok {
		return nil, fmt.Errorf("unknown command %d", int(cmd))
	}
	if strings.ContainsAny(args, "\r\n") {
		return nil, fmt.Errorf("command %s: argument %q contains a line terminator", cmd, args)
	}

	frame := make([]byte, 0, len(deviceID)+len(op)+len(args)+1)
	frame = append(frame, deviceID...)
	frame = append(frame, op...)
	frame = append(frame, args...)
	frame = append(frame, Terminator)
	return frame, nil
}
