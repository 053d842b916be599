package driver

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"

	"pyrometer-server/logger"
)

// SerialOptions describes the line settings of a physical port.
type SerialOptions struct {
	BaudRate    int
	DataBits    int
	Parity      string // none, even, odd
	StopBits    int
	ReadTimeout time.Duration
}

// DefaultSerialOptions are the factory settings of the IGA 6 series: 19200 8E1.
var DefaultSerialOptions = SerialOptions{
	BaudRate:    19200,
	DataBits:    8,
	Parity:      "even",
	StopBits:    1,
	ReadTimeout: 100 * time.Millisecond,
}

// SerialPort wraps go.bug.st/serial for RS232/RS485 communication
type SerialPort struct {
	serial.Port
}

var _ Port = (*SerialPort)(nil)

func (o SerialOptions) mode() (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: o.BaudRate,
		DataBits: o.DataBits,
	}

	switch strings.ToLower(o.Parity) {
	case "", "none":
		mode.Parity = serial.NoParity
	case "even":
		mode.Parity = serial.EvenParity
	case "odd":
		mode.Parity = serial.OddParity
	default:
		return nil, fmt.Errorf("unsupported parity %q", o.Parity)
	}

	switch o.StopBits {
	case 0, 1:
		mode.StopBits = serial.OneStopBit
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("unsupported stop bits %d", o.StopBits)
	}
	return mode, nil
}

func parityLetter(p serial.Parity) string {
	switch p {
	case serial.EvenParity:
		return "E"
	case serial.OddParity:
		return "O"
	default:
		return "N"
	}
}

func stopBitCount(s serial.StopBits) int {
	if s == serial.TwoStopBits {
		return 2
	}
	return 1
}

// openSerialPort opens a physical serial port
func openSerialPort(portName string, opts SerialOptions) (Port, error) {
	mode, err := opts.mode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, err
	}

	// Reads return (0, nil) after the timeout so the driver can enforce its own deadline
	timeout := opts.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultSerialOptions.ReadTimeout
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %v", err)
	}

	logger.Info("Serial port %s opened at %d bps (%d%s%d)", portName, mode.BaudRate, mode.DataBits,
		parityLetter(mode.Parity), stopBitCount(mode.StopBits))
	return &SerialPort{Port: port}, nil
}

// OpenSerial opens a port - either physical serial or TCP based on the address format
// TCP addresses should be in format: "tcp://host:port"
// Serial ports: "COM3", "/dev/ttyUSB0", etc.
func OpenSerial(portName string, opts SerialOptions) (Port, error) {
	if strings.HasPrefix(portName, "tcp://") {
		return OpenTCP(strings.TrimPrefix(portName, "tcp://"), opts.ReadTimeout)
	}
	return openSerialPort(portName, opts)
}

// ListSerialPorts returns the serial ports present on the host.
func ListSerialPorts() ([]string, error) {
	return serial.GetPortsList()
}
