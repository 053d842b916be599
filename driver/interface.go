package driver

import "io"

// Port is the duplex byte stream the driver talks through. Read may return
// (0, nil) when no data arrived within the port's own poll interval.
type Port interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
}
