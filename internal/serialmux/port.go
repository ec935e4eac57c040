package serialmux

import (
	"io"

	"go.bug.st/serial"
)

// LinePort is the minimal surface Mux needs from a port: a byte stream
// carrying newline-delimited lines, plus Close. Real RS-232 ports,
// the replay port, and the scripted test port all satisfy it.
type LinePort interface {
	io.ReadWriter
	io.Closer
}

// OpenPort opens the serial device at path with the given options and
// returns a Mux over it.
func OpenPort(path string, opts PortOptions) (*Mux[serial.Port], error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	return NewMux[serial.Port](port), nil
}
