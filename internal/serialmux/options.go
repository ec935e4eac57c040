package serialmux

import (
	"fmt"
	"strings"

	"go.bug.st/serial"
)

// PortOptions describes the serial connection parameters used when opening a
// real serial port. The zero value normalizes to the instrument's factory
// bench settings (9600 8N1).
type PortOptions struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
}

// parityNames folds the accepted spellings down to the canonical single
// letter.
var parityNames = map[string]string{
	"": "N", "N": "N", "NONE": "N",
	"E": "E", "EVEN": "E",
	"O": "O", "ODD": "O",
}

// Normalize applies defaults to unset fields and validates the rest.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = 9600
	}
	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("data bits must be 5 through 8, got %d", opts.DataBits)
	}
	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("stop bits must be 1 or 2, got %d", opts.StopBits)
	}

	p, ok := parityNames[strings.TrimSpace(strings.ToUpper(opts.Parity))]
	if !ok {
		return opts, fmt.Errorf("parity must be N, E, or O, got %q", opts.Parity)
	}
	opts.Parity = p

	return opts, nil
}

// Equal reports whether two option sets describe the same port
// configuration once normalized. Options that fail to normalize are never
// equal.
func (o PortOptions) Equal(other PortOptions) bool {
	a, errA := o.Normalize()
	b, errB := other.Normalize()
	if errA != nil || errB != nil {
		return false
	}
	return a == b
}

// Normalize guarantees membership in both maps, so SerialMode can look
// the values up unconditionally.
var (
	stopBitModes = map[int]serial.StopBits{
		1: serial.OneStopBit,
		2: serial.TwoStopBits,
	}
	parityModes = map[string]serial.Parity{
		"N": serial.NoParity,
		"E": serial.EvenParity,
		"O": serial.OddParity,
	}
)

// SerialMode converts the options into the go.bug.st/serial Mode used to
// open the port.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}
	return &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: stopBitModes[opts.StopBits],
		Parity:   parityModes[opts.Parity],
	}, nil
}
