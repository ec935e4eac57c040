package serialmux

import (
	"bytes"
	"errors"
	"io"
	"sync"
)

var errPortClosed = errors.New("serialmux: port closed")

// ScriptedPort is an in-memory LinePort for tests. Reads block until
// data is fed or the port closes, mirroring a real serial port, and
// single-shot errors can be injected on either direction.
type ScriptedPort struct {
	mu   sync.Mutex
	cond *sync.Cond

	readBuf  bytes.Buffer
	written  bytes.Buffer
	readErr  error
	writeErr error
	short    bool
	closed   bool
}

func NewScriptedPort() *ScriptedPort {
	p := &ScriptedPort{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// FeedLine queues one newline-terminated line for Read.
func (p *ScriptedPort) FeedLine(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readBuf.WriteString(line)
	p.readBuf.WriteByte('\n')
	p.cond.Broadcast()
}

// FailNextRead makes the next Read return err, waking a blocked reader.
func (p *ScriptedPort) FailNextRead(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readErr = err
	p.cond.Broadcast()
}

// FailNextWrite makes the next Write return err.
func (p *ScriptedPort) FailNextWrite(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = err
}

// ShortNextWrite makes the next Write report one byte fewer than
// requested without failing.
func (p *ScriptedPort) ShortNextWrite() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.short = true
}

// Written returns everything written to the port so far.
func (p *ScriptedPort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

// Read serves queued data, blocking while the port is open and empty.
// A closed, drained port reads as EOF.
func (p *ScriptedPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		if p.readErr != nil {
			err := p.readErr
			p.readErr = nil
			return 0, err
		}
		if p.readBuf.Len() > 0 {
			return p.readBuf.Read(b)
		}
		if p.closed {
			return 0, io.EOF
		}
		p.cond.Wait()
	}
}

func (p *ScriptedPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, errPortClosed
	}
	if p.writeErr != nil {
		err := p.writeErr
		p.writeErr = nil
		return 0, err
	}
	if p.short && len(b) > 0 {
		p.short = false
		n := len(b) - 1
		p.written.Write(b[:n])
		return n, nil
	}
	return p.written.Write(b)
}

// Close wakes blocked readers; they drain any queued data and then see
// EOF.
func (p *ScriptedPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.cond.Broadcast()
	return nil
}
