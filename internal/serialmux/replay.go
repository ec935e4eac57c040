package serialmux

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/lumen-data/particle.report/internal/monitoring"
)

// replayInterval is the cadence of the simulated bench. Real runs
// complete a result every minute or two; dev mode streams much faster
// so the live endpoints have data to show immediately.
const replayInterval = 500 * time.Millisecond

// ReplayPort simulates the bench instrument for dev mode: it streams a
// canned result line on a fixed cadence and logs any command written to
// it. No hardware, no filesystem.
type ReplayPort struct {
	r    *io.PipeReader
	done chan struct{}
	once sync.Once
}

// NewReplayMux returns a Mux backed by a simulated bench that emits
// line every replayInterval until closed.
func NewReplayMux(line []byte) *Mux[*ReplayPort] {
	r, w := io.Pipe()
	p := &ReplayPort{r: r, done: make(chan struct{})}

	go func() {
		defer w.Close()
		tick := time.NewTicker(replayInterval)
		defer tick.Stop()
		for {
			select {
			case <-p.done:
				return
			case <-tick.C:
				if _, err := w.Write(line); err != nil {
					return
				}
			}
		}
	}()

	return NewMux(p)
}

func (p *ReplayPort) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

// Write accepts and logs a command. The simulated bench acknowledges
// everything.
func (p *ReplayPort) Write(b []byte) (int, error) {
	monitoring.Logf("replay bench: command %q", strings.TrimSpace(string(b)))
	return len(b), nil
}

// Close stops the stream. The writer goroutine closes its end of the
// pipe, so a Monitor loop reading the port sees EOF and exits cleanly.
func (p *ReplayPort) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}
