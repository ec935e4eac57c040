package serialmux

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// DisabledMux is the BenchLink used with -disable-bench: no port, no
// lines, commands vanish. Subscribers are still tracked so their
// channels close deterministically on Unsubscribe or Close and readers
// unblock during shutdown.
type DisabledMux struct {
	mu      sync.Mutex
	subs    map[string]chan string
	closing bool
}

func NewDisabledMux() *DisabledMux {
	return &DisabledMux{
		subs: make(map[string]chan string),
	}
}

func (d *DisabledMux) Subscribe() (string, chan string) {
	id := uuid.NewString()
	ch := make(chan string)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closing {
		// Already closing: hand back a closed channel so the caller
		// sees end-of-stream instead of blocking forever.
		close(ch)
		return id, ch
	}
	d.subs[id] = ch
	return id, ch
}

func (d *DisabledMux) Unsubscribe(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ch, ok := d.subs[id]; ok {
		close(ch)
		delete(d.subs, id)
	}
}

func (d *DisabledMux) SendCommand(string) error { return nil }

func (d *DisabledMux) Monitor(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }

func (d *DisabledMux) Initialize() error { return nil }

func (d *DisabledMux) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closing {
		return nil
	}
	d.closing = true
	for id, ch := range d.subs {
		close(ch)
		delete(d.subs, id)
	}
	return nil
}

func (d *DisabledMux) AttachAdminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/bench-disabled", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("bench link disabled"))
	})
}
