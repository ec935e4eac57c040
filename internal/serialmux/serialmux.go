// Package serialmux drives the RS-232 bench link to the analyzer: one
// goroutine owns the port and fans its line stream out to any number of
// subscribers, while command writes are serialized so concurrent
// callers cannot interleave bytes on the wire. The package also serves
// the /debug bench console (live tail over SSE plus a command form).
package serialmux

import (
	"bufio"
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"tailscale.com/tsweb"
)

//go:embed templates/*
var adminTemplateFS embed.FS

var sendCommandTemplate = template.Must(template.ParseFS(adminTemplateFS, "templates/send-command.html.tmpl"))

// subscriberBuffer is the per-subscriber channel capacity. The bench
// emits at most a few lines per second, so a small buffer absorbs
// scheduling hiccups; a subscriber that still falls behind loses lines
// rather than stalling the reader.
const subscriberBuffer = 8

// BenchLink is the surface the rest of the service consumes: the HTTP
// API and the result recorder talk to the instrument through it, and
// the disabled and replay variants stand in when no hardware is
// attached.
type BenchLink interface {
	// Subscribe registers a new line-stream subscriber and returns its
	// id together with the channel lines arrive on. Slow subscribers
	// miss lines instead of blocking the port reader.
	Subscribe() (string, chan string)
	// Unsubscribe closes and removes the subscriber with the given id.
	Unsubscribe(string)
	// SendCommand writes one command line to the instrument.
	SendCommand(string) error
	// Monitor reads the port until the context ends, fanning each line
	// out to subscribers.
	Monitor(context.Context) error
	// Initialize puts the instrument into the streaming configuration
	// the service expects.
	Initialize() error
	// Close tears down all subscribers and releases the port.
	Close() error

	// AttachAdminRoutes mounts the bench console under /debug/. tsweb
	// limits access to localhost and the tailnet.
	AttachAdminRoutes(*http.ServeMux)
}

// Mux fans one port's line stream out to subscribers and serializes
// command writes. The type parameter keeps the real, replay, and
// scripted ports behind one implementation.
type Mux[T LinePort] struct {
	port    T
	subs    map[string]chan string
	subMu   sync.Mutex
	cmdMu   sync.Mutex
	closing bool
	closeMu sync.Mutex
}

// NewMux wraps an open port in a Mux.
func NewMux[T LinePort](port T) *Mux[T] {
	return &Mux[T]{
		port: port,
		subs: make(map[string]chan string),
	}
}

func (s *Mux[T]) Subscribe() (string, chan string) {
	id := uuid.NewString()
	ch := make(chan string, subscriberBuffer)
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subs[id] = ch
	return id, ch
}

func (s *Mux[T]) Unsubscribe(id string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if ch, ok := s.subs[id]; ok {
		close(ch)
		delete(s.subs, id)
	}
}

// Initialize syncs the instrument clock and switches the bench link
// into streaming mode. The instrument powers up with streaming
// disabled, so every session has to enable it explicitly.
func (s *Mux[T]) Initialize() error {
	command := fmt.Sprintf("CLOCK %d", time.Now().Unix())
	if err := s.SendCommand(command); err != nil {
		return fmt.Errorf("failed to synchronize clock: %w", err)
	}

	for _, command := range []string{
		"MODE REMOTE",    // take remote control of the bench
		"FORMAT CSV",     // stream results as comma-separated lines
		"STREAM RESULTS", // push each completed size result
		"STREAM STATUS",  // include instrument status transitions
		"UNITS NM",       // report sizes in nanometres
		"UNITS C",        // report temperatures in Celsius
	} {
		if err := s.SendCommand(command); err != nil {
			return fmt.Errorf("failed to send start command %q: %w", command, err)
		}
	}

	return nil
}

// SendCommand writes one newline-terminated command to the port.
func (s *Mux[T]) SendCommand(command string) error {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	if !strings.HasSuffix(command, "\n") {
		command += "\n"
	}
	n, err := s.port.Write([]byte(command))
	if err == nil && n < len(command) {
		err = io.ErrShortWrite
	}
	return err
}

// Monitor reads lines from the port and fans them out to subscribers
// until the context ends, the port reports an error, or the stream
// closes. The blocking port read runs in its own goroutine so the
// select below stays responsive to cancellation.
func (s *Mux[T]) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(s.port)

	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		for scan.Scan() {
			select {
			case lines <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case readErr <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readErr:
			return err

		case line, ok := <-lines:
			if !ok {
				// Port stream ended. A scan error beats a clean EOF.
				if err := scan.Err(); err != nil {
					return err
				}
				return nil
			}

			s.closeMu.Lock()
			if s.closing {
				s.closeMu.Unlock()
				return nil
			}
			s.closeMu.Unlock()

			s.subMu.Lock()
			for _, ch := range s.subs {
				select {
				case ch <- line:
				default:
					// Subscriber buffer full: drop the line for that
					// subscriber rather than stall the port reader.
				}
			}
			s.subMu.Unlock()
		}
	}
}

// Close closes every subscriber channel and then the port itself.
func (s *Mux[T]) Close() error {
	s.closeMu.Lock()
	s.closing = true
	s.closeMu.Unlock()

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	return s.port.Close()
}

// AttachAdminRoutes mounts the bench console: an HTML command form, the
// POST endpoint behind it, an SSE live tail of the line stream, and the
// latest instrument config as JSON.
func (s *Mux[T]) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.HandleFunc("send-command", "send a command to the bench instrument", s.serveCommandForm)
	debug.HandleFunc("bench-config", "latest config values reported by the instrument", serveBenchConfig)
	debug.HandleSilentFunc("send-command-api", s.serveSendCommand)
	debug.HandleSilentFunc("tail", s.serveTail)
	debug.HandleSilentFunc("tail.js", serveTailScript)
}

func (s *Mux[T]) serveCommandForm(w http.ResponseWriter, r *http.Request) {
	// Render to a buffer first so a template error can still produce a
	// clean 500 instead of a half-written page.
	var buf bytes.Buffer
	if err := sendCommandTemplate.Execute(&buf, nil); err != nil {
		http.Error(w, "failed to render bench console", http.StatusInternalServerError)
		return
	}
	io.Copy(w, &buf)
}

func serveBenchConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(ConfigState())
}

func (s *Mux[T]) serveSendCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	command := strings.TrimSpace(r.FormValue("command"))
	if command == "" {
		http.Error(w, "missing command", http.StatusBadRequest)
		return
	}
	if err := s.SendCommand(command); err != nil {
		http.Error(w, "failed to write command to port", http.StatusInternalServerError)
		return
	}
	fmt.Fprintf(w, "sent %q to the bench", command)
}

func (s *Mux[T]) serveTail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	fl, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // keep nginx from buffering the stream

	id, lines := s.Subscribe()
	defer s.Unsubscribe(id)

	// An immediate comment line commits the SSE connection.
	io.WriteString(w, ": ping\n\n")
	fl.Flush()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", line); err != nil {
				return
			}
			fl.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func serveTailScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFileFS(w, r, adminTemplateFS, "templates/tail.js")
}
