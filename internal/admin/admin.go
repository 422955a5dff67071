// Package admin implements the text-based admin TCP shell: a connection
// issues one command per line and receives a read-only snapshot of Buckets
// terminated by "END\n", in the spirit of the classic statsd admin
// interface. Handlers never mutate Buckets — they run on the event loop
// goroutine per spec.md's ownership rule, so a slow admin client stalls
// flush and ingest dispatch until it drains its read buffer.
package admin

import (
	"bufio"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/coreflux/statsaggd/internal/buckets"
	"github.com/coreflux/statsaggd/internal/events"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Acceptor listens on a TCP address and hands each accepted connection to
// the event loop as a KindAdminCommand event, one event per command line
// rather than per connection: this lets the loop interleave other work
// between commands from a chatty or slow client, instead of being pinned
// inside one connection's full command sequence.
type Acceptor struct {
	listener net.Listener
	events   chan<- events.Event
	log      *logrus.Entry
}

// NewAcceptor binds addr (host:port) for the admin shell.
func NewAcceptor(addr string, out chan<- events.Event, log *logrus.Entry) (*Acceptor, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Acceptor{listener: ln, events: out, log: log.WithField("component", "admin")}, nil
}

// Run accepts connections until Close is called, at which point Accept
// returns an error and Run returns it.
func (a *Acceptor) Run() error {
	for {
		conn, err := a.listener.Accept()
		if err != nil {
			return err
		}
		id := uuid.New()
		a.log.WithField("conn", id).Debug("admin connection accepted")
		go a.serve(conn, id)
	}
}

// Close stops accepting new connections.
func (a *Acceptor) Close() error {
	return a.listener.Close()
}

// serve reads command lines off conn for its whole lifetime, submitting one
// KindAdminCommand event per line and waiting for Dispatch to write the
// response before reading the next line. The event loop itself never
// blocks on network I/O beyond writing this one response.
func (a *Acceptor) serve(conn net.Conn, id uuid.UUID) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" {
			return
		}
		done := make(chan struct{})
		a.events <- events.NewAdminCommand(&pendingCommand{conn: conn, line: line, done: done})
		<-done
	}
}

// pendingCommand implements net.Conn just enough to satisfy events.Event's
// Conn field while carrying the actual command line and a completion
// signal; Dispatch type-asserts back to *pendingCommand. Embedding the
// command text onto an Event whose payload is declared as net.Conn keeps
// events.Event from needing an admin-specific field, at the cost of this
// one narrow adapter.
type pendingCommand struct {
	net.Conn
	conn net.Conn
	line string
	done chan struct{}
}

// Dispatch is the events.AdminHandler: it type-asserts the event's Conn
// back to a pendingCommand, executes the one command line against a
// read-only Buckets snapshot, writes the response, and signals completion.
func Dispatch(conn net.Conn, snapshot *buckets.Buckets) {
	pc, ok := conn.(*pendingCommand)
	if !ok {
		return
	}
	defer close(pc.done)

	w := bufio.NewWriter(pc.conn)
	defer w.Flush()

	switch pc.line {
	case "stats":
		writeStats(w, snapshot)
	case "counters":
		writeFloatMap(w, snapshot.Counters())
	case "gauges":
		writeFloatMap(w, snapshot.Gauges())
	case "timers":
		writeFloatMap(w, snapshot.TimerData())
	case "help":
		fmt.Fprint(w, "commands: stats, counters, gauges, timers, help, quit\nEND\n")
	default:
		fmt.Fprintf(w, "ERROR unknown command %q\nEND\n", pc.line)
	}
}

func writeStats(w *bufio.Writer, snapshot *buckets.Buckets) {
	fmt.Fprintf(w, "total_messages %d\n", snapshot.TotalMessages())
	fmt.Fprintf(w, "bad_messages %d\n", snapshot.BadMessages())
	fmt.Fprintf(w, "uptime_seconds %d\n", int64(time.Since(snapshot.StartTime()).Seconds()))
	fmt.Fprintf(w, "flush_interval_seconds %v\n", snapshot.FlushInterval())
	fmt.Fprint(w, "END\n")
}

func writeFloatMap(w *bufio.Writer, m map[string]float64) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s %v\n", k, m[k])
	}
	fmt.Fprint(w, "END\n")
}
