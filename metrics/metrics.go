// Package metrics aggregates typed lifecycle events emitted by the node
// actors. All nodes write concurrently into one buffered channel; a single
// aggregator goroutine owns the event slice, so no lock guards the data.
package metrics

import (
	"encoding/json"
	"io"
	"sort"
	"time"
)

// Kind enumerates the event types nodes emit.
type Kind string

const (
	KindCSEntry      Kind = "CS_ENTRY"
	KindCSExit       Kind = "CS_EXIT"
	KindResponseTime Kind = "RESPONSE_TIME"
	KindMsgCount     Kind = "MSG_COUNT"
	KindDone         Kind = "DONE"
	KindTimeoutAbort Kind = "TIMEOUT_ABORT"
)

// Event is a single record in the run's event stream. Timestamp is the
// wall-clock time of the event; Value carries kind-specific data (seconds
// for RESPONSE_TIME, a count for MSG_COUNT, unused otherwise).
type Event struct {
	Kind      Kind      `json:"kind"`
	NodeID    int       `json:"node_id"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value,omitempty"`
}

// Collector is the single ingestion point for events. Emit may be called
// from any goroutine; Close stops the aggregator after draining.
type Collector struct {
	events   chan Event
	terminal chan Kind
	done     chan struct{}
	trace    io.Writer

	all []Event // owned by the aggregator until done is closed
}

// NewCollector creates a collector with the given channel capacity. If
// trace is non-nil every ingested event is also appended to it as a JSON
// line.
func NewCollector(buf int, trace io.Writer) *Collector {
	if buf <= 0 {
		buf = 256
	}
	c := &Collector{
		events:   make(chan Event, buf),
		terminal: make(chan Kind, buf),
		done:     make(chan struct{}),
		trace:    trace,
	}
	go c.loop()
	return c
}

func (c *Collector) loop() {
	defer close(c.done)
	var enc *json.Encoder
	if c.trace != nil {
		enc = json.NewEncoder(c.trace)
	}
	for e := range c.events {
		c.all = append(c.all, e)
		if enc != nil {
			_ = enc.Encode(e)
		}
		if e.Kind == KindDone || e.Kind == KindTimeoutAbort {
			select {
			case c.terminal <- e.Kind:
			default:
			}
		}
	}
}

// Emit records an event. A zero Timestamp is filled with the current time.
func (c *Collector) Emit(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	c.events <- e
}

// Terminal delivers a notification for every DONE or TIMEOUT_ABORT event,
// letting the runner detect when all requesters have finished or given up.
func (c *Collector) Terminal() <-chan Kind { return c.terminal }

// Close stops ingestion and waits for the aggregator to drain. Emit must
// not be called after Close.
func (c *Collector) Close() {
	close(c.events)
	<-c.done
}

// Events returns the ingested events. Only valid after Close.
func (c *Collector) Events() []Event {
	<-c.done
	return c.all
}

// Stats derives the run statistics. Only valid after Close. expected is
// the number of requesters configured for the run.
func (c *Collector) Stats(expected int, elapsed time.Duration) Stats {
	return Compute(c.Events(), expected, elapsed)
}

// Stats summarizes one protocol run.
type Stats struct {
	TotalMessages    int
	CompletedEntries int
	Aborts           int
	AvgMsgsPerEntry  float64
	AvgResponseTime  time.Duration
	SyncDelay        time.Duration
	Throughput       float64 // completed entries per second of run time
	Elapsed          time.Duration
	Incomplete       bool // fewer completed entries than requesters
}

// Compute aggregates raw events into Stats. It tolerates partial runs:
// missing entries or responses yield zero-valued means and set Incomplete.
func Compute(events []Event, expected int, elapsed time.Duration) Stats {
	st := Stats{Elapsed: elapsed}

	var entries, exits []time.Time
	var responses []float64
	for _, e := range events {
		switch e.Kind {
		case KindMsgCount:
			st.TotalMessages += int(e.Value)
		case KindCSEntry:
			entries = append(entries, e.Timestamp)
		case KindCSExit:
			exits = append(exits, e.Timestamp)
		case KindResponseTime:
			responses = append(responses, e.Value)
		case KindTimeoutAbort:
			st.Aborts++
		}
	}

	st.CompletedEntries = len(entries)
	st.Incomplete = st.CompletedEntries < expected

	if st.CompletedEntries > 0 {
		st.AvgMsgsPerEntry = float64(st.TotalMessages) / float64(st.CompletedEntries)
	}
	if len(responses) > 0 {
		var sum float64
		for _, r := range responses {
			sum += r
		}
		st.AvgResponseTime = time.Duration(sum / float64(len(responses)) * float64(time.Second))
	}

	// Synchronization delay: mean gap between each CS exit and the next
	// chronological CS entry.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Before(entries[j]) })
	sort.Slice(exits, func(i, j int) bool { return exits[i].Before(exits[j]) })
	var gaps []time.Duration
	for i := 0; i+1 < len(entries); i++ {
		if i < len(exits) {
			if d := entries[i+1].Sub(exits[i]); d > 0 {
				gaps = append(gaps, d)
			}
		}
	}
	if len(gaps) > 0 {
		var sum time.Duration
		for _, d := range gaps {
			sum += d
		}
		st.SyncDelay = sum / time.Duration(len(gaps))
	}

	if elapsed > 0 {
		st.Throughput = float64(st.CompletedEntries) / elapsed.Seconds()
	}
	return st
}
