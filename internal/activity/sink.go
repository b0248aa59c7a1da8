package activity

import (
	"context"
	"fmt"
	"os"
)

// Appender persists events.
type Appender interface {
	AppendActivity(ctx context.Context, e Event) error
}

// Sink drains a bus subscription into an Appender on its own goroutine.
type Sink struct {
	events <-chan Event
	stop   func()
	done   chan struct{}
}

// NewSink subscribes to bus and starts persisting events to dst. Write
// failures are reported on stderr and do not stop the sink.
func NewSink(ctx context.Context, bus *Bus, dst Appender) *Sink {
	events, stop := bus.Subscribe(64)
	s := &Sink{events: events, stop: stop, done: make(chan struct{})}
	go s.processLoop(ctx, dst)
	return s
}

func (s *Sink) processLoop(ctx context.Context, dst Appender) {
	defer close(s.done)
	for e := range s.events {
		if err := dst.AppendActivity(ctx, e); err != nil {
			fmt.Fprintf(os.Stderr, "warning: record activity %s: %v\n", e.Type, err)
		}
	}
}

// Close unsubscribes and waits for buffered events to be written.
func (s *Sink) Close() {
	s.stop()
	<-s.done
}
