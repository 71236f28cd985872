package node

import (
	"fmt"
	"io"

	"github.com/dusklot/valcore/log"
)

// EventDumper renders domain events published on an EventBus as
// CLI-less diagnostic lines, using one of package log's LogFormatters
// rather than the module's primary slog-backed Logger. This is the
// rendered-line path log/formatter.go's machinery exists for: operators
// attaching a terminal or test golden-output sink to a running
// ValidatorState without standing up a structured log collector.
type EventDumper struct {
	sub       *Subscription
	formatter log.LogFormatter
	out       io.Writer
	done      chan struct{}
}

// dumpedEventTypes is every EventType a ValidatorState publishes (§4.9).
var dumpedEventTypes = []EventType{
	EventEpochChanged,
	EventProposalBuilt,
	EventProposalAccepted,
	EventChainFinalized,
	EventMempoolAdd,
	EventMempoolDrop,
}

// NewEventDumper subscribes to every domain event type on bus and
// renders each one through formatter to out as it arrives. The returned
// EventDumper runs its rendering loop in its own goroutine; call Close
// to stop it and release the subscription.
func NewEventDumper(bus *EventBus, formatter log.LogFormatter, out io.Writer) *EventDumper {
	d := &EventDumper{
		sub:       bus.SubscribeMultiple(dumpedEventTypes...),
		formatter: formatter,
		out:       out,
		done:      make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *EventDumper) run() {
	defer close(d.done)
	for evt := range d.sub.Chan() {
		entry := log.LogEntry{
			Timestamp: evt.Timestamp,
			Level:     log.INFO,
			Message:   string(evt.Type),
			Fields:    map[string]interface{}{"data": evt.Data},
		}
		fmt.Fprintln(d.out, d.formatter.Format(entry))
	}
}

// Close unsubscribes from the bus and waits for the rendering loop to
// drain and exit.
func (d *EventDumper) Close() {
	d.sub.Unsubscribe()
	<-d.done
}
