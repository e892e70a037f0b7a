package notify

import (
	"log"
	"sync"

	"beacon/internal/events"
)

// Dispatcher subscribes to the event bus and feeds transitions through
// the gate one at a time, off the publisher's goroutine.
type Dispatcher struct {
	gate *Gate
	bus  *events.Bus

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher wired to the given bus and gate.
func NewDispatcher(bus *events.Bus, gate *Gate) *Dispatcher {
	return &Dispatcher{
		gate:   gate,
		bus:    bus,
		stopCh: make(chan struct{}),
	}
}

// Start subscribes to all transition events and begins dispatching.
func (d *Dispatcher) Start() {
	ch := make(chan events.Event, 256)

	d.bus.Subscribe(func(e events.Event) {
		select {
		case ch <- e:
		default:
			log.Printf("notify: event queue full, dropping %s event", e.Type)
		}
	})

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case e := <-ch:
				d.gate.Notify(e.Record, e.Previous)
			case <-d.stopCh:
				// Drain remaining events
				for {
					select {
					case e := <-ch:
						d.gate.Notify(e.Record, e.Previous)
					default:
						return
					}
				}
			}
		}
	}()
}

// Stop signals the dispatcher goroutine to finish and waits for it.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
	d.wg.Wait()
}
