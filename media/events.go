package media

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type queuedEvent struct {
	event Event
	err   error
}

// dispatcher delivers events on its own goroutine so listeners never run
// inside a Sink method call.
type dispatcher struct {
	logger    *zap.Logger
	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
	queue     chan queuedEvent
	done      chan struct{}
	closeOnce sync.Once
	lastDrop  time.Time
}

func newDispatcher(logger *zap.Logger) *dispatcher {
	d := &dispatcher{
		logger:    logger,
		listeners: make(map[int]Listener),
		queue:     make(chan queuedEvent, 64),
		done:      make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) subscribe(fn Listener) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++
	d.listeners[id] = fn

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.listeners, id)
	}
}

func (d *dispatcher) emit(event Event, err error) {
	select {
	case <-d.done:
		return
	default:
	}

	select {
	case d.queue <- queuedEvent{event: event, err: err}:
	default:
		d.mu.Lock()
		if time.Since(d.lastDrop) > 5*time.Second {
			d.lastDrop = time.Now()
			d.logger.Warn("Sink event queue full, dropping event", zap.String("event", string(event)))
		}
		d.mu.Unlock()
	}
}

func (d *dispatcher) run() {
	for {
		select {
		case <-d.done:
			return
		case ev := <-d.queue:
			d.mu.Lock()
			listeners := make([]Listener, 0, len(d.listeners))
			for _, fn := range d.listeners {
				listeners = append(listeners, fn)
			}
			d.mu.Unlock()

			for _, fn := range listeners {
				fn(ev.event, ev.err)
			}
		}
	}
}

func (d *dispatcher) close() {
	d.closeOnce.Do(func() {
		close(d.done)
	})
}
