package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull makes Emit non-blocking. When the main buffer is full,
	// security events overflow into a small reserved lane and everything
	// else is dropped.
	DropIfFull bool
}

// ErrDropped is reported through onFailure for every discarded event.
var ErrDropped = errors.New("audit event dropped: buffer full")

// reservedLane is the capacity kept for security events under DropIfFull.
const reservedLane = 16

// Dispatcher forwards audit events to a sink from a single background
// goroutine. Events in the main buffer keep emission order; reserved-lane
// events are delivered ahead of it. A panicking sink is recovered and
// reported through onFailure.
type Dispatcher struct {
	sink       Sink
	onFailure  func(Event, error)
	dropIfFull bool

	queue    chan Event
	reserved chan Event
	stop     chan struct{}
	wg    sync.WaitGroup

	closing   atomic.Bool
	closeOnce sync.Once
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

// NewDispatcher starts a dispatcher. It returns nil when auditing is
// disabled; a nil Dispatcher accepts and discards every call.
func NewDispatcher(cfg Config, sink Sink, onFailure func(Event, error)) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:       sink,
		onFailure:  onFailure,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan Event, max(cfg.BufferSize, 1)),
		stop:       make(chan struct{}),
	}
	if cfg.DropIfFull {
		d.reserved = make(chan Event, reservedLane)
	}
	d.wg.Add(1)
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()
	for {
		select {
		case event := <-d.reserved:
			d.deliver(event)
			continue
		default:
		}

		select {
		case event := <-d.reserved:
			d.deliver(event)
		case event := <-d.queue:
			d.deliver(event)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.reserved:
			d.deliver(event)
		case event := <-d.queue:
			d.deliver(event)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(event Event) {
	defer func() {
		if r := recover(); r != nil {
			d.failed.Add(1)
			if d.onFailure != nil {
				d.onFailure(event, fmt.Errorf("audit sink panic: %v", r))
			}
		}
	}()
	d.sink.Emit(context.Background(), event)
}

// Emit queues event. Under DropIfFull it never waits on the sink; otherwise
// it waits for buffer space until ctx is done.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closing.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
			return
		default:
		}
		if event.Outcome == OutcomeSecurityEvent {
			select {
			case d.reserved <- event:
				return
			default:
			}
		}
		d.drop(event)
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.drop(event)
	case <-d.stop:
	}
}

func (d *Dispatcher) drop(event Event) {
	d.dropped.Add(1)
	if d.onFailure != nil {
		d.onFailure(event, ErrDropped)
	}
}

// Close stops accepting events, delivers everything already queued and
// waits for the sink. It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closing.Store(true)
		close(d.stop)
		d.wg.Wait()
	})
}

// Dropped reports how many events were discarded.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Failed reports how many deliveries panicked inside the sink.
func (d *Dispatcher) Failed() uint64 {
	if d == nil {
		return 0
	}
	return d.failed.Load()
}
