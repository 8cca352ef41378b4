package inject

import (
	"encoding/json"
	"log"
	"sync"
)

// EventType classifies watcher notifications.
type EventType string

const (
	EventConnect    EventType = "connect"
	EventDisconnect EventType = "disconnect"
	EventExecResult EventType = "exec-result"
)

// Event carries one session lifecycle notification to a project's
// watchers. Client is a registry snapshot, present on connect only; Data
// carries the payload for exec-result events.
type Event struct {
	Type      EventType
	ProjectID int64
	Token     string
	SessionID int64
	Client    *ClientAggregate
	Data      json.RawMessage
}

// WatcherFunc receives events for one project.
type WatcherFunc func(Event)

type watcherEntry struct {
	projectID int64
	fn        WatcherFunc
}

// Watchers fans connect/disconnect events out to per-project subscribers.
// Delivery runs on a single worker goroutine draining a pending queue, so
// a slow or panicking watcher never inflates the registration path, and
// events are always observed in the order they were enqueued.
type Watchers struct {
	mu      sync.Mutex
	next    int64
	entries map[int64]watcherEntry

	queueMu   sync.Mutex
	queue     []Event
	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func NewWatchers() *Watchers {
	w := &Watchers{
		entries: make(map[int64]watcherEntry),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w
}

// Watch subscribes fn to events for projectID. The returned cancel
// removes the subscription; watcher lifecycle is owned by the caller.
func (w *Watchers) Watch(projectID int64, fn WatcherFunc) (cancel func()) {
	w.mu.Lock()
	w.next++
	id := w.next
	w.entries[id] = watcherEntry{projectID: projectID, fn: fn}
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.entries, id)
		w.mu.Unlock()
	}
}

// Notify enqueues ev for asynchronous delivery. It never blocks the
// caller; the queue is unbounded so enqueue order is exactly the order
// watchers observe.
func (w *Watchers) Notify(ev Event) {
	w.queueMu.Lock()
	w.queue = append(w.queue, ev)
	w.queueMu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Close stops the delivery loop. Queued events are dropped.
func (w *Watchers) Close() {
	w.closeOnce.Do(func() { close(w.done) })
}

func (w *Watchers) loop() {
	for {
		select {
		case <-w.wake:
			w.drain()
		case <-w.done:
			return
		}
	}
}

// drain delivers pending events in enqueue order, taking the queue in
// batches so Notify never waits on a callback.
func (w *Watchers) drain() {
	for {
		w.queueMu.Lock()
		batch := w.queue
		w.queue = nil
		w.queueMu.Unlock()

		if len(batch) == 0 {
			return
		}
		for _, ev := range batch {
			w.deliver(ev)
		}
	}
}

func (w *Watchers) deliver(ev Event) {
	w.mu.Lock()
	fns := make([]WatcherFunc, 0, len(w.entries))
	for _, e := range w.entries {
		if e.projectID == ev.ProjectID {
			fns = append(fns, e.fn)
		}
	}
	w.mu.Unlock()

	for _, fn := range fns {
		w.invoke(fn, ev)
	}
}

func (w *Watchers) invoke(fn WatcherFunc, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("watcher callback panic: %v", r)
		}
	}()
	fn(ev)
}
