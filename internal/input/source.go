package input

import (
	"context"
	"sync"

	"github.com/gdamore/tcell/v2"
)

// KeySource yields raw key presses, for screens that need text entry.
type KeySource interface {
	PollKey() (*tcell.EventKey, bool)
	WaitKey(ctx context.Context) (*tcell.EventKey, bool)
}

// ScreenSource reads a screen's events on its own goroutine. It is the only
// reader of the screen: menus, prompts and room viewers all take their keys
// from it, one at a time.
type ScreenSource struct {
	keys chan *tcell.EventKey
	done chan struct{}
	once sync.Once
}

// NewScreenSource starts reading events from screen. The reader exits when
// the screen is finalized (PollEvent returns nil).
func NewScreenSource(screen tcell.Screen) *ScreenSource {
	s := &ScreenSource{
		keys: make(chan *tcell.EventKey, 32),
		done: make(chan struct{}),
	}
	go func() {
		defer s.once.Do(func() { close(s.done) })
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			switch ev := ev.(type) {
			case *tcell.EventResize:
				screen.Sync()
			case *tcell.EventKey:
				select {
				case s.keys <- ev:
				default:
					// Full buffer: the user is typing faster than the loop ticks.
				}
			}
		}
	}()
	return s
}

// Closed is closed once the screen has gone away.
func (s *ScreenSource) Closed() <-chan struct{} { return s.done }

// PollKey returns the next queued key press without blocking.
func (s *ScreenSource) PollKey() (*tcell.EventKey, bool) {
	select {
	case k := <-s.keys:
		return k, true
	default:
		return nil, false
	}
}

// WaitKey blocks until a key arrives, the screen closes or ctx ends.
func (s *ScreenSource) WaitKey(ctx context.Context) (*tcell.EventKey, bool) {
	select {
	case k := <-s.keys:
		return k, true
	case <-s.done:
		// Drain what was queued before the close.
		return s.PollKey()
	case <-ctx.Done():
		return nil, false
	}
}

// Poll returns the next mapped event, skipping unmapped keys. After the
// screen closed it reports EventQuit so the caller's loop ends.
func (s *ScreenSource) Poll() (Event, bool) {
	for {
		k, ok := s.PollKey()
		if !ok {
			break
		}
		if e := KeyToEvent(k); e != EventNone {
			return e, true
		}
	}
	select {
	case <-s.done:
		return EventQuit, true
	default:
		return EventNone, false
	}
}

// Queue is a Source backed by a fixed list, for scripted input.
type Queue struct {
	mu     sync.Mutex
	events []Event
}

// NewQueue creates a Queue that yields events in order.
func NewQueue(events ...Event) *Queue {
	return &Queue{events: events}
}

// Push appends events.
func (q *Queue) Push(events ...Event) {
	q.mu.Lock()
	q.events = append(q.events, events...)
	q.mu.Unlock()
}

// Poll pops the first event.
func (q *Queue) Poll() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return EventNone, false
	}
	e := q.events[0]
	q.events = q.events[1:]
	return e, true
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// KeyQueue is a KeySource (and Source) backed by a fixed list of keys.
type KeyQueue struct {
	mu   sync.Mutex
	keys []*tcell.EventKey
}

// NewKeyQueue creates a KeyQueue.
func NewKeyQueue(keys ...*tcell.EventKey) *KeyQueue {
	return &KeyQueue{keys: keys}
}

// Runes queues one key per rune of s.
func (q *KeyQueue) Runes(s string) *KeyQueue {
	for _, r := range s {
		q.Push(tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone))
	}
	return q
}

// Keys queues special keys.
func (q *KeyQueue) Keys(keys ...tcell.Key) *KeyQueue {
	for _, k := range keys {
		q.Push(tcell.NewEventKey(k, 0, tcell.ModNone))
	}
	return q
}

// Push appends keys.
func (q *KeyQueue) Push(keys ...*tcell.EventKey) {
	q.mu.Lock()
	q.keys = append(q.keys, keys...)
	q.mu.Unlock()
}

// PollKey pops the first key.
func (q *KeyQueue) PollKey() (*tcell.EventKey, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.keys) == 0 {
		return nil, false
	}
	k := q.keys[0]
	q.keys = q.keys[1:]
	return k, true
}

// WaitKey pops the first key; an empty queue behaves like a closed screen.
func (q *KeyQueue) WaitKey(context.Context) (*tcell.EventKey, bool) {
	return q.PollKey()
}

// Poll maps the next key.
func (q *KeyQueue) Poll() (Event, bool) {
	for {
		k, ok := q.PollKey()
		if !ok {
			return EventNone, false
		}
		if e := KeyToEvent(k); e != EventNone {
			return e, true
		}
	}
}
