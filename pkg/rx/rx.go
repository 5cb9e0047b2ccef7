// Package rx bridges one producer of values to any number of observers.
//
// A Subject is the bus. Producers hold its Sink view, consumers its Source
// view; neither sees the other. Delivery is synchronous on the goroutine
// that calls Send, in registration order, with no buffering: an observer
// only sees values sent after it subscribed.
//
// Teardown is explicit. Subscribe returns a Handle and releasing it is the
// only way to stop delivery. Nothing is unsubscribed implicitly.
package rx

import (
	"sync"
	"sync/atomic"
)

// Observer receives values and the terminal completion signal.
// Either callback may be nil.
type Observer[T any] struct {
	OnNext     func(T)
	OnComplete func()
}

// Func adapts a value callback into an Observer.
func Func[T any](fn func(T)) Observer[T] {
	return Observer[T]{OnNext: fn}
}

// Sink is the producer-facing view of a bus.
type Sink[T any] interface {
	// Send broadcasts value to every registered observer.
	Send(value T)
	// Complete signals terminal closure. Values sent afterwards are dropped.
	Complete()
}

// Source is the consumer-facing view of a bus.
type Source[T any] interface {
	// Subscribe registers an observer until the returned handle is released.
	Subscribe(observer Observer[T]) *Handle
}

// Stats describes the current state of a subject.
type Stats struct {
	Published uint64
	Observers int
	Completed bool
}

type entry[T any] struct {
	id       uint64
	observer Observer[T]
	active   atomic.Bool
}

// Subject is an in-process broadcast bus with unlimited demand.
// Send is expected to be called from one goroutine at a time; Subscribe and
// Handle.Release are safe from any goroutine, including from inside an
// observer callback.
type Subject[T any] struct {
	mu        sync.Mutex
	nextID    uint64
	entries   []*entry[T]
	completed bool
	published atomic.Uint64
}

// NewSubject creates an empty bus.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// Send broadcasts value to every observer registered at the time of the call.
func (s *Subject[T]) Send(value T) {
	s.mu.Lock()
	if s.completed {
		s.mu.Unlock()
		return
	}
	targets := make([]*entry[T], len(s.entries))
	copy(targets, s.entries)
	s.mu.Unlock()

	s.published.Add(1)
	for _, e := range targets {
		// Released between snapshot and delivery.
		if !e.active.Load() {
			continue
		}
		if e.observer.OnNext != nil {
			e.observer.OnNext(value)
		}
	}
}

// Complete delivers the completion signal once and drops every observer.
func (s *Subject[T]) Complete() {
	s.mu.Lock()
	if s.completed {
		s.mu.Unlock()
		return
	}
	s.completed = true
	targets := s.entries
	s.entries = nil
	s.mu.Unlock()

	for _, e := range targets {
		if !e.active.Swap(false) {
			continue
		}
		if e.observer.OnComplete != nil {
			e.observer.OnComplete()
		}
	}
}

// Subscribe registers observer. Subscribing to a completed subject invokes
// OnComplete immediately and returns an already released handle.
func (s *Subject[T]) Subscribe(observer Observer[T]) *Handle {
	s.mu.Lock()
	if s.completed {
		s.mu.Unlock()
		if observer.OnComplete != nil {
			observer.OnComplete()
		}
		return releasedHandle()
	}

	s.nextID++
	e := &entry[T]{id: s.nextID, observer: observer}
	e.active.Store(true)
	s.entries = append(s.entries, e)
	s.mu.Unlock()

	return newHandle(func() { s.remove(e) })
}

func (s *Subject[T]) remove(target *entry[T]) {
	target.active.Store(false)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.id == target.id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}

// Stats returns published count and the number of live observers.
func (s *Subject[T]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Published: s.published.Load(),
		Observers: len(s.entries),
		Completed: s.completed,
	}
}

// AsSink hides the subject behind its producer view.
func (s *Subject[T]) AsSink() Sink[T] {
	return sinkView[T]{s: s}
}

// AsSource hides the subject behind its consumer view.
func (s *Subject[T]) AsSource() Source[T] {
	return sourceView[T]{s: s}
}

type sinkView[T any] struct{ s *Subject[T] }

func (v sinkView[T]) Send(value T) { v.s.Send(value) }
func (v sinkView[T]) Complete()    { v.s.Complete() }

type sourceView[T any] struct{ s *Subject[T] }

func (v sourceView[T]) Subscribe(observer Observer[T]) *Handle {
	return v.s.Subscribe(observer)
}
