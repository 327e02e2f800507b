package repository

import (
	"context"
	"sync"
)

// Subscription is a live listener handle. Updates is closed once the listener
// terminates, either through Dispose, cancellation of the parent context, or a
// backend error reported by Err.
type Subscription[T any] struct {
	updates chan T
	cancel  context.CancelFunc
	done    chan struct{}

	mu  sync.Mutex
	err error
}

// NewSubscription runs listen in its own goroutine. listen must return when its
// context is cancelled; emit reports false once the subscription is disposed.
func NewSubscription[T any](parent context.Context, buffer int, listen func(ctx context.Context, emit func(T) bool) error) *Subscription[T] {
	ctx, cancel := context.WithCancel(parent)
	s := &Subscription[T]{
		updates: make(chan T, buffer),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	emit := func(v T) bool {
		select {
		case s.updates <- v:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(s.done)
		defer close(s.updates)
		err := listen(ctx, emit)
		if err != nil && ctx.Err() == nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
		}
		cancel()
	}()

	return s
}

func (s *Subscription[T]) Updates() <-chan T {
	return s.updates
}

// Done is closed after the listener goroutine has exited.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Dispose stops the listener and waits for it to release its resources. It is
// safe to call more than once.
func (s *Subscription[T]) Dispose() {
	s.cancel()
	<-s.done
}
