package event

import "reflect"

// Bus is a double-buffered event bus. Events emitted during frame N become
// visible in frame N+1, after SwapBuffers. Like the coordinator it is owned
// by the update goroutine.
type Bus struct {
	front    map[reflect.Type][]any
	back     map[reflect.Type][]any
	handlers map[reflect.Type][]func(any)
	order    []reflect.Type // dispatch order: first subscription or emit
}

func NewBus() *Bus {
	return &Bus{
		front:    make(map[reflect.Type][]any),
		back:     make(map[reflect.Type][]any),
		handlers: make(map[reflect.Type][]func(any)),
	}
}

func key[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func (b *Bus) track(t reflect.Type) {
	if _, ok := b.front[t]; ok {
		return
	}
	b.front[t] = nil
	b.back[t] = nil
	b.order = append(b.order, t)
}

// Emit queues an event into the back buffer.
func Emit[T any](b *Bus, ev T) {
	t := key[T]()
	b.track(t)
	b.back[t] = append(b.back[t], ev)
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	t := key[T]()
	b.track(t)
	b.handlers[t] = append(b.handlers[t], func(ev any) { fn(ev.(T)) })
}

// Pending returns the events of type T readable this frame.
func Pending[T any](b *Bus) []T {
	events := b.front[key[T]()]
	out := make([]T, len(events))
	for i, ev := range events {
		out[i] = ev.(T)
	}
	return out
}

// SwapBuffers rotates back to front and clears the new back buffer.
func (b *Bus) SwapBuffers() {
	b.front, b.back = b.back, b.front
	for k := range b.back {
		b.back[k] = b.back[k][:0]
	}
}

// DispatchAll delivers front-buffer events to their handlers, type by type
// in first-seen order, events in emit order.
func (b *Bus) DispatchAll() int {
	n := 0
	for _, t := range b.order {
		handlers := b.handlers[t]
		for _, ev := range b.front[t] {
			for _, h := range handlers {
				h(ev)
			}
			n++
		}
	}
	return n
}
