// Package obs is the side-channel the delivery pipeline reports into. The
// pipeline only ever talks to the Observer interface, so backends can be
// swapped and tests can record events instead.
package obs

import (
	"time"
)

type Observer interface {
	// flow control
	EventsAccepted(sink string, n int)
	EventsAcked(sink string, n int)
	EventsDropped(sink string, n int, reason string)

	// encoding
	EncodeSkipped(sink string)

	// batching and sending
	BatchFlushed(sink string, events, bytes int)
	SendSucceeded(sink string, bytes int)
	SendFailed(sink string, err error)

	// resolution and retry
	ResolveSucceeded(sink, host, addr string)
	ResolveFailed(sink, host string, err error)
	BackoffEntered(sink string, delay time.Duration)
}

type nop struct{}

func (nop) EventsAccepted(string, int)          {}
func (nop) EventsAcked(string, int)             {}
func (nop) EventsDropped(string, int, string)   {}
func (nop) EncodeSkipped(string)                {}
func (nop) BatchFlushed(string, int, int)       {}
func (nop) SendSucceeded(string, int)           {}
func (nop) SendFailed(string, error)            {}
func (nop) ResolveSucceeded(string, string, string) {}
func (nop) ResolveFailed(string, string, error) {}
func (nop) BackoffEntered(string, time.Duration) {}

// Nop returns an observer that swallows everything.
func Nop() Observer {
	return nop{}
}

type multi []Observer

// Multi fans every event out to all given observers.
func Multi(obs ...Observer) Observer {
	return multi(obs)
}

func (m multi) EventsAccepted(sink string, n int) {
	for _, o := range m {
		o.EventsAccepted(sink, n)
	}
}

func (m multi) EventsAcked(sink string, n int) {
	for _, o := range m {
		o.EventsAcked(sink, n)
	}
}

func (m multi) EventsDropped(sink string, n int, reason string) {
	for _, o := range m {
		o.EventsDropped(sink, n, reason)
	}
}

func (m multi) EncodeSkipped(sink string) {
	for _, o := range m {
		o.EncodeSkipped(sink)
	}
}

func (m multi) BatchFlushed(sink string, events, bytes int) {
	for _, o := range m {
		o.BatchFlushed(sink, events, bytes)
	}
}

func (m multi) SendSucceeded(sink string, bytes int) {
	for _, o := range m {
		o.SendSucceeded(sink, bytes)
	}
}

func (m multi) SendFailed(sink string, err error) {
	for _, o := range m {
		o.SendFailed(sink, err)
	}
}

func (m multi) ResolveSucceeded(sink, host, addr string) {
	for _, o := range m {
		o.ResolveSucceeded(sink, host, addr)
	}
}

func (m multi) ResolveFailed(sink, host string, err error) {
	for _, o := range m {
		o.ResolveFailed(sink, host, err)
	}
}

func (m multi) BackoffEntered(sink string, delay time.Duration) {
	for _, o := range m {
		o.BackoffEntered(sink, delay)
	}
}
