package util

import (
	"fmt"
	"time"
)

const (
	// DefaultBatchMaxBytes fits a common 1500 MTU with headroom.
	DefaultBatchMaxBytes  = 1300
	DefaultBatchMaxEvents = 1000
	DefaultBatchTimeout   = time.Second
)

// BatchSettings are the three independent flush bounds of an aggregator.
type BatchSettings struct {
	MaxBytes  int
	MaxEvents int
	Timeout   time.Duration
}

// Normalize fills unset bounds with defaults and rejects nonsensical ones.
func (s BatchSettings) Normalize() (BatchSettings, error) {
	if s.MaxBytes < 0 || s.MaxEvents < 0 || s.Timeout < 0 {
		return s, fmt.Errorf("batch bounds must not be negative: bytes=%d events=%d timeout=%s", s.MaxBytes, s.MaxEvents, s.Timeout)
	}
	if s.MaxBytes == 0 {
		s.MaxBytes = DefaultBatchMaxBytes
	}
	if s.MaxEvents == 0 {
		s.MaxEvents = DefaultBatchMaxEvents
	}
	if s.Timeout == 0 {
		s.Timeout = DefaultBatchTimeout
	}
	return s, nil
}

// Batch accumulates encoded events until one of the bounds is hit. The byte
// bound governs amortized accumulation: a batch sitting exactly at the bound
// is still open, and a single event larger than the bound travels as its own
// batch rather than being dropped.
type Batch struct {
	settings BatchSettings

	buf    []byte
	events int
}

func NewBatch(settings BatchSettings) *Batch {
	return &Batch{
		settings: settings,
		buf:      make([]byte, 0, settings.MaxBytes),
	}
}

// WouldOverflow reports whether appending enc would push the buffer past the
// byte bound.
func (b *Batch) WouldOverflow(enc []byte) bool {
	return len(b.buf)+len(enc) > b.settings.MaxBytes
}

func (b *Batch) Append(enc []byte) {
	b.buf = append(b.buf, enc...)
	b.events++
}

// Full reports whether the event-count bound has been reached.
func (b *Batch) Full() bool {
	return b.events >= b.settings.MaxEvents
}

// OverBytes reports whether the buffer already exceeds the byte bound, which
// only happens when a single oversized event was appended.
func (b *Batch) OverBytes() bool {
	return len(b.buf) > b.settings.MaxBytes
}

func (b *Batch) Empty() bool {
	return b.events == 0
}

func (b *Batch) Events() int {
	return b.events
}

func (b *Batch) Size() int {
	return len(b.buf)
}

// Take hands out the accumulated payload and opens a fresh batch.
func (b *Batch) Take() ([]byte, int) {
	payload, events := b.buf, b.events
	b.buf = make([]byte, 0, b.settings.MaxBytes)
	b.events = 0
	return payload, events
}
