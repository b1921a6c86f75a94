package util

import (
	"context"
	"errors"
	"time"

	"flashcat.cloud/statsgraf/pkg/obs"
)

const (
	DefaultChanSize = 100000

	// how long a final flush may keep trying at shutdown
	shutdownFlushTimeout = 2 * time.Second
)

// BatchQueue moves encoded events through a batch into a transport. A single
// goroutine owns the batch, the flush timer and the transport state; Push is
// the only entry point other goroutines touch. While the transport is
// unavailable the loop blocks, the channel fills and Push starts returning
// ErrNotReady, which is how backpressure reaches the caller.
type BatchQueue struct {
	sink     string
	timeout  time.Duration
	in       chan []byte
	batch    *Batch
	tr       Transport
	acker    Acker
	observer obs.Observer

	cancel context.CancelFunc
	done   chan struct{}
}

func NewBatchQueue(sink string, settings BatchSettings, chanSize int, tr Transport, acker Acker, observer obs.Observer) *BatchQueue {
	if chanSize <= 0 {
		chanSize = DefaultChanSize
	}
	if acker == nil {
		acker = AckFunc(func(int) {})
	}
	if observer == nil {
		observer = obs.Nop()
	}

	q := &BatchQueue{
		sink:     sink,
		timeout:  settings.Timeout,
		in:       make(chan []byte, chanSize),
		batch:    NewBatch(settings),
		tr:       tr,
		acker:    acker,
		observer: observer,
		done:     make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	go q.loop(ctx)

	return q
}

// Push queues one encoded event. It never blocks; a full queue means the
// transport is stalled and the caller must hold the event.
func (q *BatchQueue) Push(enc []byte) error {
	select {
	case q.in <- enc:
		return nil
	default:
		return ErrNotReady
	}
}

func (q *BatchQueue) Pending() int {
	return len(q.in)
}

func (q *BatchQueue) Stop() {
	q.cancel()
	<-q.done
}

func (q *BatchQueue) loop(ctx context.Context) {
	defer close(q.done)

	var timer *time.Timer
	var timeout <-chan time.Time

	clearTimer := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			timeout = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			clearTimer()
			q.drainAndClose()
			return

		case enc := <-q.in:
			if q.batch.WouldOverflow(enc) && !q.batch.Empty() {
				clearTimer()
				q.flush(ctx)
			}
			if q.batch.Empty() {
				// the time bound runs from the moment a batch opens
				timer = time.NewTimer(q.timeout)
				timeout = timer.C
			}
			q.batch.Append(enc)
			if q.batch.Full() || q.batch.OverBytes() {
				clearTimer()
				q.flush(ctx)
			}

		case <-timeout:
			timer = nil
			timeout = nil
			q.flush(ctx)
		}
	}
}

// flush hands the current batch to the transport, waiting out resolution and
// backoff. Events of a batch that cannot be delivered before ctx ends are
// released to the acker anyway so upstream accounting is not left hanging.
func (q *BatchQueue) flush(ctx context.Context) {
	payload, count := q.batch.Take()
	if count == 0 {
		return
	}

	for {
		err := q.tr.TrySend(ctx, payload)
		if err == nil {
			q.observer.BatchFlushed(q.sink, count, len(payload))
			q.acker.Ack(count)
			return
		}
		if errors.Is(err, ErrNotReady) {
			if werr := q.tr.WaitReady(ctx); werr == nil {
				continue
			}
		}

		q.observer.EventsDropped(q.sink, count, "shutdown")
		q.acker.Ack(count)
		return
	}
}

// drainAndClose gives queued events one bounded chance to leave before the
// transport goes away.
func (q *BatchQueue) drainAndClose() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
	defer cancel()

	for drained := false; !drained; {
		select {
		case enc := <-q.in:
			if q.batch.WouldOverflow(enc) && !q.batch.Empty() {
				q.flush(ctx)
			}
			q.batch.Append(enc)
			if q.batch.Full() || q.batch.OverBytes() {
				q.flush(ctx)
			}
		default:
			drained = true
		}
	}
	q.flush(ctx)

	q.tr.Close()
}
