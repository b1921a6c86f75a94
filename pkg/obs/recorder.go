package obs

import (
	"sync"
	"time"
)

// Recorder is an Observer that counts what it sees. Tests inject it where
// production code injects the log or prometheus observers.
type Recorder struct {
	mu sync.Mutex

	accepted      int
	acked         int
	dropped       map[string]int
	encodeSkipped int
	batches       int
	batchEvents   int
	sentBytes     int
	sendErrors    int
	resolves      int
	resolveErrors int
	backoffs      []time.Duration
}

func NewRecorder() *Recorder {
	return &Recorder{dropped: make(map[string]int)}
}

func (r *Recorder) EventsAccepted(sink string, n int) {
	r.mu.Lock()
	r.accepted += n
	r.mu.Unlock()
}

func (r *Recorder) EventsAcked(sink string, n int) {
	r.mu.Lock()
	r.acked += n
	r.mu.Unlock()
}

func (r *Recorder) EventsDropped(sink string, n int, reason string) {
	r.mu.Lock()
	r.dropped[reason] += n
	r.mu.Unlock()
}

func (r *Recorder) EncodeSkipped(sink string) {
	r.mu.Lock()
	r.encodeSkipped++
	r.mu.Unlock()
}

func (r *Recorder) BatchFlushed(sink string, events, bytes int) {
	r.mu.Lock()
	r.batches++
	r.batchEvents += events
	r.mu.Unlock()
}

func (r *Recorder) SendSucceeded(sink string, bytes int) {
	r.mu.Lock()
	r.sentBytes += bytes
	r.mu.Unlock()
}

func (r *Recorder) SendFailed(sink string, err error) {
	r.mu.Lock()
	r.sendErrors++
	r.mu.Unlock()
}

func (r *Recorder) ResolveSucceeded(sink, host, addr string) {
	r.mu.Lock()
	r.resolves++
	r.mu.Unlock()
}

func (r *Recorder) ResolveFailed(sink, host string, err error) {
	r.mu.Lock()
	r.resolveErrors++
	r.mu.Unlock()
}

func (r *Recorder) BackoffEntered(sink string, delay time.Duration) {
	r.mu.Lock()
	r.backoffs = append(r.backoffs, delay)
	r.mu.Unlock()
}

func (r *Recorder) Accepted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accepted
}

func (r *Recorder) Acked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acked
}

func (r *Recorder) Dropped(reason string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped[reason]
}

func (r *Recorder) EncodeSkips() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.encodeSkipped
}

func (r *Recorder) Batches() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batches
}

func (r *Recorder) BatchedEvents() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batchEvents
}

func (r *Recorder) SentBytes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sentBytes
}

func (r *Recorder) SendErrors() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sendErrors
}

func (r *Recorder) Resolves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolves
}

func (r *Recorder) ResolveErrors() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolveErrors
}

func (r *Recorder) Backoffs() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, len(r.backoffs))
	copy(out, r.backoffs)
	return out
}
