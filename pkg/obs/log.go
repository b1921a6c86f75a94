package obs

import (
	"log"
	"time"

	"github.com/patrickmn/go-cache"
)

// repeated failures of the same kind are only logged once per window so a
// dead collector cannot flood the log
const logSuppressWindow = 10 * time.Second

// LogObserver writes pipeline events to the process log. Failure lines are
// rate limited per sink and kind.
type LogObserver struct {
	debug bool
	seen  *cache.Cache
}

func NewLogObserver(debug bool) *LogObserver {
	return &LogObserver{
		debug: debug,
		seen:  cache.New(logSuppressWindow, time.Minute),
	}
}

func (l *LogObserver) allow(key string) bool {
	if _, found := l.seen.Get(key); found {
		return false
	}
	l.seen.SetDefault(key, struct{}{})
	return true
}

func (l *LogObserver) EventsAccepted(sink string, n int) {}

func (l *LogObserver) EventsAcked(sink string, n int) {}

func (l *LogObserver) EventsDropped(sink string, n int, reason string) {
	if l.allow(sink + "/drop/" + reason) {
		log.Println("W! sink:", sink, "dropped", n, "event(s), reason:", reason)
	}
}

func (l *LogObserver) EncodeSkipped(sink string) {
	if l.debug {
		log.Println("D! sink:", sink, "skipped an event the encoder has no representation for")
	}
}

func (l *LogObserver) BatchFlushed(sink string, events, bytes int) {
	if l.debug {
		log.Println("D! sink:", sink, "flushed batch:", events, "event(s),", bytes, "bytes")
	}
}

func (l *LogObserver) SendSucceeded(sink string, bytes int) {
	if l.debug {
		log.Println("D! sink:", sink, "sent", bytes, "bytes")
	}
}

func (l *LogObserver) SendFailed(sink string, err error) {
	if l.allow(sink + "/send") {
		log.Println("E! sink:", sink, "failed to send:", err)
	}
}

func (l *LogObserver) ResolveSucceeded(sink, host, addr string) {
	log.Println("I! sink:", sink, "resolved", host, "to", addr)
}

func (l *LogObserver) ResolveFailed(sink, host string, err error) {
	if l.allow(sink + "/resolve") {
		log.Println("E! sink:", sink, "failed to resolve", host, "err:", err)
	}
}

func (l *LogObserver) BackoffEntered(sink string, delay time.Duration) {
	if l.allow(sink + "/backoff") {
		log.Println("W! sink:", sink, "backing off for", delay)
	}
}
