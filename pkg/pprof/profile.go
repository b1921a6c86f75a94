// Package pprof serves the runtime profiler on a random loopback port so a
// live process can be inspected without restarting it.
package pprof

import (
	"fmt"
	"log"
	"net"
	"net/http"
	_ "net/http/pprof"
	"sync/atomic"
)

var (
	started uint32
	addr    string
)

// Go binds the profiler and serves it until the process exits. Only the
// first call starts a server, later ones just log where it already lives.
func Go() {
	if !atomic.CompareAndSwapUint32(&started, 0, 1) {
		log.Println("I! pprof already running at", addr)
		return
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		log.Println("E! failed to listen for pprof:", err)
		return
	}

	addr = fmt.Sprintf("http://127.0.0.1:%d/debug/pprof", listener.Addr().(*net.TCPAddr).Port)
	log.Println("I! pprof listening at", addr)

	if err := http.Serve(listener, nil); err != nil {
		log.Println("E! pprof server exited:", err)
	}
}
