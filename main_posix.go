//go:build linux

package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"

	"flashcat.cloud/statsgraf/pkg/pprof"
)

// osHooks starts the linux-only helpers: the on-demand profiler and, when
// the bridge is the entrypoint of a container, the zombie reaper.
func osHooks() {
	go profile()
	go reapDaemon()
}

// profile waits for SIGUSR2 and brings up the loopback pprof server, so a
// long-running process can be inspected without a restart.
func profile() {
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGUSR2)
	for sig := range sc {
		if sig == syscall.SIGUSR2 {
			go pprof.Go()
		}
	}
}

type reaped struct {
	pid    int
	status int
}

func reapChildren() ([]reaped, error) {
	var (
		ws   unix.WaitStatus
		rus  unix.Rusage
		dead []reaped
	)
	for {
		pid, err := unix.Wait4(-1, &ws, unix.WNOHANG, &rus)
		if err != nil {
			if err == unix.ECHILD {
				return dead, nil
			}
			return nil, err
		}
		if pid <= 0 {
			return dead, nil
		}

		status := ws.ExitStatus()
		if ws.Signaled() {
			status = 128 + int(ws.Signal())
		}
		dead = append(dead, reaped{pid: pid, status: status})
	}
}

// reapDaemon collects orphaned children while running as pid 1, where no
// init system exists to do it.
func reapDaemon() {
	if os.Getpid() != 1 {
		return
	}

	unix.Prctl(unix.PR_SET_CHILD_SUBREAPER, 1, 0, 0, 0)

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, unix.SIGCHLD)
	for range signals {
		dead, err := reapChildren()
		if err != nil {
			log.Println("E! failed to reap children:", err)
			continue
		}
		for _, d := range dead {
			log.Printf("I! reaped pid: %d, status: %d", d.pid, d.status)
		}
	}
}
