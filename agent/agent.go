// Package agent wires the ingest surfaces to the sinks and supervises their
// lifecycle. Every surface is an actor in one run group, when any of them
// dies the whole agent winds down so a half-alive bridge never lingers.
package agent

import (
	"context"
	"log"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"

	"flashcat.cloud/statsgraf/api"
	"flashcat.cloud/statsgraf/config"
	"flashcat.cloud/statsgraf/heartbeat"
	"flashcat.cloud/statsgraf/listener"
	"flashcat.cloud/statsgraf/pkg/obs"
	"flashcat.cloud/statsgraf/sinks"
)

type Agent struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewAgent() *Agent {
	return &Agent{}
}

func (a *Agent) Start() error {
	log.Println("I! agent starting")

	registry := prometheus.NewRegistry()
	observer := obs.Multi(
		obs.NewLogObserver(config.Config.DebugMode),
		obs.NewPromObserver(registry),
	)

	if err := sinks.Init(observer); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())

	var g run.Group
	{
		// agent lifetime, released by Stop
		g.Add(
			func() error {
				<-ctx.Done()
				return nil
			},
			func(error) {
				cancel()
			},
		)
	}
	if conf := config.Config.HTTP; conf != nil && conf.Enable {
		srv := api.NewServer(registry)
		g.Add(
			func() error {
				return srv.Run(ctx)
			},
			func(error) {
				cancel()
			},
		)
	}
	if conf := config.Config.Listener; conf != nil && conf.Enable {
		l := listener.New(conf, observer)
		g.Add(
			func() error {
				return l.Run(ctx)
			},
			func(error) {
				cancel()
			},
		)
	}
	if conf := config.Config.Heartbeat; conf != nil && conf.Enable {
		h, err := heartbeat.New()
		if err != nil {
			cancel()
			sinks.Stop()
			return err
		}
		g.Add(
			func() error {
				return h.Run(ctx)
			},
			func(error) {
				cancel()
			},
		)
	}
	if config.Config.SelfMetrics.Enable {
		s := newSelfMetrics(registry, config.Config.SelfMetrics.Interval)
		g.Add(
			func() error {
				return s.Run(ctx)
			},
			func(error) {
				cancel()
			},
		)
	}

	a.cancel = cancel
	a.done = make(chan struct{})

	go func() {
		defer close(a.done)
		if err := g.Run(); err != nil {
			log.Println("E! agent runner exited:", err)
		}
		// surfaces are down, drain whatever the sinks still hold
		sinks.Stop()
	}()

	return nil
}

func (a *Agent) Stop() {
	log.Println("I! agent stopping")

	if a.cancel != nil {
		a.cancel()
		<-a.done
	}

	log.Println("I! agent stopped")
}

func (a *Agent) Reload() {
	log.Println("I! agent reloading")

	a.Stop()
	if err := a.Start(); err != nil {
		log.Println("E! failed to restart agent:", err)
	}
}
