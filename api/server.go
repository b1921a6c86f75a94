package api

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"flashcat.cloud/statsgraf/config"
	"flashcat.cloud/statsgraf/pkg/aop"
)

// Server is the ingest and introspection surface: push routes that feed the
// sinks, plus /metrics for the bridge's own series.
type Server struct {
	srv      *http.Server
	registry *prometheus.Registry
}

func NewServer(registry *prometheus.Registry) *Server {
	conf := config.Config.HTTP

	gin.SetMode(conf.RunMode)
	if strings.ToLower(conf.RunMode) == "release" {
		aop.DisableConsoleColor()
	}

	r := gin.New()
	r.Use(aop.Recovery())

	if conf.PrintAccess {
		r.Use(aop.Logger())
	}

	s := &Server{registry: registry}
	s.configRoutes(r)

	s.srv = &http.Server{
		Addr:         conf.Address,
		Handler:      r,
		ReadTimeout:  time.Duration(conf.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(conf.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(conf.IdleTimeout) * time.Second,
	}

	return s
}

// Run serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	conf := config.Config.HTTP

	errCh := make(chan error, 1)
	go func() {
		log.Println("I! http server listening on:", conf.Address)

		var err error
		if conf.CertFile != "" && conf.KeyFile != "" {
			s.srv.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			err = s.srv.ListenAndServeTLS(conf.CertFile, conf.KeyFile)
		} else {
			err = s.srv.ListenAndServe()
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}
