// Package relay serves a room's snapshots to websocket clients. One hub holds
// the only subscription to the backing store; every client receives the
// latest full snapshot on connect and again after each change. In-process
// consumers share that subscription through Hub.Transport.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// NewRouter builds the relay's HTTP routes:
//
//	GET /ws       websocket snapshot stream
//	GET /healthz  liveness and client count
//	GET /metrics  prometheus exposition of gatherer
func NewRouter(hub *Hub, gatherer prometheus.Gatherer, log zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"room":    hub.Room(),
			"clients": hub.Clients(),
		})
	})
	r.GET("/ws", hub.ServeWS)

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return r
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

// Serve runs the hub and an HTTP server on addr until ctx is done, then
// shuts both down.
func Serve(ctx context.Context, addr string, hub *Hub, handler http.Handler, log zerolog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	hubErr := make(chan error, 1)
	go func() { hubErr <- hub.Run(ctx) }()

	srvErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("room", hub.Room()).Msg("relay listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	var (
		runErr  error
		hubDone bool
	)
	select {
	case <-ctx.Done():
	case err := <-hubErr:
		hubDone = true
		if err != nil {
			runErr = fmt.Errorf("relay subscription: %w", err)
		}
		cancel()
	case err := <-srvErr:
		if err != nil {
			runErr = fmt.Errorf("listen on %s: %w", addr, err)
		}
		cancel()
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("relay shutdown")
	}
	if !hubDone {
		<-hubErr
	}

	return runErr
}
