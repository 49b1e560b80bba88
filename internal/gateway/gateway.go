package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/wirectl/internal/observability"
	"github.com/danmuck/wirectl/internal/protocol/message"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Gateway exposes a message registry over HTTP: listing declarations and
// encoding or decoding frames on behalf of clients without a codec.
type Gateway struct {
	Node     string
	Addr     string
	Appeared time.Time

	registry *message.Registry
	router   *gin.Engine
	metrics  bool
	server   *http.Server
}

type Options struct {
	Node        string
	Addr        string
	CorsOrigins []string
	Metrics     bool
}

func Appear(registry *message.Registry, opts Options) *Gateway {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestID())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(opts.Node))
	r.Use(cors.New(cors.Config{
		AllowOrigins:  normalizeOrigins(opts.CorsOrigins),
		AllowMethods:  []string{"GET", "POST"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", observability.RequestIDHeader},
		ExposeHeaders: []string{observability.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	g := &Gateway{
		Node:     opts.Node,
		Addr:     opts.Addr,
		Appeared: time.Now(),
		registry: registry,
		router:   r,
		metrics:  opts.Metrics,
	}
	g.RegisterRoutes()
	observability.SetRegisteredMessages(g.Node, registry.Len())
	return g
}

func (g *Gateway) HTTPRouter() *gin.Engine {
	return g.router
}

// Serve blocks until ctx is cancelled or the listener fails. Cancellation
// drains in-flight requests for up to five seconds.
func (g *Gateway) Serve(ctx context.Context) error {
	g.server = &http.Server{
		Addr:              g.Addr,
		Handler:           g.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("node", g.Node).Str("addr", g.Addr).Msg("gateway listening")
		errCh <- g.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info().Str("node", g.Node).Msg("gateway shutting down")
		if err := g.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	if len(out) == 0 {
		return []string{"http://localhost:3000"}
	}
	return out
}
