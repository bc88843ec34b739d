package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"sparkmatch/backend/internal/api"
	"sparkmatch/backend/internal/config"
)

// Server is the assembled edge: router, proxy, limiter, prober.
type Server struct {
	Engine *gin.Engine
	Prober *Prober

	proxy *Proxy
	log   zerolog.Logger
}

// NewServer builds the gateway from configuration. verify checks bearer
// tokens locally so the limiter can pick the authenticated budget without a
// round trip to the auth service.
func NewServer(cfg *config.Config, verify api.TokenVerifyFunc, log zerolog.Logger) (*Server, error) {
	proxy, err := NewProxy(cfg.Upstreams, log)
	if err != nil {
		return nil, err
	}
	prober := NewProber(cfg.Upstreams, RequiredUpstreams, log)
	limiter := NewRateLimiter(cfg.RateLimitAnon, cfg.RateLimitAuth, verify)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(api.RequestIDMiddleware())
	engine.Use(api.LoggerMiddleware(log))
	engine.Use(CORSMiddleware(cfg.WebAppDomain))

	engine.GET("/health", prober.Handler)
	engine.GET("/metrics", MetricsHandler())

	s := &Server{Engine: engine, Prober: prober, proxy: proxy, log: log}
	engine.NoRoute(limiter.Middleware(), s.route)
	return s, nil
}

// route resolves the route table and forwards. Anything off the table is a
// 404 at the edge; nothing is forwarded blindly.
func (s *Server) route(c *gin.Context) {
	route, rewritten, ok := Match(c.Request.URL.Path)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    api.CodeNotFound,
			"message": "no such route",
		})
		return
	}

	if route.WebSocket || (IsWebSocketRequest(c.Request) && route.Upstream == UpstreamChat) {
		s.proxy.ForwardWebSocket(c.Writer, c.Request, route.Upstream, rewritten, s.log)
		return
	}

	s.proxy.Forward(c.Writer, c.Request, route.Upstream, rewritten)
	observeProxied(route.Upstream, c.Writer.Status())
}
