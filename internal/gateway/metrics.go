package gateway

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	proxiedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_proxied_requests_total",
		Help: "Requests forwarded to an upstream, by upstream and response status.",
	}, []string{"upstream", "status"})

	proxyErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_proxy_errors_total",
		Help: "Forwarding failures (timeouts, refused connections), by upstream.",
	}, []string{"upstream"})

	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_rate_limited_total",
		Help: "Requests rejected with 429.",
	})

	wsSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_ws_sessions",
		Help: "WebSocket sessions currently proxied.",
	})
)

// MetricsHandler serves the Prometheus exposition endpoint.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func observeProxied(upstream string, status int) {
	proxiedRequests.WithLabelValues(upstream, strconv.Itoa(status)).Inc()
}
