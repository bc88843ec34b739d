package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"sparkmatch/backend/internal/config"
)

// Proxy forwards HTTP requests to the configured upstreams. One
// ReverseProxy per upstream, all sharing a transport with the connect
// deadline baked in.
type Proxy struct {
	targets map[string]*url.URL
	proxies map[string]*httputil.ReverseProxy
	log     zerolog.Logger
}

func NewProxy(upstreams map[string]string, log zerolog.Logger) (*Proxy, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: config.ProxyConnectTimeout,
		}).DialContext,
		MaxIdleConnsPerHost: 32,
	}

	p := &Proxy{
		targets: make(map[string]*url.URL),
		proxies: make(map[string]*httputil.ReverseProxy),
		log:     log,
	}
	for name, base := range upstreams {
		target, err := url.Parse(base)
		if err != nil {
			return nil, err
		}
		p.targets[name] = target

		rp := httputil.NewSingleHostReverseProxy(target)
		rp.Transport = transport
		rp.ErrorHandler = p.errorHandler(name)
		p.proxies[name] = rp
	}
	return p, nil
}

// Target returns the parsed base URL of an upstream.
func (p *Proxy) Target(name string) (*url.URL, bool) {
	u, ok := p.targets[name]
	return u, ok
}

// Forward proxies one request to the named upstream under the total
// deadline, with the path already rewritten by the route table.
func (p *Proxy) Forward(w http.ResponseWriter, r *http.Request, upstream, rewrittenPath string) {
	rp, ok := p.proxies[upstream]
	if !ok {
		http.Error(w, `{"code":"service_unavailable","message":"upstream not configured"}`,
			http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), config.ProxyTotalTimeout)
	defer cancel()

	out := r.WithContext(ctx)
	out.URL.Path = rewrittenPath
	out.URL.RawPath = ""
	stripHopByHop(out.Header)

	rp.ServeHTTP(w, out)
}

// errorHandler maps transport failures onto the public contract: timeouts
// become 504, connection failures 503. Upstream 5xx responses are passed
// through untouched by ReverseProxy itself.
func (p *Proxy) errorHandler(upstream string) func(http.ResponseWriter, *http.Request, error) {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		p.log.Warn().Err(err).Str("upstream", upstream).Str("path", r.URL.Path).Msg("proxy error")
		proxyErrors.WithLabelValues(upstream).Inc()

		w.Header().Set("Content-Type", "application/json")
		if isTimeout(err) {
			w.WriteHeader(http.StatusGatewayTimeout)
			w.Write([]byte(`{"code":"service_unavailable","message":"upstream timed out"}`))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"code":"service_unavailable","message":"upstream unreachable"}`))
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// hopByHopHeaders must not be forwarded (RFC 7230 §6.1). Upgrade headers
// are handled by the WebSocket proxy path instead.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

func stripHopByHop(h http.Header) {
	for _, name := range h.Values("Connection") {
		for _, field := range strings.Split(name, ",") {
			h.Del(strings.TrimSpace(field))
		}
	}
	for _, name := range hopByHopHeaders {
		h.Del(name)
	}
}
