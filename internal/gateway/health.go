package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"sparkmatch/backend/internal/config"
)

// Prober polls every configured upstream's /health and keeps the last time
// each answered. The gateway's own /health aggregates the results.
type Prober struct {
	mu     sync.RWMutex
	lastOK map[string]time.Time

	upstreams map[string]string
	required  map[string]bool
	client    *http.Client
	log       zerolog.Logger
}

func NewProber(upstreams map[string]string, required []string, log zerolog.Logger) *Prober {
	req := make(map[string]bool, len(required))
	for _, name := range required {
		req[name] = true
	}
	return &Prober{
		lastOK:    make(map[string]time.Time),
		upstreams: upstreams,
		required:  req,
		client:    &http.Client{Timeout: config.HealthProbeTimeout},
		log:       log,
	}
}

// Run probes on the configured interval until the context is canceled. The
// first round fires immediately so /health is meaningful at startup.
func (p *Prober) Run(ctx context.Context) {
	p.probeAll(ctx)
	ticker := time.NewTicker(config.HealthProbeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.probeAll(ctx)
		}
	}
}

func (p *Prober) probeAll(ctx context.Context) {
	for name, base := range p.upstreams {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/health", nil)
		if err != nil {
			continue
		}
		resp, err := p.client.Do(req)
		if err != nil {
			p.log.Warn().Err(err).Str("upstream", name).Msg("health probe failed")
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			p.mu.Lock()
			p.lastOK[name] = time.Now()
			p.mu.Unlock()
		}
	}
}

// Reachable reports whether the upstream answered a probe within the
// down-after window.
func (p *Prober) Reachable(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	last, ok := p.lastOK[name]
	return ok && time.Since(last) <= config.HealthDownAfter
}

// Handler serves the gateway /health endpoint: per-upstream reachability,
// 503 when a required upstream has been silent past the window.
func (p *Prober) Handler(c *gin.Context) {
	status := http.StatusOK
	upstreams := make(map[string]bool, len(p.upstreams))
	for name := range p.upstreams {
		reachable := p.Reachable(name)
		upstreams[name] = reachable
		if !reachable && p.required[name] {
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, gin.H{
		"status":    http.StatusText(status),
		"upstreams": upstreams,
	})
}
