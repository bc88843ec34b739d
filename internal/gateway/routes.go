// Package gateway is the single public entry point: it terminates CORS and
// rate limits, then proxies HTTP and WebSocket traffic to the internal
// services according to a static route table.
package gateway

import "strings"

// Upstream names used by the route table and the health prober. Each must
// have a GATEWAY_UPSTREAM_<NAME> base URL configured.
const (
	UpstreamAuth      = "auth"
	UpstreamProfile   = "profile"
	UpstreamDiscovery = "discovery"
	UpstreamChat      = "chat"
	UpstreamMedia     = "media"
)

// Route maps one public prefix to an upstream with a path rewrite.
type Route struct {
	Prefix    string
	Exact     bool
	Upstream  string
	WebSocket bool
	Rewrite   func(path string) string
}

func identity(path string) string { return path }

// swapPrefix rewrites from -> to, keeping the remainder of the path.
func swapPrefix(from, to string) func(string) string {
	return func(path string) string {
		return to + strings.TrimPrefix(path, from)
	}
}

// Table is the static public surface. Longer prefixes are listed first so
// Match can scan in order.
var Table = []Route{
	{Prefix: "/api/auth/", Upstream: UpstreamAuth, Rewrite: swapPrefix("/api", "")},
	{Prefix: "/auth/", Upstream: UpstreamAuth, Rewrite: identity},

	{Prefix: "/api/profile", Upstream: UpstreamProfile, Rewrite: swapPrefix("/api/profile", "/profiles")},

	{Prefix: "/api/discover", Upstream: UpstreamDiscovery, Rewrite: swapPrefix("/api/discover", "/discovery/candidates")},
	{Prefix: "/api/like", Upstream: UpstreamDiscovery, Rewrite: swapPrefix("/api/like", "/discovery/like")},
	{Prefix: "/api/pass", Upstream: UpstreamDiscovery, Rewrite: swapPrefix("/api/pass", "/discovery/pass")},
	{Prefix: "/api/matches", Upstream: UpstreamDiscovery, Rewrite: swapPrefix("/api/matches", "/discovery/matches")},
	{Prefix: "/api/favorites", Upstream: UpstreamDiscovery, Rewrite: swapPrefix("/api/favorites", "/discovery/favorites")},

	{Prefix: "/api/photos/", Upstream: UpstreamMedia, Rewrite: swapPrefix("/api/photos", "/media")},

	{Prefix: "/v1/chat/ws", Exact: true, Upstream: UpstreamChat, WebSocket: true, Rewrite: identity},
	{Prefix: "/v1/chat/", Upstream: UpstreamChat, Rewrite: identity},
}

// RequiredUpstreams are the services /health treats as mandatory. Media is
// external and optional.
var RequiredUpstreams = []string{UpstreamAuth, UpstreamProfile, UpstreamDiscovery, UpstreamChat}

// Match finds the route for a public path and returns the rewritten upstream
// path.
func Match(path string) (*Route, string, bool) {
	for i := range Table {
		r := &Table[i]
		if r.Exact {
			if path == r.Prefix {
				return r, r.Rewrite(path), true
			}
			continue
		}
		if strings.HasPrefix(path, r.Prefix) || path == strings.TrimSuffix(r.Prefix, "/") {
			return r, r.Rewrite(path), true
		}
	}
	return nil, "", false
}
