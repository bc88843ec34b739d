package gateway

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Origin policy is handled by the CORS middleware before upgrade.
	CheckOrigin: func(*http.Request) bool { return true },
}

// IsWebSocketRequest reports whether the request asks for an upgrade.
func IsWebSocketRequest(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") &&
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}

// ForwardWebSocket dials the upstream WebSocket, completes the client
// handshake, and pumps frames both ways until either side closes. Close
// frames cross with their original code; a broken pipe surfaces as 1011.
func (p *Proxy) ForwardWebSocket(w http.ResponseWriter, r *http.Request, upstream, rewrittenPath string, log zerolog.Logger) {
	target, ok := p.targets[upstream]
	if !ok {
		http.Error(w, `{"code":"service_unavailable","message":"upstream not configured"}`,
			http.StatusServiceUnavailable)
		return
	}

	upstreamURL := url.URL{
		Scheme:   wsScheme(target.Scheme),
		Host:     target.Host,
		Path:     rewrittenPath,
		RawQuery: r.URL.RawQuery,
	}

	header := http.Header{}
	for _, name := range []string{"Authorization", "X-Request-Id", "Cookie"} {
		if v := r.Header.Get(name); v != "" {
			header.Set(name, v)
		}
	}

	upstreamConn, resp, err := websocket.DefaultDialer.Dial(upstreamURL.String(), header)
	if err != nil {
		log.Warn().Err(err).Str("upstream", upstream).Msg("websocket dial")
		proxyErrors.WithLabelValues(upstream).Inc()
		status := http.StatusServiceUnavailable
		if resp != nil && resp.StatusCode > 0 {
			status = resp.StatusCode
		}
		http.Error(w, `{"code":"service_unavailable","message":"upstream unreachable"}`, status)
		return
	}
	defer upstreamConn.Close()

	clientConn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer clientConn.Close()

	wsSessions.Inc()
	defer wsSessions.Dec()

	errCh := make(chan error, 2)
	go pumpFrames(clientConn, upstreamConn, errCh)
	go pumpFrames(upstreamConn, clientConn, errCh)
	<-errCh
}

// pumpFrames copies frames src -> dst. A received close frame is forwarded
// with the same code; any other read failure closes the peer with 1011.
func pumpFrames(src, dst *websocket.Conn, errCh chan<- error) {
	for {
		msgType, payload, err := src.ReadMessage()
		if err != nil {
			closeFrame := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "")
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure {
				closeFrame = websocket.FormatCloseMessage(closeErr.Code, closeErr.Text)
			}
			dst.WriteMessage(websocket.CloseMessage, closeFrame)
			errCh <- err
			return
		}
		if err := dst.WriteMessage(msgType, payload); err != nil {
			errCh <- err
			return
		}
	}
}

func wsScheme(httpScheme string) string {
	if httpScheme == "https" {
		return "wss"
	}
	return "ws"
}
