package ws

import (
	"net/http"
	"net/url"

	"github.com/okian/footsteps/pkg/logger"
)

// Option applies a configuration option to the Handler.
type Option func(*Handler)

// WithLogger sets a custom logger for the bridge.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithAllowedOrigins accepts browser connections from the given origins
// (scheme://host[:port]). Without it only same-host origins are accepted.
// A single "*" accepts any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(h *Handler) {
		if len(origins) == 0 {
			return
		}
		allowed := make(map[string]struct{}, len(origins))
		for _, o := range origins {
			allowed[o] = struct{}{}
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			if _, ok := allowed["*"]; ok {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := allowed[origin]; ok {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && u.Host == r.Host
		}
	}
}
