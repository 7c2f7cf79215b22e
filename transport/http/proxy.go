package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/ridegate/core"
	"github.com/sirupsen/logrus"
)

// hopByHopHeaders are connection-level headers that must not be
// forwarded in either direction.
var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

// Proxy forwards requests to the backends behind the edge router.
type Proxy struct {
	client  *http.Client
	timeout time.Duration
	log     *logrus.Logger
}

// NewProxy creates a proxy with a per-call timeout for backend requests.
func NewProxy(timeout time.Duration, log *logrus.Logger) *Proxy {
	return &Proxy{
		client:  &http.Client{},
		timeout: timeout,
		log:     log,
	}
}

// Forward returns a handler that relays the request to the backend:
// method, headers and body pass through unchanged, identity headers are
// injected, and the backend response is streamed back verbatim. A
// backend that is unreachable or times out yields a 503 naming it; no
// internal error detail leaks to the client.
func (p *Proxy) Forward(desc core.ServiceDescriptor) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), p.timeout)
		defer cancel()

		url := desc.BaseURL + c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			url += "?" + c.Request.URL.RawQuery
		}

		req, err := http.NewRequestWithContext(ctx, c.Request.Method, url, c.Request.Body)
		if err != nil {
			respondError(c, http.StatusInternalServerError, CodeInternal, "Internal server error")
			return
		}
		// Without this the body goes upstream chunked, which strict
		// backends reject.
		req.ContentLength = c.Request.ContentLength

		copyHeaders(req.Header, c.Request.Header)
		if identity := Identity(c); identity != nil {
			req.Header.Set(HeaderUserID, identity.AccountID)
			req.Header.Set(HeaderUserRole, string(identity.Role))
		}

		resp, err := p.client.Do(req)
		if err != nil {
			p.log.WithFields(logrus.Fields{
				"service": desc.Name,
				"url":     url,
			}).WithError(err).Error("backend request failed")
			respondError(c, http.StatusServiceUnavailable, CodeBackendUnavailable,
				desc.Name+" service unavailable")
			return
		}
		defer resp.Body.Close()

		copyHeaders(c.Writer.Header(), resp.Header)
		c.Writer.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(c.Writer, resp.Body); err != nil {
			// Response already started, nothing left to do but log.
			p.log.WithField("service", desc.Name).WithError(err).Warn("response stream interrupted")
		}
	}
}

func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		if _, hop := hopByHopHeaders[http.CanonicalHeaderKey(key)]; hop {
			continue
		}
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}
