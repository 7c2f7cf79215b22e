package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/ridegate/core"
	"github.com/sirupsen/logrus"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// ProbeResult is the outcome of a single backend liveness probe.
type ProbeResult struct {
	Service string `json:"service"`
	Status  string `json:"status"`
	URL     string `json:"url"`
	Error   string `json:"error,omitempty"`
}

// HealthChecker probes all backends concurrently and aggregates the
// results: total latency is bounded by the slowest single probe.
type HealthChecker struct {
	client   *http.Client
	timeout  time.Duration
	services []core.ServiceDescriptor
	log      *logrus.Logger
}

// NewHealthChecker creates a checker with a per-probe timeout.
func NewHealthChecker(services []core.ServiceDescriptor, timeout time.Duration, log *logrus.Logger) *HealthChecker {
	return &HealthChecker{
		client:   &http.Client{},
		timeout:  timeout,
		services: services,
		log:      log,
	}
}

// CheckAll fans out one probe per backend and collects the results in
// descriptor order.
func (h *HealthChecker) CheckAll(ctx context.Context) []ProbeResult {
	results := make([]ProbeResult, len(h.services))

	var wg sync.WaitGroup
	for i, desc := range h.services {
		wg.Add(1)
		go func(i int, desc core.ServiceDescriptor) {
			defer wg.Done()
			results[i] = h.probe(ctx, desc)
		}(i, desc)
	}
	wg.Wait()

	return results
}

// probe issues a bounded health request; a timeout is a failure, never
// an unknown.
func (h *HealthChecker) probe(ctx context.Context, desc core.ServiceDescriptor) ProbeResult {
	result := ProbeResult{Service: desc.Name, URL: desc.BaseURL}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, desc.BaseURL+"/health", nil)
	if err != nil {
		result.Status = statusUnhealthy
		result.Error = err.Error()
		return result
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.log.WithField("service", desc.Name).WithError(err).Warn("health probe failed")
		result.Status = statusUnhealthy
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result.Status = statusUnhealthy
		result.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		return result
	}

	result.Status = statusHealthy
	return result
}

// ServicesHandler responds with the aggregated backend health: 200 when
// every backend is healthy, 503 otherwise, with an itemized breakdown.
func (h *HealthChecker) ServicesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		results := h.CheckAll(c.Request.Context())

		allHealthy := true
		for _, r := range results {
			if r.Status != statusHealthy {
				allHealthy = false
				break
			}
		}

		status := http.StatusOK
		message := "All services are healthy"
		if !allHealthy {
			status = http.StatusServiceUnavailable
			message = "Some services are unhealthy"
		}

		c.JSON(status, gin.H{
			"success":   allHealthy,
			"message":   message,
			"services":  results,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// GatewayHealthHandler is the gateway's own flat liveness endpoint.
func GatewayHealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "API gateway is healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
