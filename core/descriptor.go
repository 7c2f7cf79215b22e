package core

// ServiceDescriptor describes a backend the edge router forwards to and
// the liveness aggregator probes.
type ServiceDescriptor struct {
	Name       string // Short service name, e.g. "user"
	BaseURL    string // Backend base URL, e.g. "http://localhost:3002"
	PathPrefix string // Edge path prefix, e.g. "/users"
}
