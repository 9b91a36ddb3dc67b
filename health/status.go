package health

import (
	"regexp"
	"strings"
	"time"
)

// State names used in Status.Status.
const (
	StateHealthy   = "healthy"
	StateDegraded  = "degraded"
	StateUnhealthy = "unhealthy"
)

// Status represents the health state of a component or system
type Status struct {
	Component   string    `json:"component"`
	Healthy     bool      `json:"healthy"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
	Metrics     *Metrics  `json:"metrics,omitempty"`
}

// Metrics carries the counters shown next to a status.
type Metrics struct {
	Uptime        time.Duration `json:"uptime"`
	ErrorCount    int           `json:"error_count"`
	FramesRelayed int64         `json:"frames_relayed,omitempty"`
	BytesReceived int64         `json:"bytes_received,omitempty"`
	BufferedBytes int64         `json:"buffered_bytes,omitempty"`
	LastActivity  time.Time     `json:"last_activity,omitempty"`
}

func newStatus(component, state, message string) Status {
	return Status{
		Component: component,
		Healthy:   state == StateHealthy,
		Status:    state,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewHealthy creates a new healthy status
func NewHealthy(component, message string) Status {
	return newStatus(component, StateHealthy, message)
}

// NewUnhealthy creates a new unhealthy status
func NewUnhealthy(component, message string) Status {
	return newStatus(component, StateUnhealthy, message)
}

// NewDegraded creates a new degraded status
func NewDegraded(component, message string) Status {
	return newStatus(component, StateDegraded, message)
}

// FromError returns a healthy status when err is nil and an unhealthy one
// with a sanitised message otherwise.
func FromError(component string, err error) Status {
	if err == nil {
		return NewHealthy(component, "OK")
	}
	return NewUnhealthy(component, Sanitize(err.Error()))
}

// IsHealthy returns true if the status is healthy
func (s Status) IsHealthy() bool {
	return s.Status == StateHealthy
}

// IsDegraded returns true if the status is degraded
func (s Status) IsDegraded() bool {
	return s.Status == StateDegraded
}

// IsUnhealthy returns true if the status is unhealthy
func (s Status) IsUnhealthy() bool {
	return s.Status == StateUnhealthy
}

// WithMetrics returns a copy of the status with metrics attached
func (s Status) WithMetrics(metrics *Metrics) Status {
	s.Metrics = metrics
	return s
}

// Aggregate combines sub-statuses under one component name.
func Aggregate(component string, subStatuses []Status) Status {
	if len(subStatuses) == 0 {
		return NewHealthy(component, "No sub-components to aggregate")
	}

	state := StateHealthy
	for _, sub := range subStatuses {
		switch {
		case sub.IsUnhealthy():
			state = StateUnhealthy
		case sub.IsDegraded() && state == StateHealthy:
			state = StateDegraded
		}
	}

	var status Status
	switch state {
	case StateUnhealthy:
		status = NewUnhealthy(component, "One or more sub-components are unhealthy")
	case StateDegraded:
		status = NewDegraded(component, "One or more sub-components are degraded")
	default:
		status = NewHealthy(component, "All sub-components are healthy")
	}
	status.SubStatuses = append([]Status(nil), subStatuses...)
	return status
}

// Replacement rules applied in order. URLs go first since they contain paths.
var sanitizers = []struct {
	re   *regexp.Regexp
	with string
}{
	{regexp.MustCompile(`(?:https?|nats|wss?|tcp|udp)://[^\s]+`), "[URL]"},
	{regexp.MustCompile(`/[a-zA-Z0-9/_.-]+`), "[PATH]"},
	{regexp.MustCompile(`[A-Z]:\\[^:\s]+`), "[PATH]"},
	{regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`), "[IP]"},
	{regexp.MustCompile(`:\d{2,5}\b`), "[PORT]"},
}

var credentialRegex = regexp.MustCompile(`(?i)(password|token|key|secret|credential)[^a-zA-Z]*[:=][^,\s}]+`)

// Sanitize strips URLs, paths, IP addresses, ports and credentials from an
// error message.
func Sanitize(msg string) string {
	if msg == "" {
		return ""
	}
	for _, s := range sanitizers {
		msg = s.re.ReplaceAllString(msg, s.with)
	}
	lower := strings.ToLower(msg)
	for _, word := range []string{"password", "token", "key", "secret", "credential"} {
		if strings.Contains(lower, word) {
			return credentialRegex.ReplaceAllString(msg, "[REDACTED]")
		}
	}
	return msg
}
