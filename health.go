package batch

// HealthStatus represents the health status of a circuit breaker.
// It provides a strongly-typed alternative to map[string]interface{} for health checks.
type HealthStatus struct {
	// Healthy indicates whether the circuit breaker is in a healthy state.
	// True for closed and half-open states, false for open state.
	Healthy bool `json:"healthy"`

	// Status is a short string description of the state ("closed", "half-open", "open", "unknown").
	Status string `json:"status"`

	// State is the full string representation of the circuit breaker state.
	State string `json:"state"`

	// Requests is the total number of requests in the current interval.
	Requests uint32 `json:"requests"`

	// TotalSuccesses is the total number of successful requests.
	TotalSuccesses uint32 `json:"total_successes"`

	// TotalFailures is the total number of failed requests.
	TotalFailures uint32 `json:"total_failures"`

	// ConsecutiveFailures is the number of consecutive failures.
	ConsecutiveFailures uint32 `json:"consecutive_failures"`

	// ConsecutiveSuccesses is the number of consecutive successes.
	ConsecutiveSuccesses uint32 `json:"consecutive_successes"`
}

// HandleSnapshot is a point-in-time view of a ResourceHandle, suitable for
// health endpoints and logging.
type HandleSnapshot struct {
	// ID is the handle's unique instance identifier.
	ID string `json:"id"`

	// ResourceType is the resource type the handle was created for.
	ResourceType string `json:"resource_type"`

	// Status is the string form of the handle's lifecycle status.
	Status string `json:"status"`

	// Connections maps each registered connection key to its state tag.
	Connections map[string]ConnectionState `json:"connections"`
}

// Snapshot returns a consistent copy of the handle's current state.
func (h *ResourceHandle) Snapshot() HandleSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := make(map[string]ConnectionState, len(h.connections))
	for k, v := range h.connections {
		conns[k] = v
	}

	return HandleSnapshot{
		ID:           h.id,
		ResourceType: h.resourceType,
		Status:       h.status.String(),
		Connections:  conns,
	}
}
