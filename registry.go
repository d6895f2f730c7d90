package batch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// HandleStatus represents the lifecycle status of a ResourceHandle.
type HandleStatus int

const (
	// StatusPending means the handle exists but no connection has been attempted.
	StatusPending HandleStatus = iota

	// StatusProcessing means a connection attempt is in flight.
	StatusProcessing

	// StatusCompleted means the most recent connection attempt succeeded.
	StatusCompleted

	// StatusFailed means the most recent connection attempt failed.
	StatusFailed
)

// String returns the string representation of the handle status.
func (s HandleStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ConnectionState tags a registered connection key.
type ConnectionState string

// ConnectionActive marks a successfully established connection.
const ConnectionActive ConnectionState = "active"

// DefaultMinConnStringLength is the minimum accepted connection string
// length when none is configured on the registry.
const DefaultMinConnStringLength = 10

// ResourceHandle is the single shared instance for a resource type. Exactly
// one handle exists per type for the process lifetime; all callers of
// GetOrCreate observe the same instance. Its mutable fields are guarded by
// an internal mutex so concurrent consumers never lose updates.
type ResourceHandle struct {
	id            string
	resourceType  string
	minConnLength int
	logger        *slog.Logger

	mu          sync.Mutex
	status      HandleStatus
	connections map[string]ConnectionState
}

// ID returns the handle's unique instance identifier.
func (h *ResourceHandle) ID() string {
	return h.id
}

// ResourceType returns the resource type this handle was created for.
func (h *ResourceHandle) ResourceType() string {
	return h.resourceType
}

// Status returns the handle's current lifecycle status.
func (h *ResourceHandle) Status() HandleStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Connect attempts to establish a connection identified by connString.
// Connection strings shorter than the configured minimum are rejected with a
// recoverable *ConnectionError and the handle is marked failed. On success
// the connection key is registered as active and the handle is marked
// completed.
//
// Connect is typically composed with a retry wrapper via Connector.
func (h *ResourceHandle) Connect(ctx context.Context, connString string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.status = StatusProcessing

	if len(connString) < h.minConnLength {
		h.status = StatusFailed
		return &ConnectionError{
			ResourceType: h.resourceType,
			Length:       len(connString),
			MinLength:    h.minConnLength,
		}
	}

	h.connections[connString] = ConnectionActive
	h.status = StatusCompleted
	h.logger.Info("connection established",
		"resource_type", h.resourceType,
		"connections", len(h.connections))
	return nil
}

// Connections returns a copy of the handle's connection table.
func (h *ResourceHandle) Connections() map[string]ConnectionState {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := make(map[string]ConnectionState, len(h.connections))
	for k, v := range h.connections {
		conns[k] = v
	}
	return conns
}

// Connector exposes the handle's connect operation as an Operation so retry
// and circuit breaker wrappers compose over it. The response is the
// connection key that was registered.
func (h *ResourceHandle) Connector() Operation[string, string] {
	return OperationFunc[string, string](func(ctx context.Context, connString string) (string, error) {
		if err := h.Connect(ctx, connString); err != nil {
			return "", err
		}
		return connString, nil
	})
}

// Registry is a process-wide store guaranteeing one ResourceHandle per
// resource type. First access constructs the handle; every later access,
// from any goroutine, returns the same instance. Construction is serialized
// under the registry mutex so racing first callers observe a single handle.
type Registry struct {
	mu            sync.Mutex
	handles       map[string]*ResourceHandle
	minConnLength int
	logger        *slog.Logger
}

// RegistryOption is a functional option for configuring a Registry.
type RegistryOption func(*Registry)

// WithMinConnStringLength sets the minimum connection string length accepted
// by handles created from this registry.
func WithMinConnStringLength(n int) RegistryOption {
	return func(r *Registry) {
		r.minConnLength = n
	}
}

// WithRegistryLogger sets a custom logger for the registry and its handles.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty registry. Most callers use the package-level
// GetOrCreate instead; separate registries exist for tests and for embedding
// in larger systems.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		handles:       make(map[string]*ResourceHandle),
		minConnLength: DefaultMinConnStringLength,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// GetOrCreate returns the handle for resourceType, constructing it on first
// access. It never fails and is idempotent by identity: every call with the
// same type returns the same handle.
func (r *Registry) GetOrCreate(resourceType string) *ResourceHandle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.handles[resourceType]; ok {
		return h
	}

	h := &ResourceHandle{
		id:            uuid.NewString(),
		resourceType:  resourceType,
		minConnLength: r.minConnLength,
		logger:        r.logger,
		status:        StatusPending,
		connections:   make(map[string]ConnectionState),
	}
	r.handles[resourceType] = h
	r.logger.Debug("resource handle created",
		"resource_type", resourceType,
		"id", h.id)
	return h
}

// Len returns the number of handles currently registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// defaultRegistry is the process-wide instance behind the package-level
// GetOrCreate. Handles live until process teardown.
var defaultRegistry = NewRegistry()

// GetOrCreate returns the process-wide handle for resourceType, constructing
// it on first access. See Registry.GetOrCreate.
func GetOrCreate(resourceType string) *ResourceHandle {
	return defaultRegistry.GetOrCreate(resourceType)
}
