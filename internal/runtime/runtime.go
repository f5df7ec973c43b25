package runtime

import (
	"context"
	"time"

	"github.com/vinodismyname/decitable/config"
	"golang.org/x/sync/semaphore"
)

// Limits captures the concurrency and table-handle guardrails configured for the server.
type Limits struct {
	// Concurrency caps
	MaxConcurrentRequests int
	MaxOpenTables         int

	// Payload and row bounds
	MaxPayloadBytes int
	MaxGridCells    int
	PreviewRowLimit int

	// Timeouts
	OperationTimeout      time.Duration
	AcquireRequestTimeout time.Duration
}

// NewLimits initializes Limits with sensible fallbacks when values are unset.
func NewLimits(maxConcurrentRequests, maxOpenTables int) Limits {
	if maxConcurrentRequests <= 0 {
		maxConcurrentRequests = config.DefaultMaxConcurrentRequests
	}
	if maxOpenTables <= 0 {
		maxOpenTables = config.DefaultMaxOpenTables
	}

	return Limits{
		MaxConcurrentRequests: maxConcurrentRequests,
		MaxOpenTables:         maxOpenTables,
		MaxPayloadBytes:       config.DefaultMaxPayloadBytes,
		MaxGridCells:          config.DefaultMaxGridCells,
		PreviewRowLimit:       config.DefaultPreviewRowLimit,
		OperationTimeout:      config.DefaultOperationTimeout,
		AcquireRequestTimeout: config.DefaultAcquireRequestTimeout,
	}
}

// Controller coordinates runtime semaphores for request and table-handle guardrails.
type Controller struct {
	limits         Limits
	requestSemaphore *semaphore.Weighted
	tableSemaphore   *semaphore.Weighted
}

// NewController constructs a Controller backed by weighted semaphores.
func NewController(limits Limits) *Controller {
	return &Controller{
		limits:           limits,
		requestSemaphore: semaphore.NewWeighted(int64(limits.MaxConcurrentRequests)),
		tableSemaphore:   semaphore.NewWeighted(int64(limits.MaxOpenTables)),
	}
}

// AcquireRequest reserves capacity for an incoming request.
func (c *Controller) AcquireRequest(ctx context.Context) error {
	return c.requestSemaphore.Acquire(ctx, 1)
}

// ReleaseRequest frees previously-acquired request capacity.
func (c *Controller) ReleaseRequest() {
	c.requestSemaphore.Release(1)
}

// AcquireTable reserves an open table-handle slot.
func (c *Controller) AcquireTable(ctx context.Context) error {
	return c.tableSemaphore.Acquire(ctx, 1)
}

// ReleaseTable frees an open table-handle slot.
func (c *Controller) ReleaseTable() {
	c.tableSemaphore.Release(1)
}

// LimitsSnapshot exposes the configured guardrails for telemetry and discovery.
func (c *Controller) LimitsSnapshot() Limits {
	return c.limits
}
