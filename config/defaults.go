// Package config holds default runtime limits and guardrails for the
// decision-table MCP server. These values are conservative and can be
// overridden by future configuration mechanisms (env, CLI, or files). They
// are referenced by internal/runtime and internal/tablestore.
package config

import "time"

const (
	// Concurrency
	DefaultMaxConcurrentRequests = 10
	DefaultMaxOpenTables         = 8

	// Payload and row limits
	DefaultMaxPayloadBytes = 128 * 1024 // 128KB
	DefaultMaxGridCells    = 100_000
	DefaultPreviewRowLimit = 10 // First 10 rows by default
)

const (
	// Timeouts
	DefaultOperationTimeout      = 30 * time.Second
	DefaultAcquireRequestTimeout = 2 * time.Second

	// Table handle lifecycle
	DefaultTableIdleTTL       = 10 * time.Minute
	DefaultTableCleanupPeriod = time.Minute
)
