// Package constants provides shared constants used throughout the homestay codebase.
// This includes timeouts, TTLs, file permissions, and upstream protocol values
// that should be consistent across the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultFetchTimeout bounds a single upstream fetch of homestay data
	DefaultFetchTimeout = 15 * time.Second

	// DefaultShutdownTimeout is how long the server waits for in-flight requests on shutdown
	DefaultShutdownTimeout = 30 * time.Second

	// DefaultReadTimeout is the HTTP server read timeout
	DefaultReadTimeout = 15 * time.Second

	// DefaultWriteTimeout is the HTTP server write timeout
	DefaultWriteTimeout = 30 * time.Second

	// DefaultIdleTimeout is the HTTP server idle timeout
	DefaultIdleTimeout = 120 * time.Second

	// CommandTimeout is the default timeout for one-shot CLI commands
	CommandTimeout = 2 * time.Minute
)

// Cache constants
const (
	// CacheTTL is how long a fetched upstream payload is reused before refetching
	CacheTTL = 5 * time.Minute

	// CacheCleanupInterval is how often expired in-memory entries are purged
	CacheCleanupInterval = 10 * time.Minute

	// RedisSnapshotKey is the single key under which the shared cache stores the snapshot
	RedisSnapshotKey = "homestay:snapshot"
)

// Upstream protocol constants
const (
	// DefaultEndpoint is the government API that serves all homestay records
	DefaultEndpoint = "https://www.cmconnectvdv.meghalaya.gov.in/admin-api/api/v1/hdsbpm/getAllHomeStayData"

	// SuccessResponseCode is the only response_code for which a payload is trusted
	SuccessResponseCode = "00"

	// RequestBodyValue is the value of the static "test" field in the fetch body
	RequestBodyValue = "All Data"

	// MinRowSets is the number of record collections a valid payload must carry
	MinRowSets = 2

	// MaxResponseBytes caps how much of an upstream response body is read
	MaxResponseBytes = 64 << 20
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Server constants
const (
	// DefaultPort is the HTTP port the dashboard listens on
	DefaultPort = 8080

	// DefaultHost is the bind address
	DefaultHost = "localhost"

	// DefaultRateLimit is requests per minute per client IP
	DefaultRateLimit = 120

	// DefaultPathPrefix is the prefix for JSON API routes
	DefaultPathPrefix = "/api/v1"
)
