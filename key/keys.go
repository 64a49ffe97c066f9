// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Fetch Pipeline - these keys govern per-source retrieval and validation behavior.
const (
	FetchTimeout          = "fetch.timeout"
	FetchFailureThreshold = "fetch.failure_threshold"
)

// Aggregation Engine - these keys control the concurrent merge of enabled config sources.
const (
	AggregateParallelism = "aggregate.parallelism"
)

// Scoring - these keys tune the quality/reliability trust metrics.
const (
	ScoreHistoryWindow      = "score.history_window"
	ScoreDecayFactor        = "score.decay_factor"
	ScoreStalenessThreshold = "score.staleness_threshold_days"
)

// Cache Layer - these keys define memoization lifetimes, in minutes.
const (
	CacheFragmentTTL  = "cache.fragment_ttl"
	CacheDirectoryTTL = "cache.directory_ttl"
)

// Resolution Executor - these keys bound resolver plugin execution.
const (
	ResolveAttemptTimeout = "resolve.attempt_timeout"
	ResolveRetryOnTimeout = "resolve.retry_on_timeout"
)

// Network - these keys configure the shared HTTP client used for source fetches.
const (
	NetworkTLSImpersonate = "network.tls_impersonate"
)

// Search Interaction - these keys define matching behavior for directory search.
const (
	SearchLimit = "search.limit"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics system.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these settings govern non-interactive application behavior.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
)
