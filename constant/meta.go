// Package constant defines immutable application-level identifiers and configuration defaults.
package constant

const (
	// Streamdex is the canonical application identifier used for filesystem paths and CLI branding.
	Streamdex = "streamdex"

	// Version is the current application semantic version string.
	Version = "0.1.0"

	// UserAgent is the default HTTP User-Agent string used for network requests to config sources.
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// ResolveFn is the required global function every resolver plugin script must define.
	ResolveFn = "Resolve"

	// DirectoryCacheKey is the fixed cache key under which the aggregated directory is memoized and persisted.
	DirectoryCacheKey = "directory"
)

// Build metadata, injected at link time.
var (
	Revision = "unknown"
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
)
