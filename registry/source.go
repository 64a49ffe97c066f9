// Package registry manages the set of subscribed config sources and their fetch health.
package registry

import "time"

// Health represents the rolling health status of a config source.
type Health string

const (
	HealthUnknown Health = "unknown"
	HealthHealthy Health = "healthy"
	HealthWarning Health = "warning"
	HealthError   Health = "error"
)

// FetchOutcome records the result of one fetch attempt against a source.
type FetchOutcome struct {
	Success bool          `json:"success"`
	Latency time.Duration `json:"latency"`
	At      time.Time     `json:"at"`
}

// historyCap bounds the per-source outcome ring; the scorer only looks at a
// window of recent attempts anyway.
const historyCap = 32

// ConfigSource describes one subscribed, remotely hosted catalog description.
type ConfigSource struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Name string `json:"name"`

	// Priority breaks merge conflicts; higher wins.
	Priority int  `json:"priority"`
	Enabled  bool `json:"enabled"`

	// Primary marks the preferred source; at most one is primary at a time.
	Primary bool `json:"primary"`

	LastFetchedAt time.Time `json:"lastFetchedAt,omitzero"`
	Health        Health    `json:"health"`

	// ConsecutiveFailures drives the healthy→error transition.
	ConsecutiveFailures int `json:"consecutiveFailures"`

	// History is the ring of recent fetch outcomes consumed by the scorer.
	History []FetchOutcome `json:"history,omitempty"`
}

func (s *ConfigSource) String() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// clone returns a deep copy so registry snapshots never alias internal state.
func (s *ConfigSource) clone() *ConfigSource {
	dup := *s
	dup.History = make([]FetchOutcome, len(s.History))
	copy(dup.History, s.History)
	return &dup
}
