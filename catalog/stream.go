// Package catalog defines the domain models for config-source fragments and the aggregated site directory.
package catalog

// StreamDescriptor is the playable output of a successful resolution.
type StreamDescriptor struct {
	URL     string            `json:"url"`
	Quality string            `json:"quality,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	DRM     *DRMDescriptor    `json:"drm,omitempty"`
}

// DRMDescriptor carries the license acquisition details for protected streams.
type DRMDescriptor struct {
	Scheme     string            `json:"scheme"`
	LicenseURL string            `json:"licenseUrl"`
	Headers    map[string]string `json:"headers,omitempty"`
}
