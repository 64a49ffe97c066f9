// Package catalog defines the domain models for config-source fragments and the aggregated site directory.
package catalog

import (
	"encoding/json"
	"fmt"
)

// Fragment is the parsed output of a single config source.
// It is immutable once produced.
type Fragment struct {
	Sites     []SiteEntry          `json:"sites"`
	Resolvers []ResolverDescriptor `json:"resolvers,omitempty"`
	Rules     []RuleEntry          `json:"rules,omitempty"`
	Lives     []LiveEntry          `json:"lives,omitempty"`
}

// ParseFragment decodes raw config-source bytes into a Fragment and validates
// the required shape. Unknown fields are ignored; missing required fields fail
// validation.
func ParseFragment(data []byte) (*Fragment, error) {
	var f Fragment
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode fragment: %w", err)
	}

	if len(f.Sites) == 0 {
		return nil, fmt.Errorf("fragment declares no sites")
	}

	for i, site := range f.Sites {
		if site.Key == "" {
			return nil, fmt.Errorf("site %d: missing key", i)
		}
		if site.Name == "" {
			return nil, fmt.Errorf("site %q: missing name", site.Key)
		}
		if site.Endpoint == "" {
			return nil, fmt.Errorf("site %q: missing endpoint", site.Key)
		}
	}

	for i, r := range f.Resolvers {
		if r.ID == "" {
			return nil, fmt.Errorf("resolver %d: missing id", i)
		}
	}

	return &f, nil
}
