package core

import (
	"context"
	"sort"
	"strings"

	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/streamdex-cli/streamdex/catalog"
	"github.com/streamdex-cli/streamdex/key"
)

func normalized(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Search filters directory entries by fuzzy-matching the query against entry
// names and keys, ranked by Levenshtein distance to the name. The result is
// capped at the configured search limit.
func (c *Core) Search(ctx context.Context, query string) ([]*catalog.AggregatedSiteEntry, error) {
	dir, err := c.Directory(ctx, false)
	if err != nil {
		return nil, err
	}

	query = normalized(query)
	if query == "" {
		return dir.Entries, nil
	}

	matched := lo.Filter(dir.Entries, func(entry *catalog.AggregatedSiteEntry, _ int) bool {
		return fuzzy.MatchNormalizedFold(query, entry.Name) ||
			fuzzy.MatchNormalizedFold(query, entry.Key)
	})

	sort.SliceStable(matched, func(i, j int) bool {
		return levenshtein.Distance(query, normalized(matched[i].Name)) <
			levenshtein.Distance(query, normalized(matched[j].Name))
	})

	limit := viper.GetInt(key.SearchLimit)
	if limit <= 0 {
		limit = 20
	}
	return lo.Slice(matched, 0, limit), nil
}
