package aggregate

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
	"github.com/streamdex-cli/streamdex/cache"
	"github.com/streamdex-cli/streamdex/catalog"
	"github.com/streamdex-cli/streamdex/filesystem"
	"github.com/streamdex-cli/streamdex/key"
	"github.com/streamdex-cli/streamdex/pipeline"
	"github.com/streamdex-cli/streamdex/registry"
)

// payloads maps source URLs to raw fragment payloads; absent URLs fail the fetch.
type payloads map[string]string

func (p payloads) fetch(_ context.Context, url string, _ time.Duration) ([]byte, error) {
	raw, ok := p[url]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return []byte(raw), nil
}

func sitePayload(keys ...string) string {
	sites := ""
	for i, k := range keys {
		if i > 0 {
			sites += ","
		}
		sites += fmt.Sprintf(`{"key": %q, "name": "Site %s", "kind": "vod", "endpoint": "https://%s.example/api"}`, k, k, k)
	}
	return `{"sites": [` + sites + `]}`
}

func testEngine(t *testing.T, p payloads, sources ...registry.ConfigSource) (*Engine, *registry.Registry) {
	t.Helper()
	filesystem.SetMemMapFs()
	t.Cleanup(filesystem.SetOsFs)
	t.Cleanup(viper.Reset)
	viper.Set(key.AggregateParallelism, 4)
	viper.Set(key.FetchTimeout, 5)

	reg, err := registry.Open("/sources.json")
	if err != nil {
		t.Fatal(err)
	}
	for _, src := range sources {
		if err := reg.Add(src); err != nil {
			t.Fatal(err)
		}
	}

	pipe := pipeline.NewWithFetch(reg, p.fetch)
	fragments := cache.New[*catalog.Fragment](time.Minute)
	return New(reg, pipe, fragments), reg
}

func TestAggregate(t *testing.T) {
	ctx := context.Background()

	Convey("Aggregate", t, func() {
		Convey("Should produce a directory with unique keys", func() {
			engine, _ := testEngine(t,
				payloads{
					"https://a.example/cfg": sitePayload("one", "shared"),
					"https://b.example/cfg": sitePayload("two", "shared"),
				},
				registry.ConfigSource{ID: "a", URL: "https://a.example/cfg", Enabled: true},
				registry.ConfigSource{ID: "b", URL: "https://b.example/cfg", Enabled: true},
			)

			dir, err := engine.Aggregate(ctx)
			So(err, ShouldBeNil)
			So(dir.Entries, ShouldHaveLength, 3)

			seen := map[string]bool{}
			for _, e := range dir.Entries {
				So(seen[e.Key], ShouldBeFalse)
				seen[e.Key] = true
			}
		})

		Convey("Higher priority should win conflicts, keeping both origins", func() {
			engine, _ := testEngine(t,
				payloads{
					"https://a.example/cfg": `{"sites": [{"key": "siteX", "name": "A's X", "kind": "vod", "endpoint": "https://a.example/x"}]}`,
					"https://b.example/cfg": `{"sites": [{"key": "siteX", "name": "B's X", "kind": "vod", "endpoint": "https://b.example/x"}]}`,
				},
				registry.ConfigSource{ID: "a", URL: "https://a.example/cfg", Priority: 10, Enabled: true},
				registry.ConfigSource{ID: "b", URL: "https://b.example/cfg", Priority: 5, Enabled: true},
			)

			dir, err := engine.Aggregate(ctx)
			So(err, ShouldBeNil)
			So(dir.Entries, ShouldHaveLength, 1)

			winner := dir.Entries[0]
			So(winner.Name, ShouldEqual, "A's X")
			So(winner.Endpoint, ShouldEqual, "https://a.example/x")
			So(winner.OriginURLs, ShouldResemble, []string{"https://a.example/cfg", "https://b.example/cfg"})
		})

		Convey("Priority ties should fall through to the lexicographically smaller id", func() {
			engine, _ := testEngine(t,
				payloads{
					"https://a.example/cfg": `{"sites": [{"key": "siteX", "name": "A's X", "kind": "vod", "endpoint": "https://a.example/x"}]}`,
					"https://b.example/cfg": `{"sites": [{"key": "siteX", "name": "B's X", "kind": "vod", "endpoint": "https://b.example/x"}]}`,
				},
				registry.ConfigSource{ID: "b", URL: "https://b.example/cfg", Priority: 5, Enabled: true},
				registry.ConfigSource{ID: "a", URL: "https://a.example/cfg", Priority: 5, Enabled: true},
			)

			dir, err := engine.Aggregate(ctx)
			So(err, ShouldBeNil)
			So(dir.Entries[0].Name, ShouldEqual, "A's X")
		})

		Convey("A failing source should become a failure note, not a failure", func() {
			engine, _ := testEngine(t,
				payloads{
					"https://a.example/cfg": sitePayload("one"),
					"https://b.example/cfg": sitePayload("two"),
				},
				registry.ConfigSource{ID: "a", URL: "https://a.example/cfg", Enabled: true},
				registry.ConfigSource{ID: "b", URL: "https://b.example/cfg", Enabled: true},
				registry.ConfigSource{ID: "c", URL: "https://c.example/cfg", Enabled: true},
			)

			dir, err := engine.Aggregate(ctx)
			So(err, ShouldBeNil)
			So(dir.Entries, ShouldHaveLength, 2)
			So(dir.Failures, ShouldHaveLength, 1)
			So(dir.Failures[0].SourceID, ShouldEqual, "c")
		})

		Convey("All sources failing should raise ErrAggregationFailed", func() {
			engine, _ := testEngine(t,
				payloads{},
				registry.ConfigSource{ID: "a", URL: "https://a.example/cfg", Enabled: true},
				registry.ConfigSource{ID: "b", URL: "https://b.example/cfg", Enabled: true},
			)

			_, err := engine.Aggregate(ctx)
			So(errors.Is(err, ErrAggregationFailed), ShouldBeTrue)
		})

		Convey("No enabled sources should raise ErrAggregationFailed", func() {
			engine, _ := testEngine(t,
				payloads{},
				registry.ConfigSource{ID: "a", URL: "https://a.example/cfg", Enabled: false},
			)

			_, err := engine.Aggregate(ctx)
			So(errors.Is(err, ErrAggregationFailed), ShouldBeTrue)
		})

		Convey("Disabled sources should not be fetched", func() {
			engine, reg := testEngine(t,
				payloads{
					"https://a.example/cfg": sitePayload("one"),
					"https://b.example/cfg": sitePayload("two"),
				},
				registry.ConfigSource{ID: "a", URL: "https://a.example/cfg", Enabled: true},
				registry.ConfigSource{ID: "b", URL: "https://b.example/cfg", Enabled: false},
			)

			dir, err := engine.Aggregate(ctx)
			So(err, ShouldBeNil)
			So(dir.Entries, ShouldHaveLength, 1)

			b, _ := reg.Get("b")
			So(b.History, ShouldBeEmpty)
		})

		Convey("Categories should index entry keys by kind", func() {
			engine, _ := testEngine(t,
				payloads{
					"https://a.example/cfg": `{"sites": [
						{"key": "v1", "name": "V1", "kind": "vod", "endpoint": "e"},
						{"key": "l1", "name": "L1", "kind": "live", "endpoint": "e"}
					]}`,
				},
				registry.ConfigSource{ID: "a", URL: "https://a.example/cfg", Enabled: true},
			)

			dir, err := engine.Aggregate(ctx)
			So(err, ShouldBeNil)
			So(dir.Categories["vod"], ShouldResemble, []string{"v1"})
			So(dir.Categories["live"], ShouldResemble, []string{"l1"})
		})

		Convey("Auxiliary lists should be merged and deduplicated", func() {
			engine, _ := testEngine(t,
				payloads{
					"https://a.example/cfg": `{"sites": [{"key": "s1", "name": "S", "endpoint": "e"}],
						"resolvers": [{"id": "r1", "name": "R", "priority": 1}],
						"lives": [{"name": "News", "url": "https://live.example/news"}]}`,
					"https://b.example/cfg": `{"sites": [{"key": "s2", "name": "S", "endpoint": "e"}],
						"resolvers": [{"id": "r1", "name": "R improved", "priority": 9}],
						"lives": [{"name": "News", "url": "https://live.example/news"}]}`,
				},
				registry.ConfigSource{ID: "a", URL: "https://a.example/cfg", Enabled: true},
				registry.ConfigSource{ID: "b", URL: "https://b.example/cfg", Enabled: true},
			)

			dir, err := engine.Aggregate(ctx)
			So(err, ShouldBeNil)
			So(dir.Resolvers, ShouldHaveLength, 1)
			So(dir.Resolvers[0].Priority, ShouldEqual, 9)
			So(dir.Lives, ShouldHaveLength, 1)
		})
	})
}
