package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
	"github.com/streamdex-cli/streamdex/filesystem"
	"github.com/streamdex-cli/streamdex/key"
	"github.com/streamdex-cli/streamdex/registry"
)

const validFragment = `{"sites": [{"key": "siteX", "name": "Site X", "kind": "vod", "endpoint": "https://x.example/api"}]}`

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	filesystem.SetMemMapFs()
	t.Cleanup(filesystem.SetOsFs)
	t.Cleanup(viper.Reset)
	viper.Set(key.FetchFailureThreshold, 3)

	reg, err := registry.Open("/sources.json")
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.Add(registry.ConfigSource{ID: "a", URL: "https://a.example/cfg", Enabled: true}); err != nil {
		t.Fatal(err)
	}
	return reg
}

func staticFetch(payload string, err error) FetchFunc {
	return func(context.Context, string, time.Duration) ([]byte, error) {
		if err != nil {
			return nil, err
		}
		return []byte(payload), nil
	}
}

func TestFetchAndParse(t *testing.T) {
	Convey("FetchAndParse", t, func() {
		Convey("Should produce a fragment and mark the source healthy", func() {
			reg := testRegistry(t)
			p := NewWithFetch(reg, staticFetch(validFragment, nil))

			src, _ := reg.Get("a")
			fragment, err := p.FetchAndParse(context.Background(), src, time.Second)
			So(err, ShouldBeNil)
			So(fragment.Sites, ShouldHaveLength, 1)

			src, _ = reg.Get("a")
			So(src.Health, ShouldEqual, registry.HealthHealthy)
			So(src.History, ShouldHaveLength, 1)
		})

		Convey("Network failure should yield a FetchError and record the outcome", func() {
			reg := testRegistry(t)
			p := NewWithFetch(reg, staticFetch("", errors.New("connection refused")))

			src, _ := reg.Get("a")
			_, err := p.FetchAndParse(context.Background(), src, time.Second)

			var fetchErr *FetchError
			So(errors.As(err, &fetchErr), ShouldBeTrue)
			So(fetchErr.SourceID, ShouldEqual, "a")

			src, _ = reg.Get("a")
			So(src.History, ShouldHaveLength, 1)
			So(src.History[0].Success, ShouldBeFalse)
		})

		Convey("Malformed payload should yield a ParseError", func() {
			reg := testRegistry(t)
			p := NewWithFetch(reg, staticFetch(`{"sites": [`, nil))

			src, _ := reg.Get("a")
			_, err := p.FetchAndParse(context.Background(), src, time.Second)

			var parseErr *ParseError
			So(errors.As(err, &parseErr), ShouldBeTrue)
		})

		Convey("Repeated failures should degrade health to error", func() {
			reg := testRegistry(t)
			p := NewWithFetch(reg, staticFetch("", errors.New("boom")))

			src, _ := reg.Get("a")
			for i := 0; i < 3; i++ {
				_, _ = p.FetchAndParse(context.Background(), src, time.Second)
			}

			src, _ = reg.Get("a")
			So(src.Health, ShouldEqual, registry.HealthError)
		})
	})
}
