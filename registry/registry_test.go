package registry

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
	"github.com/streamdex-cli/streamdex/filesystem"
	"github.com/streamdex-cli/streamdex/key"
)

func freshRegistry(t *testing.T) *Registry {
	t.Helper()
	filesystem.SetMemMapFs()
	t.Cleanup(filesystem.SetOsFs)

	r, err := Open("/registry/sources.json")
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRegistryAdd(t *testing.T) {
	Convey("Add", t, func() {
		r := freshRegistry(t)

		Convey("Should register a new source", func() {
			err := r.Add(ConfigSource{ID: "a", URL: "https://a.example/cfg", Enabled: true})
			So(err, ShouldBeNil)
			So(r.Snapshot(), ShouldHaveLength, 1)
			So(r.Snapshot()[0].Health, ShouldEqual, HealthUnknown)
		})

		Convey("Should reject a duplicate id without altering the registry", func() {
			So(r.Add(ConfigSource{ID: "a", URL: "https://a.example/cfg"}), ShouldBeNil)
			err := r.Add(ConfigSource{ID: "a", URL: "https://other.example/cfg"})
			So(errors.Is(err, ErrDuplicateSource), ShouldBeTrue)
			So(r.Snapshot(), ShouldHaveLength, 1)
			So(r.Snapshot()[0].URL, ShouldEqual, "https://a.example/cfg")
		})

		Convey("Should reject a duplicate url", func() {
			So(r.Add(ConfigSource{ID: "a", URL: "https://a.example/cfg"}), ShouldBeNil)
			err := r.Add(ConfigSource{ID: "b", URL: "https://a.example/cfg"})
			So(errors.Is(err, ErrDuplicateSource), ShouldBeTrue)
		})

		Convey("Should require id and url", func() {
			So(r.Add(ConfigSource{ID: "a"}), ShouldNotBeNil)
		})
	})
}

func TestRegistryMutations(t *testing.T) {
	Convey("Mutations", t, func() {
		r := freshRegistry(t)
		So(r.Add(ConfigSource{ID: "a", URL: "https://a.example/cfg"}), ShouldBeNil)
		So(r.Add(ConfigSource{ID: "b", URL: "https://b.example/cfg"}), ShouldBeNil)

		Convey("Remove should delete by id", func() {
			So(r.Remove("a"), ShouldBeNil)
			So(r.Snapshot(), ShouldHaveLength, 1)
			So(errors.Is(r.Remove("a"), ErrUnknownSource), ShouldBeTrue)
		})

		Convey("SetEnabled should toggle participation", func() {
			So(r.SetEnabled("a", true), ShouldBeNil)
			So(r.Enabled(), ShouldHaveLength, 1)
			So(r.SetEnabled("a", false), ShouldBeNil)
			So(r.Enabled(), ShouldBeEmpty)
			So(errors.Is(r.SetEnabled("nope", true), ErrUnknownSource), ShouldBeTrue)
		})

		Convey("SetPrimary should atomically clear the previous primary", func() {
			So(r.SetPrimary("a"), ShouldBeNil)
			So(r.SetPrimary("b"), ShouldBeNil)

			a, _ := r.Get("a")
			b, _ := r.Get("b")
			So(a.Primary, ShouldBeFalse)
			So(b.Primary, ShouldBeTrue)
		})

		Convey("Mutations should notify observers", func() {
			var fired int
			r.OnMutate(func() { fired++ })

			So(r.SetEnabled("a", true), ShouldBeNil)
			So(r.SetPrimary("a"), ShouldBeNil)
			So(fired, ShouldEqual, 2)
		})
	})
}

func TestRecordFetch(t *testing.T) {
	Convey("RecordFetch", t, func() {
		viper.Set(key.FetchFailureThreshold, 3)
		defer viper.Reset()

		r := freshRegistry(t)
		So(r.Add(ConfigSource{ID: "a", URL: "https://a.example/cfg"}), ShouldBeNil)

		Convey("Success should restore healthy and reset the failure streak", func() {
			r.RecordFetch("a", FetchOutcome{Success: false})
			r.RecordFetch("a", FetchOutcome{Success: true})

			src, _ := r.Get("a")
			So(src.Health, ShouldEqual, HealthHealthy)
			So(src.ConsecutiveFailures, ShouldEqual, 0)
			So(src.LastFetchedAt.IsZero(), ShouldBeFalse)
		})

		Convey("Reaching the threshold should degrade health to error", func() {
			for i := 0; i < 3; i++ {
				r.RecordFetch("a", FetchOutcome{Success: false})
			}

			src, _ := r.Get("a")
			So(src.Health, ShouldEqual, HealthError)
		})

		Convey("A failure before the threshold should only warn a healthy source", func() {
			r.RecordFetch("a", FetchOutcome{Success: true})
			r.RecordFetch("a", FetchOutcome{Success: false})

			src, _ := r.Get("a")
			So(src.Health, ShouldEqual, HealthWarning)
		})

		Convey("Fetch outcomes should not notify mutation observers", func() {
			var fired int
			r.OnMutate(func() { fired++ })
			r.RecordFetch("a", FetchOutcome{Success: true})
			So(fired, ShouldEqual, 0)
		})
	})
}

func TestRegistryPersistence(t *testing.T) {
	Convey("Persistence", t, func() {
		filesystem.SetMemMapFs()
		defer filesystem.SetOsFs()

		r, err := Open("/registry/sources.json")
		So(err, ShouldBeNil)
		So(r.Add(ConfigSource{ID: "a", URL: "https://a.example/cfg", Priority: 7}), ShouldBeNil)

		Convey("A reopened registry should see the saved sources", func() {
			again, err := Open("/registry/sources.json")
			So(err, ShouldBeNil)

			saved := again.Snapshot()
			So(saved, ShouldHaveLength, 1)
			So(saved[0].Priority, ShouldEqual, 7)
		})
	})
}
