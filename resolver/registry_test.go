package resolver

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/streamdex-cli/streamdex/catalog"
)

const resolvePlugin = `function Resolve(site) return { url = site.endpoint } end`

func descriptorFor(id string, data []byte) catalog.ResolverDescriptor {
	return catalog.ResolverDescriptor{
		ID:               id,
		Name:             id,
		SupportedFormats: []string{"vod"},
		Checksum:         Checksum(data),
		Priority:         1,
	}
}

func TestRegistryLoad(t *testing.T) {
	data := []byte(resolvePlugin)

	Convey("Load", t, func() {
		r := NewRegistry()

		Convey("Should load a plugin whose checksum matches", func() {
			p, err := r.Load(descriptorFor("p1", data), data)
			So(err, ShouldBeNil)
			So(p.State, ShouldEqual, StateLoaded)
			So(r.Loaded(), ShouldHaveLength, 1)
		})

		Convey("A checksum mismatch should reject the plugin permanently", func() {
			desc := descriptorFor("p1", data)
			desc.Checksum = "deadbeef"

			_, err := r.Load(desc, data)
			var checksumErr *ChecksumError
			So(errors.As(err, &checksumErr), ShouldBeTrue)

			p, ok := r.Get("p1")
			So(ok, ShouldBeTrue)
			So(p.State, ShouldEqual, StateRejected)

			Convey("Retrying with the same descriptor and bytes should stay rejected", func() {
				_, err := r.Load(desc, data)
				So(errors.As(err, &checksumErr), ShouldBeTrue)

				p, _ := r.Get("p1")
				So(p.State, ShouldEqual, StateRejected)
			})

			Convey("A new descriptor with a correct checksum should load", func() {
				fresh := descriptorFor("p1", data)
				p, err := r.Load(fresh, data)
				So(err, ShouldBeNil)
				So(p.State, ShouldEqual, StateLoaded)
			})
		})

		Convey("Invalid plugin code should not register anything", func() {
			broken := []byte(`function Resolve(`)
			_, err := r.Load(descriptorFor("p2", broken), broken)
			So(err, ShouldNotBeNil)

			_, ok := r.Get("p2")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestRegistryUnload(t *testing.T) {
	data := []byte(resolvePlugin)

	Convey("Unload", t, func() {
		r := NewRegistry()
		_, err := r.Load(descriptorFor("p1", data), data)
		So(err, ShouldBeNil)

		r.Unload("p1")
		So(r.Loaded(), ShouldBeEmpty)
	})
}

func TestRegistryMatch(t *testing.T) {
	data := []byte(resolvePlugin)

	Convey("Match", t, func() {
		r := NewRegistry()

		load := func(id string, priority int, formats ...string) {
			desc := catalog.ResolverDescriptor{
				ID: id, SupportedFormats: formats, Checksum: Checksum(data), Priority: priority,
			}
			_, err := r.Load(desc, data)
			So(err, ShouldBeNil)
		}

		load("low", 1, "vod")
		load("high", 10, "vod")
		load("live-only", 5, "live")
		load("wildcard", 3)

		Convey("Should order matching plugins by descending priority", func() {
			matched := r.Match("vod")
			So(matched, ShouldHaveLength, 3)
			So(matched[0].ID(), ShouldEqual, "high")
			So(matched[1].ID(), ShouldEqual, "wildcard")
			So(matched[2].ID(), ShouldEqual, "low")
		})

		Convey("Plugins without declared formats should match any kind", func() {
			matched := r.Match("obscure")
			So(matched, ShouldHaveLength, 1)
			So(matched[0].ID(), ShouldEqual, "wildcard")
		})
	})
}
