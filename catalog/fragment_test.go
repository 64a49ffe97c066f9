package catalog

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParseFragment(t *testing.T) {
	Convey("ParseFragment", t, func() {
		Convey("Should parse a well-formed fragment", func() {
			raw := []byte(`{
				"sites": [
					{"key": "siteX", "name": "Site X", "kind": "vod", "endpoint": "https://x.example/api", "searchable": true}
				],
				"resolvers": [
					{"id": "r1", "name": "Resolver One", "supportedFormats": ["vod"], "checksum": "abc", "priority": 5}
				],
				"lives": [{"name": "News", "type": "m3u8", "url": "https://x.example/live.m3u8"}],
				"unknownField": 42
			}`)

			f, err := ParseFragment(raw)
			So(err, ShouldBeNil)
			So(f.Sites, ShouldHaveLength, 1)
			So(f.Sites[0].Key, ShouldEqual, "siteX")
			So(f.Sites[0].Searchable, ShouldBeTrue)
			So(f.Resolvers[0].Priority, ShouldEqual, 5)
			So(f.Lives, ShouldHaveLength, 1)
		})

		Convey("Should fail on malformed JSON", func() {
			_, err := ParseFragment([]byte(`{"sites": [`))
			So(err, ShouldNotBeNil)
		})

		Convey("Should fail when no sites are declared", func() {
			_, err := ParseFragment([]byte(`{"sites": []}`))
			So(err, ShouldNotBeNil)
		})

		Convey("Should fail when a site misses its key", func() {
			_, err := ParseFragment([]byte(`{"sites": [{"name": "x", "endpoint": "e"}]}`))
			So(err, ShouldNotBeNil)
		})

		Convey("Should fail when a site misses its endpoint", func() {
			_, err := ParseFragment([]byte(`{"sites": [{"key": "k", "name": "x"}]}`))
			So(err, ShouldNotBeNil)
		})

		Convey("Should pass extension payloads through opaquely", func() {
			raw := []byte(`{"sites": [{"key": "k", "name": "x", "endpoint": "e",
				"ext": {"type": "spider", "data": {"jar": "https://x.example/spider.jar"}}}]}`)
			f, err := ParseFragment(raw)
			So(err, ShouldBeNil)
			So(f.Sites[0].Ext.Type, ShouldEqual, "spider")
			So(string(f.Sites[0].Ext.Data), ShouldContainSubstring, "spider.jar")
		})
	})
}

func TestDirectoryLookup(t *testing.T) {
	Convey("Directory Lookup", t, func() {
		dir := &Directory{Entries: []*AggregatedSiteEntry{
			{SiteEntry: SiteEntry{Key: "a"}},
			{SiteEntry: SiteEntry{Key: "b"}},
		}}

		So(dir.Lookup("b"), ShouldNotBeNil)
		So(dir.Lookup("b").Key, ShouldEqual, "b")
		So(dir.Lookup("missing"), ShouldBeNil)
	})
}
