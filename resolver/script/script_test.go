package script

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/streamdex-cli/streamdex/catalog"
)

const echoPlugin = `
function Resolve(site)
	if site.kind ~= "vod" then
		return nil
	end
	return {
		url = site.endpoint .. "/play.m3u8",
		quality = "1080p",
		headers = { referer = site.endpoint },
	}
end
`

func TestCompile(t *testing.T) {
	Convey("Compile", t, func() {
		Convey("Should accept a plugin defining Resolve", func() {
			s, err := Compile("echo", []byte(echoPlugin))
			So(err, ShouldBeNil)
			So(s.Name(), ShouldEqual, "echo")
			s.Close()
		})

		Convey("Should reject a plugin without Resolve", func() {
			_, err := Compile("empty", []byte(`local x = 1`))
			So(err, ShouldNotBeNil)
		})

		Convey("Should reject invalid Lua", func() {
			_, err := Compile("broken", []byte(`function Resolve(`))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	Convey("Run", t, func() {
		s, err := Compile("echo", []byte(echoPlugin))
		So(err, ShouldBeNil)
		defer s.Close()

		Convey("Should map the returned table onto a stream descriptor", func() {
			stream, err := s.Run(ctx, catalog.SiteEntry{
				Key: "siteX", Kind: "vod", Endpoint: "https://x.example",
			})
			So(err, ShouldBeNil)
			So(stream.URL, ShouldEqual, "https://x.example/play.m3u8")
			So(stream.Quality, ShouldEqual, "1080p")
			So(stream.Headers["referer"], ShouldEqual, "https://x.example")
		})

		Convey("A nil return should surface as ErrNoMatch", func() {
			_, err := s.Run(ctx, catalog.SiteEntry{Key: "siteY", Kind: "live"})
			So(errors.Is(err, ErrNoMatch), ShouldBeTrue)
		})
	})

	Convey("A stream without url should error", t, func() {
		s, err := Compile("nourl", []byte(`function Resolve(site) return { quality = "720p" } end`))
		So(err, ShouldBeNil)
		defer s.Close()

		_, err = s.Run(ctx, catalog.SiteEntry{Key: "k"})
		So(err, ShouldNotBeNil)
	})
}
