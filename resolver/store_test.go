package resolver

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/afero"
	"github.com/streamdex-cli/streamdex/filesystem"
)

func freshStore(t *testing.T) *Store {
	t.Helper()
	filesystem.SetMemMapFs()
	t.Cleanup(filesystem.SetOsFs)
	return NewStore("/plugins")
}

func TestStore(t *testing.T) {
	data := []byte(resolvePlugin)

	Convey("Store", t, func() {
		s := freshStore(t)

		Convey("Install should persist the script and descriptor", func() {
			So(s.Install(descriptorFor("p1", data), data), ShouldBeNil)

			installed, err := s.Installed()
			So(err, ShouldBeNil)
			So(installed, ShouldHaveLength, 1)
			So(installed[0].Descriptor.ID, ShouldEqual, "p1")

			raw, err := afero.ReadFile(filesystem.API(), installed[0].Path)
			So(err, ShouldBeNil)
			So(string(raw), ShouldEqual, resolvePlugin)
		})

		Convey("Install should reject bytes that do not match the checksum", func() {
			desc := descriptorFor("p1", data)
			desc.Checksum = "deadbeef"

			err := s.Install(desc, data)
			var checksumErr *ChecksumError
			So(errors.As(err, &checksumErr), ShouldBeTrue)

			installed, err := s.Installed()
			So(err, ShouldBeNil)
			So(installed, ShouldBeEmpty)
		})

		Convey("Remove should delete the script and manifest entry", func() {
			So(s.Install(descriptorFor("p1", data), data), ShouldBeNil)
			So(s.Remove("p1"), ShouldBeNil)

			installed, err := s.Installed()
			So(err, ShouldBeNil)
			So(installed, ShouldBeEmpty)
		})

		Convey("Remove should fail for an unknown plugin", func() {
			So(s.Remove("ghost"), ShouldNotBeNil)
		})

		Convey("LoadAll should load installed plugins into a registry", func() {
			So(s.Install(descriptorFor("p1", data), data), ShouldBeNil)
			So(s.Install(descriptorFor("p2", data), data), ShouldBeNil)

			reg := NewRegistry()
			So(s.LoadAll(reg), ShouldBeNil)
			So(reg.Loaded(), ShouldHaveLength, 2)
		})
	})
}
