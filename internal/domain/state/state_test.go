package state_test

import (
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/zonewatch/internal/domain/state"
)

func TestState(t *testing.T) {
	Convey("Given an empty state", t, func() {
		s := state.New()

		Convey("Every pair is never seen", func() {
			e := s.Lookup("V1", "Z1")
			So(e.IsKnown(), ShouldBeFalse)
			So(e.Inside(), ShouldBeFalse)
			So(e.String(), ShouldEqual, "never_seen")
			So(s.Known("V1"), ShouldBeFalse)
		})

		Convey("Ensure registers a vehicle without zones", func() {
			s.Ensure("V1")
			So(s.Known("V1"), ShouldBeTrue)
			So(s.Lookup("V1", "Z1").IsKnown(), ShouldBeFalse)
			So(s.Zones("V1"), ShouldBeEmpty)
		})

		Convey("Set records containment", func() {
			s.Set("V1", "Z1", true)
			s.Set("V1", "Z2", false)
			So(s.Lookup("V1", "Z1"), ShouldResemble, state.Known(true))
			So(s.Lookup("V1", "Z2"), ShouldResemble, state.Known(false))
			So(s.Lookup("V1", "Z2").String(), ShouldEqual, "outside")
			So(s.Inside("V1"), ShouldResemble, []string{"Z1"})
		})
	})

	Convey("Given a populated state", t, func() {
		s := state.New()
		s.Set("V2", "Z1", true)
		s.Set("V1", "Z1", false)

		Convey("Vehicles are sorted", func() {
			So(s.Vehicles(), ShouldResemble, []string{"V1", "V2"})
		})

		Convey("Clone is independent of the original", func() {
			c := s.Clone()
			c.Set("V1", "Z1", true)
			c.Set("V3", "Z1", true)
			So(s.Lookup("V1", "Z1").Inside(), ShouldBeFalse)
			So(s.Known("V3"), ShouldBeFalse)
		})

		Convey("Zones returns a copy", func() {
			z := s.Zones("V2")
			z["Z1"] = false
			So(s.Lookup("V2", "Z1").Inside(), ShouldBeTrue)
			So(s.Zones("nope"), ShouldBeNil)
		})

		Convey("It marshals as a nested JSON object", func() {
			b, err := json.Marshal(s)
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, `{"V1":{"Z1":false},"V2":{"Z1":true}}`)
		})
	})

	Convey("Cloning a nil state yields an empty one", t, func() {
		var s state.State
		c := s.Clone()
		So(c, ShouldNotBeNil)
		So(len(c), ShouldEqual, 0)
	})
}
