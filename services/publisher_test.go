package services

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPublisher(t *testing.T) {
	Convey("Given a publisher with a one-slot subscriber", t, func() {
		p := NewPublisher()
		ch := p.Subscribe(1)

		Convey("publishing stamps the time and delivers", func() {
			p.Publish(Event{Kind: EventActionResolved})

			evt := <-ch
			So(evt.Kind, ShouldEqual, EventActionResolved)
			So(evt.At.IsZero(), ShouldBeFalse)
		})

		Convey("a full buffer drops instead of blocking the request path", func() {
			p.Publish(Event{Kind: "first"})
			p.Publish(Event{Kind: "second"}) // buffer full, silently dropped

			evt := <-ch
			So(evt.Kind, ShouldEqual, "first")

			select {
			case extra := <-ch:
				So(extra.Kind, ShouldBeEmpty) // nothing else should arrive
			default:
			}
		})

		Convey("closing shuts every subscriber channel", func() {
			p.Close()
			_, open := <-ch
			So(open, ShouldBeFalse)
		})
	})

	Convey("Publishing with no subscribers is a no-op", t, func() {
		p := NewPublisher()
		So(func() { p.Publish(Event{Kind: "lonely"}) }, ShouldNotPanic)
	})
}
