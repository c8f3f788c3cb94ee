package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/zonewatch/internal/adapters/notify"
	"github.com/okian/zonewatch/internal/domain/model"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func completed(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool { <-t.done; return true }

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakePublisher struct {
	token mqtt.Token
	sent  []published
}

func (p *fakePublisher) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	p.sent = append(p.sent, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return p.token
}

var event = model.Event{
	VehicleID:  "ABC1234",
	ZoneID:     "DEPOT/NORTH",
	Kind:       model.Entered,
	ObservedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	Latitude:   -23.5,
	Longitude:  -46.6,
}

func TestMQTTNotifier(t *testing.T) {
	Convey("Given a notifier on a healthy broker", t, func() {
		pub := &fakePublisher{token: completed(nil)}
		n := notify.NewMQTTNotifier(pub, "zonewatch/events/", notify.WithQoS(2))

		Convey("Events are published as JSON on a per-pair topic", func() {
			So(n.Notify(context.Background(), event), ShouldBeNil)
			So(len(pub.sent), ShouldEqual, 1)
			So(pub.sent[0].topic, ShouldEqual, "zonewatch/events/ABC1234/DEPOT_NORTH")
			So(pub.sent[0].qos, ShouldEqual, 2)

			var got map[string]any
			So(json.Unmarshal(pub.sent[0].payload, &got), ShouldBeNil)
			So(got["kind"], ShouldEqual, "entered")
			So(got["vehicle_id"], ShouldEqual, "ABC1234")
		})
	})

	Convey("Given a broker that rejects the publish", t, func() {
		pub := &fakePublisher{token: completed(errors.New("not authorised"))}
		err := notify.NewMQTTNotifier(pub, "t").Notify(context.Background(), event)
		So(errors.Is(err, notify.ErrPublish), ShouldBeTrue)
	})

	Convey("Given a broker that never answers", t, func() {
		pub := &fakePublisher{token: &fakeToken{done: make(chan struct{})}}
		n := notify.NewMQTTNotifier(pub, "t", notify.WithPublishTimeout(20*time.Millisecond))
		err := n.Notify(context.Background(), event)
		So(errors.Is(err, notify.ErrTimeout), ShouldBeTrue)
	})

	Convey("The nop notifier accepts everything", t, func() {
		So(notify.Nop{}.Notify(context.Background(), event), ShouldBeNil)
	})
}
