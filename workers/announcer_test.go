package workers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stream-economy/services"

	. "github.com/smartystreets/goconvey/convey"
)

func TestEmbedFor(t *testing.T) {
	a := &Announcer{}

	Convey("Announced event kinds produce an embed", t, func() {
		evt := services.Event{
			Kind:    services.EventHeistStarted,
			Payload: map[string]interface{}{"prompt": "7 x 6 = ?"},
			At:      time.Now(),
		}
		embed, wanted := a.embedFor(evt)
		So(wanted, ShouldBeTrue)
		So(embed.Title, ShouldNotBeEmpty)
		So(embed.Description, ShouldContainSubstring, "7 x 6 = ?")
		So(embed.Timestamp, ShouldNotBeEmpty)
	})

	Convey("Crown changes carry the new holder and total", t, func() {
		evt := services.Event{
			Kind:    services.EventCrownChanged,
			Payload: map[string]interface{}{"new_holder": "alice", "holder_total": 42.5},
			At:      time.Now(),
		}
		embed, wanted := a.embedFor(evt)
		So(wanted, ShouldBeTrue)
		So(embed.Description, ShouldContainSubstring, "alice")
		So(embed.Description, ShouldContainSubstring, "42.50")
	})

	Convey("Per-viewer noise is not announced", t, func() {
		for _, kind := range []string{services.EventActionResolved, services.EventCrateOpened, services.EventCrateDropped} {
			_, wanted := a.embedFor(services.Event{Kind: kind, At: time.Now()})
			So(wanted, ShouldBeFalse)
		}
	})
}

func TestPost(t *testing.T) {
	Convey("Posting with no webhook configured is a silent no-op", t, func() {
		a := &Announcer{client: http.DefaultClient}
		So(a.post(DiscordEmbed{Title: "test"}), ShouldBeNil)
	})

	Convey("Posting delivers the embed payload to the webhook", t, func() {
		var got []byte
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		a := &Announcer{webhookURL: server.URL, client: server.Client()}
		So(a.post(DiscordEmbed{Title: "💰 Heist cracked!"}), ShouldBeNil)
		So(string(got), ShouldContainSubstring, "Heist cracked")
	})

	Convey("A non-2xx response surfaces as an error", t, func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		a := &Announcer{webhookURL: server.URL, client: server.Client()}
		So(a.post(DiscordEmbed{Title: "test"}), ShouldNotBeNil)
	})
}
