// workers/announcer.go
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"stream-economy/services"
	"stream-economy/utils"
)

// Embed colors
const (
	colorGold   = 0xF1C40F
	colorGreen  = 0x2ECC71
	colorRed    = 0xE74C3C
	colorPurple = 0x9B59B6
	colorBlue   = 0x3498DB
)

type DiscordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp"`
}

type webhookPayload struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

// Announcer consumes post-commit events and posts chat/stream announcements
// to a Discord-style webhook. Strictly best-effort: a failed post is logged
// and dropped, never retried into the request path.
type Announcer struct {
	webhookURL string
	client     *http.Client
}

func NewAnnouncer() *Announcer {
	url := os.Getenv("ANNOUNCE_WEBHOOK_URL")
	if url == "" {
		log.Println("⚠️  ANNOUNCE_WEBHOOK_URL not set — announcements disabled")
	}
	return &Announcer{webhookURL: url, client: utils.HTTPClient}
}

func (a *Announcer) Run(ctx context.Context, events <-chan services.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			embed, wanted := a.embedFor(evt)
			if !wanted {
				continue
			}
			if err := a.post(embed); err != nil {
				log.Printf("⚠️  [ANNOUNCE] failed to post %s: %v", evt.Kind, err)
			}
		}
	}
}

func (a *Announcer) embedFor(evt services.Event) (DiscordEmbed, bool) {
	ts := evt.At.Format(time.RFC3339)

	switch evt.Kind {
	case services.EventHeistStarted:
		return DiscordEmbed{
			Title:       "🚨 HEIST IN PROGRESS",
			Description: fmt.Sprintf("%v\nFirst correct answer takes the loot!", evt.Payload["prompt"]),
			Color:       colorRed,
			Timestamp:   ts,
		}, true
	case services.EventHeistWon:
		return DiscordEmbed{
			Title:       "💰 Heist cracked!",
			Description: fmt.Sprintf("Winner walks away with a **%v** crate", evt.Payload["reward_tier"]),
			Color:       colorGreen,
			Timestamp:   ts,
		}, true
	case services.EventHeistExpired:
		return DiscordEmbed{
			Title:       "⏱️ Heist expired",
			Description: "Nobody cracked it in time. The vault stays shut.",
			Color:       colorBlue,
			Timestamp:   ts,
		}, true
	case services.EventCrownChanged:
		return DiscordEmbed{
			Title:       "👑 The crown has a new head",
			Description: fmt.Sprintf("**%v** takes the crown with $%.2f contributed", evt.Payload["new_holder"], evt.Payload["holder_total"]),
			Color:       colorGold,
			Timestamp:   ts,
		}, true
	case services.EventSessionEnded:
		return DiscordEmbed{
			Title:       "🏁 Session over",
			Description: fmt.Sprintf("Final pot: $%.2f. Crown rewards paid out.", evt.Payload["final_total"]),
			Color:       colorPurple,
			Timestamp:   ts,
		}, true
	case services.EventLevelUp:
		return DiscordEmbed{
			Title:       "⬆️ Level up!",
			Description: fmt.Sprintf("A viewer just hit level %v", evt.Payload["level"]),
			Color:       colorBlue,
			Timestamp:   ts,
		}, true
	}
	return DiscordEmbed{}, false
}

func (a *Announcer) post(embed DiscordEmbed) error {
	if a.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(webhookPayload{Embeds: []DiscordEmbed{embed}})
	if err != nil {
		return err
	}

	resp, err := a.client.Post(a.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}
