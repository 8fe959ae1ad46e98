package notifier

import (
	"time"

	"github.com/copenhagensales/sms-inbox-notifier/internal/model"
	"github.com/copenhagensales/sms-inbox-notifier/internal/util"
)

const (
	// MaxBodyRunes is how much message content a toast shows.
	MaxBodyRunes = 50
	Ellipsis     = "..."
	// DurationMs is how long the UI keeps a toast visible.
	DurationMs = 5000

	DefaultTitle = "Ny SMS modtaget"
)

// Body truncates content to MaxBodyRunes code points and marks the cut.
func Body(content string) string {
	r := []rune(content)
	if len(r) <= MaxBodyRunes {
		return content
	}
	return string(r[:MaxBodyRunes]) + Ellipsis
}

// Compose builds the toast for an inbound message from a resolved sender.
func Compose(title string, who model.PartyIdentity, ev model.MessageEvent, now time.Time) model.Notification {
	return model.Notification{
		ID:            util.NewID(now),
		Title:         title,
		Description:   who.DisplayName() + ": " + Body(ev.ContentText()),
		Duration:      DurationMs,
		ApplicationID: ev.ApplicationID,
		CreatedAt:     now,
	}
}
