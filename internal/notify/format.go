package notify

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// FormatTriggered renders the one-line toast message for a fired alert.
// The raw price appears unformatted so it is searchable as typed.
func FormatTriggered(evt TriggeredEvent) string {
	dir := "above"
	if evt.Alert.Condition == "below" {
		dir = "below"
	}
	return fmt.Sprintf("%s is %s %.2f: last price %.2f", evt.Alert.Symbol, dir, evt.Alert.TargetPrice, evt.Price)
}

// FormatTriggeredBody renders the longer desktop-notification body.
func FormatTriggeredBody(evt TriggeredEvent) string {
	return fmt.Sprintf("Target %s crossed at %.2f (alert set %s)",
		humanize.CommafWithDigits(evt.Alert.TargetPrice, 2),
		evt.Price,
		humanize.Time(evt.Alert.CreatedAt))
}
