package popup

import (
	"strings"

	"github.com/joeblew999/daurin/internal/humastar"
)

// Action is one button in a popup's action row.
type Action = humastar.Action

// Action rels.
const (
	RelProfile  = "profile"
	RelWhatsApp = "whatsapp"
	RelRoute    = "route"
)

var (
	whatsAppAction = humastar.ActionDef{Rel: RelWhatsApp, Pattern: "https://wa.me/%s", Method: "GET", Title: "WhatsApp"}
	routeAction    = humastar.ActionDef{Rel: RelRoute, Pattern: "%s", Method: "POST", Title: "Rute"}
)

func profileAction(pattern, id string) Action {
	return humastar.ActionDef{Rel: RelProfile, Pattern: pattern, Method: "GET", Title: "Lihat profil"}.For(id)
}

// WhatsAppNumber normalizes an Indonesian phone number to the wa.me form:
// digits only, with a leading 0 replaced by the 62 country code.
func WhatsAppNumber(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	n := b.String()
	switch {
	case n == "":
		return ""
	case strings.HasPrefix(n, "0"):
		return "62" + n[1:]
	case strings.HasPrefix(n, "8"):
		return "62" + n
	}
	return n
}
