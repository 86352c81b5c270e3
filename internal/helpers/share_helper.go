package helpers

import (
	"net/url"
	"strings"
)

type ShareOption struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// componentEscape matches the browser's encodeURIComponent so share links are
// byte-identical to the ones the web storefront builds.
var componentEscape = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func EscapeComponent(s string) string {
	return componentEscape.Replace(url.QueryEscape(s))
}

func ShareURL(base, eventID string) string {
	return strings.TrimRight(base, "/") + "/events/" + url.PathEscape(eventID)
}

func TicketURL(base, ticketID string) string {
	return strings.TrimRight(base, "/") + "/tickets/" + url.PathEscape(ticketID)
}

// ShareOptions lists the social share targets for an event page.
func ShareOptions(title, shareURL string) []ShareOption {
	u := EscapeComponent(shareURL)
	return []ShareOption{
		{Name: "WhatsApp", URL: "https://api.whatsapp.com/send?text=" + EscapeComponent(title+" - "+shareURL)},
		{Name: "Facebook", URL: "https://www.facebook.com/sharer/sharer.php?u=" + u},
		{Name: "Twitter", URL: "https://twitter.com/intent/tweet?url=" + u + "&text=" + EscapeComponent(title)},
		{Name: "Telegram", URL: "https://t.me/share/url?url=" + u},
		{Name: "LinkedIn", URL: "https://www.linkedin.com/sharing/share-offsite/?url=" + u},
	}
}
