// Package device condenses a raw User-Agent header into a short human
// readable label. Labels travel with every operation via the request context
// and end up in audit events, so an operator can tell which client touched
// an identity without storing the full User-Agent string.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// UnknownDevice is the label used when no User-Agent header was sent.
const UnknownDevice = "Unknown Device"

// Label parses a User-Agent string into "<browser> <major> on <platform>".
// Only the browser's major version is kept so labels stay stable across
// auto-updates.
func Label(rawUA string) string {
	if strings.TrimSpace(rawUA) == "" {
		return UnknownDevice
	}

	ua := useragent.New(rawUA)

	name, version := ua.Browser()
	if name == "" {
		name = "Unknown Browser"
	}
	if major, _, found := strings.Cut(version, "."); found {
		version = major
	}

	// Mobile devices report a more recognizable platform ("iPhone") than
	// their OS string.
	platform := ua.OSInfo().Name
	if ua.Mobile() && ua.Platform() != "" {
		platform = ua.Platform()
	}
	if platform == "" {
		platform = "Unknown OS"
	}

	label := name
	if version != "" {
		label += " " + version
	}
	return label + " on " + platform
}
