package device

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabel(t *testing.T) {
	t.Run("empty user agent returns unknown device", func(t *testing.T) {
		assert.Equal(t, UnknownDevice, Label(""))
	})

	t.Run("whitespace only user agent returns unknown device", func(t *testing.T) {
		assert.Equal(t, UnknownDevice, Label("   "))
	})

	t.Run("chrome on desktop includes browser and OS", func(t *testing.T) {
		ua := "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
		label := Label(ua)
		assert.Contains(t, label, "Chrome")
		assert.Contains(t, label, "on")
		assert.NotContains(t, label, "  ")
	})

	t.Run("only the major browser version is kept", func(t *testing.T) {
		ua := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.109 Safari/537.36"
		label := Label(ua)
		assert.Contains(t, label, "Chrome 120")
		assert.NotContains(t, label, "6099")
	})

	t.Run("safari on iphone reports the platform", func(t *testing.T) {
		ua := "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
		label := Label(ua)
		assert.Contains(t, label, "on")
		assert.Contains(t, label, "iPhone")
	})

	t.Run("firefox on linux includes browser and OS", func(t *testing.T) {
		ua := "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
		label := Label(ua)
		assert.Contains(t, label, "Firefox")
		assert.Contains(t, label, "on")
	})

	t.Run("unrecognized user agent still yields a label", func(t *testing.T) {
		label := Label("Unknown/1.0")
		assert.Contains(t, label, "on")
		assert.NotEmpty(t, label)
	})

	t.Run("label has no leading or trailing whitespace", func(t *testing.T) {
		ua := "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
		label := Label(ua)
		assert.Equal(t, strings.TrimSpace(label), label)
	})
}
