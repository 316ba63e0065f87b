// Package messaging normalizes patient phone numbers and builds outbound
// message composition links. The core only supplies text and a normalized
// number; actual delivery belongs to the messaging app on the user's device.
package messaging

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// NormalizePhone parses a raw phone number and returns it as a
// country-code-prefixed digit string (E.164 without the leading plus),
// e.g. "3001234567" with region "CO" -> "573001234567".
func NormalizePhone(raw, defaultRegion string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("phone number is empty")
	}

	num, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return "", fmt.Errorf("parse phone %q: %w", raw, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("invalid phone number %q for region %s", raw, defaultRegion)
	}

	return strings.TrimPrefix(phonenumbers.Format(num, phonenumbers.E164), "+"), nil
}

// ComposeLink returns a wa.me link that opens message composition with the
// given text pre-filled. The phone must already be normalized.
func ComposeLink(normalizedPhone, text string) string {
	if text == "" {
		return "https://wa.me/" + normalizedPhone
	}
	return "https://wa.me/" + normalizedPhone + "?text=" + url.QueryEscape(text)
}
