package render

import (
	"fmt"
	"regexp"
	"strings"
)

// The stamp is the first line of every rendered document. A cached document
// whose stamp does not match the current version is stale and must be
// re-rendered; the HTML after the stamp is never inspected.
const stampPrefix = "<!-- loam:render v"

var stampRe = regexp.MustCompile(`^<!-- loam:render v\d+ -->\n?`)

// Stamp prepends the version stamp to body. Already-stamped input is
// restamped, so the operation is idempotent and safe across version bumps.
func Stamp(body string, version int) string {
	body = stampRe.ReplaceAllString(body, "")
	return fmt.Sprintf("%s%d -->\n%s", stampPrefix, version, body)
}

// IsValid reports whether html carries the stamp for exactly this version.
func IsValid(html string, version int) bool {
	return strings.HasPrefix(html, fmt.Sprintf("%s%d -->", stampPrefix, version))
}
