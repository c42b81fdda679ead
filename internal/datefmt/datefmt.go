// Package datefmt normalizes loosely formatted service timestamps.
package datefmt

import (
	"regexp"
	"strings"
	"time"
)

// InvalidDate is the fallback rendering for unparseable timestamps.
const InvalidDate = "Invalid date"

// utcLayout matches the rendering of JS Date.toUTCString.
const utcLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

var fractionRe = regexp.MustCompile(`(\.\d{3})\d+`)

// Normalize converts a service timestamp into a fixed UTC rendering.
// Fractional seconds beyond millisecond precision are truncated without
// rounding, and a missing UTC designator is tolerated. Input that still
// fails to parse yields InvalidDate instead of an error, so display code
// never has to handle a malformed date.
func Normalize(raw string) string {
	cleaned := fractionRe.ReplaceAllString(raw, "$1")
	if !strings.HasSuffix(cleaned, "Z") {
		cleaned += "Z"
	}
	t, err := time.Parse(time.RFC3339, cleaned)
	if err != nil {
		return InvalidDate
	}
	return t.UTC().Format(utcLayout)
}
