package service

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Overridden in tests.
var (
	nowFunc  = time.Now
	randIntn = rand.Intn
)

// timestamp is the UTC wall clock truncated to what Postgres stores.
func timestamp() time.Time {
	return nowFunc().UTC().Truncate(time.Microsecond)
}

const (
	accessCodePrefixLen = 4
	accessCodeFiller    = 'X'
)

// accessCodePrefix takes the first four characters of the title, upper-cases
// them, drops anything outside A-Z and pads the result with X.
func accessCodePrefix(title string) string {
	runes := []rune(strings.TrimSpace(title))
	if len(runes) > accessCodePrefixLen {
		runes = runes[:accessCodePrefixLen]
	}

	var b strings.Builder
	for _, r := range strings.ToUpper(string(runes)) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	for b.Len() < accessCodePrefixLen {
		b.WriteByte(accessCodeFiller)
	}
	return b.String()[:accessCodePrefixLen]
}

// newAccessCode builds PREFIX + four-digit year + three-digit random suffix,
// e.g. MATH2025042.
func newAccessCode(title string, at time.Time) string {
	return fmt.Sprintf("%s%04d%03d", accessCodePrefix(title), at.Year(), randIntn(1000))
}
