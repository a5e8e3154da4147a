// Package phone prepares provider phone numbers for dialing.
package phone

import "strings"

var stripper = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")

// Normalize removes spaces, hyphens, parentheses and leading '+' signs.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	return strings.TrimLeft(stripper.Replace(raw), "+")
}
