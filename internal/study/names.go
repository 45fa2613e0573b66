package study

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName trims surrounding space, collapses inner runs of whitespace
// and applies NFC so visually identical names compare equal.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.Join(strings.Fields(name), " "))
}

// NameKey is the case-folded form used to detect duplicate topic names within
// a course. Casers are stateful, so one is built per call.
func NameKey(name string) string {
	return cases.Fold().String(NormalizeName(name))
}
