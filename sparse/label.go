package sparse

import "strings"

// ConcatLabels joins two labels with a space, treating the empty label as the identity.
func ConcatLabels(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}

// Tokens splits a label into its space separated tokens.
func Tokens(label string) []string {
	return strings.Fields(label)
}

// CanonicalLabel joins the tokens of label with single spaces, so that labels differing only in whitespace are the same key.
func CanonicalLabel(label string) string {
	return strings.Join(Tokens(label), " ")
}
