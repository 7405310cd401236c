// Package ident implements the identifier and lexical policy shared by the
// L5X extractor, the ST lifter, and the L5X serializer: reserved-word
// remapping, identifier sanitation, and base-type extraction.
package ident

import "strings"

// reserved maps reserved or problematic identifiers (matched
// case-insensitively on the uppercased key) to their ST-safe replacement.
// Values verbatim from the reference compiler's constant table.
var reserved = map[string]string{
	"ON":        "ON1",
	"TYPE":      "TYPE1",
	"EN":        "EN1",
	"SCALE":     "scl1",
	"ALM":       "alarm1",
	"ALARM":     "alert",
	"TON":       "TON1",
	"R_TRIG":    "R_TRIG1",
	"TO":        "TO1",
	"SHUTODWN1": "SHUTDOWN1",
	"SHUTODWN2": "SHUTDOWN2",
	"SHUTODWN3": "SHUTDOWN3",
	"SHUTODWN4": "SHUTDOWN4",
	"SHUTODWN5": "SHUTDOWN5",
	"SHUTDOWN":  "Shutdown",
	"STATUS":    "Status",
	"HTY":       "Hty",
	"AVL":       "Avl",
}

// Sanitize turns any string into an ST-safe identifier. It is the
// composition of three rules, applied in order: reserved-word substitution,
// non-alphanumeric replacement, and leading-digit prefixing. Sanitize is
// pure and idempotent: Sanitize(Sanitize(s)) == Sanitize(s) for all s.
func Sanitize(s string) string {
	if repl, ok := reserved[strings.ToUpper(s)]; ok {
		s = repl
	}
	s = replaceNonIdentChars(s)
	// Replacement can turn a non-key into a key ("R-TRIG" -> "R_TRIG"); look
	// it up again so a second Sanitize call has nothing left to change.
	if repl, ok := reserved[strings.ToUpper(s)]; ok {
		s = repl
	}
	if s != "" && s[0] >= '0' && s[0] <= '9' {
		s = "var_" + s
	}
	return s
}

func replaceNonIdentChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// IsReserved reports whether s (case-insensitive) is a key in the reserved
// word table, and returns its mapped replacement.
func IsReserved(s string) (string, bool) {
	repl, ok := reserved[strings.ToUpper(s)]
	return repl, ok
}

// BaseType strips array-bracket and angle-bracket decorations from a type
// string, returning the bare type name.
func BaseType(s string) string {
	s = stripBracketed(s, '[', ']')
	s = stripBracketed(s, '<', '>')
	return strings.TrimSpace(s)
}

// stripBracketed removes every [open ... close] span from s, including
// nested occurrences of the same delimiter pair at depth 1 (no nesting is
// expected in practice, but the scan is depth-aware to be safe).
func stripBracketed(s string, open, close byte) string {
	var b strings.Builder
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == open:
			depth++
		case c == close:
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteByte(c)
		}
	}
	return b.String()
}
