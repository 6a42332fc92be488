// Package normalize canonicalizes personal and organization names so that
// watchlist comparison is insensitive to case, accents, punctuation, and
// honorifics. Normalization is deterministic and idempotent.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	dErrors "memoria/pkg/domain-errors"
)

// honorifics are dropped as standalone tokens. The list covers the Spanish
// forms common in Venezuelan press plus English equivalents.
var honorifics = map[string]struct{}{
	"sr": {}, "sra": {}, "srta": {}, "don": {}, "dona": {},
	"dr": {}, "dra": {}, "lic": {}, "licda": {}, "ing": {},
	"gral": {}, "general": {}, "cnel": {}, "coronel": {}, "cap": {},
	"mr": {}, "mrs": {}, "ms": {}, "miss": {}, "sir": {},
	"prof": {}, "rev": {},
}

// Normalize canonicalizes a raw name: NFD-decomposed with combining marks
// dropped (accent-insensitive), lower-cased, punctuation stripped, honorific
// tokens removed, whitespace collapsed. Empty or whitespace-only input is
// rejected with CodeInvalidInput.
func Normalize(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "name must not be empty")
	}

	decomposed := norm.NFD.String(raw)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining mark left over from NFD decomposition
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			// punctuation, symbols, and all whitespace become separators
			b.WriteByte(' ')
		}
	}

	tokens := strings.Fields(b.String())
	kept := tokens[:0]
	for _, tok := range tokens {
		if _, isHonorific := honorifics[tok]; !isHonorific {
			kept = append(kept, tok)
		}
	}

	result := strings.Join(kept, " ")
	if result == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "name contains no usable characters")
	}
	return result, nil
}
