package indexer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Preprocess normalises extracted text before chunking. Control and format
// characters (NULs from PDF streams, soft hyphens, zero-width spaces) and
// replacement characters left by invalid UTF-8 are dropped; whitespace runs
// become one space.
func Preprocess(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return ' '
		case r == utf8.RuneError, unicode.IsControl(r), unicode.Is(unicode.Cf, r):
			return -1
		}
		return r
	}, text)
	return strings.Join(strings.Fields(cleaned), " ")
}
