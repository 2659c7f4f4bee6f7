// bidi.go - Visual ordering of right-to-left words.
// Uses golang.org/x/text/unicode/bidi character classes. Lines are laid out
// word by word from the right margin, so only per-word reordering is needed.
package text

import (
	"strings"

	"golang.org/x/text/unicode/bidi"
)

func classOf(r rune) bidi.Class {
	p, _ := bidi.LookupRune(r)
	return p.Class()
}

// IsRTL reports whether s contains a strong right-to-left character.
func IsRTL(s string) bool {
	for _, r := range s {
		if c := classOf(r); c == bidi.R || c == bidi.AL {
			return true
		}
	}
	return false
}

// Visual returns s in display order, assuming s holds no spaces.
// Words without right-to-left characters are returned unchanged. Otherwise
// the word is reversed, except that embedded Latin and number sequences keep
// their own left-to-right order, combining marks stay on their base letter,
// and paired brackets are mirrored.
func Visual(s string) string {
	if !IsRTL(s) {
		return s
	}

	runes := []rune(s)
	ltr := ltrMask(runes)

	var b strings.Builder
	b.Grow(len(s))
	end := len(runes)
	for end > 0 {
		start := end - 1
		for start > 0 && ltr[start-1] == ltr[end-1] {
			start--
		}
		if ltr[start] {
			b.WriteString(string(runes[start:end]))
		} else {
			writeReversed(&b, runes[start:end])
		}
		end = start
	}
	return b.String()
}

// ltrMask marks runes that keep left-to-right order inside a right-to-left
// word: Latin letters, digits, and separators sitting between two digits.
func ltrMask(runes []rune) []bool {
	classes := make([]bidi.Class, len(runes))
	mask := make([]bool, len(runes))
	for i, r := range runes {
		classes[i] = classOf(r)
		switch classes[i] {
		case bidi.L, bidi.EN, bidi.AN:
			mask[i] = true
		}
	}

	isNum := func(c bidi.Class) bool { return c == bidi.EN || c == bidi.AN }
	for i := 1; i+1 < len(runes); i++ {
		switch classes[i] {
		case bidi.CS, bidi.ES, bidi.ET:
			if isNum(classes[i-1]) && isNum(classes[i+1]) {
				mask[i] = true
			}
		}
	}
	// Trailing percent or currency signs stay with the number.
	for i := 1; i < len(runes); i++ {
		if classes[i] == bidi.ET && isNum(classes[i-1]) {
			mask[i] = true
		}
	}
	return mask
}

// writeReversed writes seg back to front with paired brackets mirrored.
// bidi.ReverseString leaves non-spacing marks in front of their base rune,
// so each run of marks is moved back behind the rune it belongs to.
func writeReversed(b *strings.Builder, seg []rune) {
	rev := []rune(bidi.ReverseString(string(seg)))
	for i := 0; i < len(rev); {
		j := i
		for j < len(rev) && classOf(rev[j]) == bidi.NSM {
			j++
		}
		if j < len(rev) {
			b.WriteRune(rev[j])
		}
		for k := j - 1; k >= i; k-- {
			b.WriteRune(rev[k])
		}
		i = j + 1
	}
}
