// wrap.go - Greedy word wrapping over highlighted runs.
package text

import (
	"strings"
	"unicode"
)

// MeasureFunc returns the advance width of s in pixels. The font weight and
// size are bound into the function by the caller.
type MeasureFunc func(s string) float64

// Word is a whitespace-free token. A word may span run boundaries, in which
// case it carries one piece per highlight state, in logical order.
type Word struct {
	Pieces []Run
}

// Text returns the word without highlight information.
func (w Word) Text() string {
	return Plain(w.Pieces)
}

// Line is one wrapped output line.
type Line struct {
	Words []Word
}

// Text joins the words of the line with single spaces, in logical order.
func (l Line) Text() string {
	parts := make([]string, len(l.Words))
	for i, w := range l.Words {
		parts[i] = w.Text()
	}
	return strings.Join(parts, " ")
}

// Empty reports whether the line came from a blank source line.
func (l Line) Empty() bool {
	return len(l.Words) == 0
}

// Wrap lays runs out into lines no wider than maxWidth as reported by measure.
// Words are never split: a word wider than maxWidth sits alone on its line.
// A newline always ends the current line. Trailing blank lines are dropped,
// so blank input yields no lines. A non-positive maxWidth disables soft
// wrapping.
func Wrap(runs []Run, maxWidth float64, measure MeasureFunc) []Line {
	var lines []Line
	var cur Line

	for _, tok := range tokenize(runs) {
		if tok.newline {
			lines = append(lines, cur)
			cur = Line{}
			continue
		}
		if cur.Empty() {
			cur.Words = []Word{tok.word}
			continue
		}

		n := len(cur.Words)
		candidate := Line{Words: append(cur.Words[:n:n], tok.word)}
		if maxWidth <= 0 || measure(candidate.Text()) <= maxWidth {
			cur = candidate
			continue
		}
		lines = append(lines, cur)
		cur = Line{Words: []Word{tok.word}}
	}
	lines = append(lines, cur)

	for len(lines) > 0 && lines[len(lines)-1].Empty() {
		lines = lines[:len(lines)-1]
	}
	return lines
}

type token struct {
	word    Word
	newline bool
}

// tokenize breaks runs into words and hard line breaks.
func tokenize(runs []Run) []token {
	var toks []token
	var cur Word

	endWord := func() {
		if len(cur.Pieces) > 0 {
			toks = append(toks, token{word: cur})
			cur = Word{}
		}
	}

	for _, r := range runs {
		var b strings.Builder
		endPiece := func() {
			if b.Len() > 0 {
				cur.Pieces = append(cur.Pieces, Run{Text: b.String(), Highlighted: r.Highlighted})
				b.Reset()
			}
		}

		for _, c := range r.Text {
			switch {
			case c == '\n':
				endPiece()
				endWord()
				toks = append(toks, token{newline: true})
			case unicode.IsSpace(c):
				endPiece()
				endWord()
			default:
				b.WriteRune(c)
			}
		}
		endPiece()
	}
	endWord()

	return toks
}
