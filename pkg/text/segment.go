// segment.go - Split raw slide text into plain and highlighted runs.
//
// Package text turns raw slide strings into wrapped lines of words that keep
// their highlight membership, and orders right-to-left words for painting.
package text

import "strings"

// Marker toggles highlighting on and off inside slide text.
const Marker = "*"

// Run is a contiguous piece of slide text sharing one highlight state.
type Run struct {
	Text        string
	Highlighted bool
}

// Segment splits raw on Marker. Pieces at odd positions are highlighted and
// empty pieces are dropped, so "a *b* c" yields "a ", "b" (highlighted), " c".
// An unmatched marker highlights the remainder of the string.
// Neighbouring runs with the same state are merged.
func Segment(raw string) []Run {
	parts := strings.Split(raw, Marker)
	runs := make([]Run, 0, len(parts))
	for i, p := range parts {
		if p == "" {
			continue
		}
		hl := i%2 == 1
		if n := len(runs); n > 0 && runs[n-1].Highlighted == hl {
			runs[n-1].Text += p
			continue
		}
		runs = append(runs, Run{Text: p, Highlighted: hl})
	}
	return runs
}

// Plain concatenates the run texts: the raw input with every marker removed.
func Plain(runs []Run) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.Text)
	}
	return b.String()
}
