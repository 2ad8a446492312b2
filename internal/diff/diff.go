// Package diff compares an original prompt with its optimized version line by
// line.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/felixbrock/promptstudio/internal/domain"
)

type Mode string

const (
	// ModeGreedy walks both texts with two cursors and never realigns after a
	// divergence. One inserted line near the top makes every later line show
	// up as a removed/added pair. It is the compatibility baseline.
	ModeGreedy Mode = "greedy"
	// ModeLCS uses a minimal line diff. Same DiffReport contract.
	ModeLCS Mode = "lcs"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeGreedy:
		return ModeGreedy, nil
	case ModeLCS:
		return ModeLCS, nil
	default:
		return "", fmt.Errorf("unknown diff mode %q (want greedy or lcs)", s)
	}
}

type Engine struct {
	mode Mode
	dmp  *diffmatchpatch.DiffMatchPatch
}

func NewEngine(mode Mode) *Engine {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0

	return &Engine{mode: mode, dmp: dmp}
}

func (e *Engine) Mode() Mode {
	return e.mode
}

// Compute is deterministic and has no side effects.
func (e *Engine) Compute(original, optimized string) domain.DiffReport {
	if e.mode == ModeLCS {
		return e.lcs(splitLines(original), splitLines(optimized))
	}

	return greedy(splitLines(original), splitLines(optimized))
}

// Compute runs the greedy baseline.
func Compute(original, optimized string) domain.DiffReport {
	return greedy(splitLines(original), splitLines(optimized))
}

// splitLines splits on \n after folding \r\n. Empty text has no lines.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if text == "" {
		return nil
	}

	return strings.Split(text, "\n")
}

type builder struct {
	report domain.DiffReport
}

func (b *builder) add(kind domain.DiffKind, content string, lineNumber int) {
	b.report.Lines = append(b.report.Lines, domain.DiffLine{Content: content, Kind: kind, LineNumber: lineNumber})

	switch kind {
	case domain.DiffAdded:
		b.report.Counts.Added++
	case domain.DiffRemoved:
		b.report.Counts.Removed++
	case domain.DiffUnchanged:
		b.report.Counts.Unchanged++
	}
}

func (b *builder) done() domain.DiffReport {
	if b.report.Lines == nil {
		b.report.Lines = []domain.DiffLine{}
	}

	return b.report
}

func greedy(original, optimized []string) domain.DiffReport {
	b := &builder{}
	i, j := 0, 0

	for i < len(original) && j < len(optimized) {
		if original[i] == optimized[j] {
			b.add(domain.DiffUnchanged, original[i], i+1)
		} else {
			b.add(domain.DiffRemoved, original[i], i+1)
			b.add(domain.DiffAdded, optimized[j], j+1)
		}
		i++
		j++
	}

	for ; i < len(original); i++ {
		b.add(domain.DiffRemoved, original[i], i+1)
	}
	for ; j < len(optimized); j++ {
		b.add(domain.DiffAdded, optimized[j], j+1)
	}

	return b.done()
}

// lcs maps every distinct line to one rune, diffs the rune slices and expands
// the result back into lines. Unchanged lines carry their original line number.
func (e *Engine) lcs(original, optimized []string) domain.DiffReport {
	codes := map[string]rune{}
	a := encodeLines(original, codes)
	c := encodeLines(optimized, codes)

	lines := make(map[rune]string, len(codes))
	for line, r := range codes {
		lines[r] = line
	}

	b := &builder{}
	i, j := 0, 0

	for _, d := range e.dmp.DiffMainRunes(a, c, false) {
		for _, r := range d.Text {
			line := lines[r]

			switch d.Type {
			case diffmatchpatch.DiffEqual:
				i++
				j++
				b.add(domain.DiffUnchanged, line, i)
			case diffmatchpatch.DiffDelete:
				i++
				b.add(domain.DiffRemoved, line, i)
			case diffmatchpatch.DiffInsert:
				j++
				b.add(domain.DiffAdded, line, j)
			}
		}
	}

	return b.done()
}

func encodeLines(lines []string, codes map[string]rune) []rune {
	out := make([]rune, len(lines))
	for i, line := range lines {
		r, ok := codes[line]
		if !ok {
			r = lineRune(len(codes))
			codes[line] = r
		}
		out[i] = r
	}

	return out
}

// lineRune is the code of the n-th distinct line. Surrogates are skipped so
// every code survives the round trip through a string.
func lineRune(n int) rune {
	r := rune(n + 1)
	if r >= 0xD800 {
		r += 0x800
	}

	return r
}
