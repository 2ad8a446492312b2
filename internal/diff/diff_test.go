package diff

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixbrock/promptstudio/internal/domain"
)

func TestComputeGreedy(t *testing.T) {
	report := Compute("a\nb\nc", "a\nB\nc\nd")

	assert.Equal(t, []domain.DiffLine{
		{Content: "a", Kind: domain.DiffUnchanged, LineNumber: 1},
		{Content: "b", Kind: domain.DiffRemoved, LineNumber: 2},
		{Content: "B", Kind: domain.DiffAdded, LineNumber: 2},
		{Content: "c", Kind: domain.DiffUnchanged, LineNumber: 3},
		{Content: "d", Kind: domain.DiffAdded, LineNumber: 4},
	}, report.Lines)
	assert.Equal(t, domain.DiffCounts{Added: 2, Removed: 1, Unchanged: 2}, report.Counts)
}

func TestComputeGreedyDoesNotRealign(t *testing.T) {
	report := Compute("a\nb\nc", "x\na\nb\nc")

	assert.Equal(t, domain.DiffCounts{Added: 4, Removed: 3, Unchanged: 0}, report.Counts)
}

func TestComputeGreedyRemainingOriginal(t *testing.T) {
	report := Compute("a\nb\nc", "a")

	assert.Equal(t, domain.DiffCounts{Removed: 2, Unchanged: 1}, report.Counts)
	assert.Equal(t, domain.DiffLine{Content: "c", Kind: domain.DiffRemoved, LineNumber: 3}, report.Lines[2])
}

func TestComputeEmptyInputs(t *testing.T) {
	report := Compute("", "")
	assert.Empty(t, report.Lines)
	assert.NotNil(t, report.Lines)

	report = Compute("", "one\ntwo")
	assert.Equal(t, domain.DiffCounts{Added: 2}, report.Counts)
}

func TestComputeFoldsCRLF(t *testing.T) {
	report := Compute("a\r\nb", "a\nb")

	assert.Equal(t, domain.DiffCounts{Unchanged: 2}, report.Counts)
}

func TestComputeIsDeterministic(t *testing.T) {
	for _, mode := range []Mode{ModeGreedy, ModeLCS} {
		e := NewEngine(mode)
		assert.Equal(t, e.Compute("a\nb", "b\nc"), e.Compute("a\nb", "b\nc"), mode)
	}
}

func TestComputeLCS(t *testing.T) {
	report := NewEngine(ModeLCS).Compute("a\nb\nc", "a\nB\nc\nd")

	assert.Equal(t, domain.DiffCounts{Added: 2, Removed: 1, Unchanged: 2}, report.Counts)

	var unchanged []string
	for _, l := range report.Lines {
		if l.Kind == domain.DiffUnchanged {
			unchanged = append(unchanged, l.Content)
		}
	}
	assert.Equal(t, []string{"a", "c"}, unchanged)
}

func TestComputeLCSRealigns(t *testing.T) {
	report := NewEngine(ModeLCS).Compute("a\nb\nc", "x\na\nb\nc")

	assert.Equal(t, domain.DiffCounts{Added: 1, Unchanged: 3}, report.Counts)
	require.Len(t, report.Lines, 4)
	assert.Equal(t, domain.DiffLine{Content: "x", Kind: domain.DiffAdded, LineNumber: 1}, report.Lines[0])
	assert.Equal(t, domain.DiffLine{Content: "c", Kind: domain.DiffUnchanged, LineNumber: 3}, report.Lines[3])
}

func TestComputeLCSBlankLines(t *testing.T) {
	report := NewEngine(ModeLCS).Compute("a\n\nb", "a\n\nb")

	assert.Equal(t, domain.DiffCounts{Unchanged: 3}, report.Counts)
	assert.Equal(t, "", report.Lines[1].Content)
}

// sides rebuilds both inputs from a report and checks the line numbers are
// consecutive on each side.
func sides(t *testing.T, report domain.DiffReport) (string, string) {
	t.Helper()

	var before, after []string
	for _, l := range report.Lines {
		switch l.Kind {
		case domain.DiffUnchanged:
			before = append(before, l.Content)
			after = append(after, l.Content)
			assert.Equal(t, len(before), l.LineNumber)
		case domain.DiffRemoved:
			before = append(before, l.Content)
			assert.Equal(t, len(before), l.LineNumber)
		case domain.DiffAdded:
			after = append(after, l.Content)
			assert.Equal(t, len(after), l.LineNumber)
		}
	}

	return strings.Join(before, "\n"), strings.Join(after, "\n")
}

func numbered(n int, keep func(i int) bool, edit func(i int) string) string {
	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if !keep(i) {
			continue
		}
		lines = append(lines, edit(i))
	}
	return strings.Join(lines, "\n")
}

func TestComputeLCSLongDeletions(t *testing.T) {
	for _, n := range []int{10, 50, 100, 1000} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			line := func(i int) string { return fmt.Sprintf("line %d", i) }
			original := numbered(n, func(int) bool { return true }, line)
			optimized := numbered(n, func(i int) bool { return i%7 != 0 }, line)

			report := NewEngine(ModeLCS).Compute(original, optimized)

			removed := (n + 6) / 7
			assert.Equal(t, domain.DiffCounts{Removed: removed, Unchanged: n - removed}, report.Counts)
			assert.Len(t, report.Lines, n)

			before, after := sides(t, report)
			assert.Equal(t, original, before)
			assert.Equal(t, optimized, after)
		})
	}
}

func TestComputeLCSLongMixedEdits(t *testing.T) {
	original := numbered(120, func(int) bool { return true }, func(i int) string {
		if i%10 == 0 {
			return ""
		}
		return fmt.Sprintf("step %d", i%13)
	})
	optimized := numbered(120, func(i int) bool { return i%11 != 3 }, func(i int) string {
		switch {
		case i%10 == 0:
			return ""
		case i%17 == 5:
			return fmt.Sprintf("Step %d, in detail", i)
		}
		return fmt.Sprintf("step %d", i%13)
	})

	report := NewEngine(ModeLCS).Compute(original, optimized)

	before, after := sides(t, report)
	assert.Equal(t, original, before)
	assert.Equal(t, optimized, after)
	assert.Equal(t, len(report.Lines), report.Counts.Added+report.Counts.Removed+report.Counts.Unchanged)
}

func TestLineRuneSkipsSurrogates(t *testing.T) {
	seen := map[rune]bool{}
	for _, n := range []int{0, 0xD7FE, 0xD7FF, 0xD800, 0xE000, 200000} {
		r := lineRune(n)
		assert.True(t, utf8.ValidRune(r), n)
		assert.False(t, seen[r], n)
		seen[r] = true
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeGreedy, m)

	m, err = ParseMode(" LCS ")
	require.NoError(t, err)
	assert.Equal(t, ModeLCS, m)

	_, err = ParseMode("myers")
	assert.Error(t, err)
}
