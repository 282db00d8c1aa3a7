package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindows(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
		want    []string
	}{
		{name: "empty", text: "", size: 3, overlap: 1, want: nil},
		{name: "shorter than window", text: "ab", size: 5, overlap: 1, want: []string{"ab"}},
		{name: "overlap one", text: "abcd", size: 2, overlap: 1, want: []string{"ab", "bc", "cd", "d"}},
		{name: "no overlap", text: "abcdefg", size: 3, overlap: 0, want: []string{"abc", "def", "g"}},
		{name: "overlap equals size clamps stride", text: "abc", size: 2, overlap: 2, want: []string{"ab", "bc", "c"}},
		{name: "overlap beyond size clamps stride", text: "abc", size: 2, overlap: 9, want: []string{"ab", "bc", "c"}},
		{name: "multibyte characters", text: "héllo wörld", size: 5, overlap: 0, want: []string{"héllo", " wörl", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Windows(tt.text, tt.size, tt.overlap))
		})
	}
}

func TestWindows_PageExample(t *testing.T) {
	text := strings.Repeat("x", 2200)

	got := Windows(text, 1000, 100)

	require.Len(t, got, 3)
	assert.Equal(t, 1000, len(got[0]))
	assert.Equal(t, 1000, len(got[1]))
	assert.Equal(t, 400, len(got[2]))
}

func TestWindows_TailWindowAtEveryStride(t *testing.T) {
	tests := []struct {
		n    int
		want []int
	}{
		{n: 900, want: []int{900}},
		{n: 1000, want: []int{1000, 100}},
		{n: 1900, want: []int{1000, 1000, 100}},
		{n: 1950, want: []int{1000, 1000, 150}},
		{n: 2200, want: []int{1000, 1000, 400}},
	}
	for _, tt := range tests {
		var lengths []int
		for _, w := range Windows(strings.Repeat("x", tt.n), 1000, 100) {
			lengths = append(lengths, len(w))
		}
		assert.Equal(t, tt.want, lengths, "n=%d", tt.n)
	}
}

func TestWindows_OverlapBetweenNeighbours(t *testing.T) {
	var b strings.Builder
	for i := 0; b.Len() < 3500; i++ {
		b.WriteString(strings.Repeat(string(rune('a'+i%26)), 7))
	}
	text := b.String()
	const size, overlap = 1000, 100

	got := Windows(text, size, overlap)

	require.Greater(t, len(got), 2)
	for i := 0; i+1 < len(got); i++ {
		assert.LessOrEqual(t, utf8.RuneCountInString(got[i]), size)
		cur, next := []rune(got[i]), []rune(got[i+1])
		assert.Equal(t, string(cur[len(cur)-overlap:]), string(next[:overlap]), "window %d", i)
	}
}
