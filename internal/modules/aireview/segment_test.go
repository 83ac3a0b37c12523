package aireview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateTokens(t *testing.T) {
	assert.Zero(t, estimateTokens(""))
	assert.Equal(t, 1, estimateTokens("ab"), "short text rounds up to one token")
	assert.Equal(t, 25, estimateTokens(strings.Repeat("x", 100)))
	// Rune-based, not byte-based: CJK counts per character.
	assert.Equal(t, 25, estimateTokens(strings.Repeat("审", 100)))
}

func TestSplitSegmentsFittingTextIsSingleSegment(t *testing.T) {
	text := "short review target"
	segments := splitSegments(text, 8192)

	require.Len(t, segments, 1)
	assert.Equal(t, text, segments[0])
}

func TestSplitSegmentsPrefersParagraphBoundaries(t *testing.T) {
	para := strings.Repeat("a", 2000)
	text := para + "\n\n" + para + "\n\n" + para

	// Budget of 600 tokens ≈ 2400 runes: one paragraph per segment.
	segments := splitSegments(text, 1624)

	require.Len(t, segments, 3)
	for _, s := range segments {
		assert.Equal(t, para, s)
	}
}

func TestSplitSegmentsPacksSmallParagraphs(t *testing.T) {
	para := strings.Repeat("b", 900)
	text := strings.Join([]string{para, para, para, para}, "\n\n")

	segments := splitSegments(text, 1624)

	require.Greater(t, len(segments), 1)
	// Nothing lost: paragraph content is preserved across segments.
	joined := strings.Join(segments, "\n\n")
	assert.Equal(t, strings.Count(text, "b"), strings.Count(joined, "b"))
}

func TestSplitSegmentsHardSplitsGiantParagraph(t *testing.T) {
	text := strings.Repeat("c", 10000)

	segments := splitSegments(text, 1280)

	require.Greater(t, len(segments), 1)
	maxRunes := (1280 - promptOverheadTokens) * 4
	for _, s := range segments {
		assert.LessOrEqual(t, len([]rune(s)), maxRunes)
	}
	assert.Equal(t, text, strings.Join(segments, ""))
}

func TestSplitSegmentsMinimumBudget(t *testing.T) {
	// A context window smaller than the prompt overhead still reviews in
	// minimum-size chunks instead of producing nothing.
	text := strings.Repeat("d", 5000)
	segments := splitSegments(text, 512)

	require.NotEmpty(t, segments)
	for _, s := range segments {
		assert.LessOrEqual(t, len([]rune(s)), 256*4)
	}
}

func TestSegmentName(t *testing.T) {
	assert.Equal(t, "text#1", segmentName("text", 0))
	assert.Equal(t, "file:a.txt#3", segmentName("file:a.txt", 2))
}
