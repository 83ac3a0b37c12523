package aireview

import (
	"fmt"
	"strings"
)

// estimateTokens approximates the token count of text. Providers report exact
// usage only after the call; budgeting and context-fit checks happen before,
// so a conservative rune-based estimate is used throughout (≈4 runes/token
// for mixed CJK/latin text).
func estimateTokens(text string) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	t := n / 4
	if t < 1 {
		t = 1
	}
	return t
}

// promptOverheadTokens leaves room for the system prompt and the model's JSON
// answer inside the context window.
const promptOverheadTokens = 1024

// splitSegments breaks an oversized text into chunks that fit the model's
// context window. Splits prefer paragraph boundaries and fall back to hard
// rune cuts for pathological single-paragraph inputs. A text that already
// fits comes back as a single segment.
func splitSegments(text string, maxContextTokens int) []string {
	budget := maxContextTokens - promptOverheadTokens
	if budget < 256 {
		budget = 256
	}
	if estimateTokens(text) <= budget {
		return []string{text}
	}

	maxRunes := budget * 4
	paragraphs := strings.Split(text, "\n\n")

	var segments []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			segments = append(segments, current.String())
			current.Reset()
		}
	}

	for _, p := range paragraphs {
		if len([]rune(p)) > maxRunes {
			flush()
			segments = append(segments, hardSplit(p, maxRunes)...)
			continue
		}
		if current.Len() > 0 && len([]rune(current.String()))+len([]rune(p))+2 > maxRunes {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	flush()

	return segments
}

func hardSplit(text string, maxRunes int) []string {
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += maxRunes {
		end := start + maxRunes
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

func segmentName(partName string, idx int) string {
	return fmt.Sprintf("%s#%d", partName, idx+1)
}
