// Package strutil collects small text-normalization and similarity
// helpers shared by the deduplicator, planner, screener, and writer.
package strutil

import (
	"regexp"
	"strings"
)

var multipleBlankLinesRegex = regexp.MustCompile(`(?m)([\r\n]{2,})`)

// TrimAdjacentBlankLines collapses runs of blank lines to a single one,
// used when assembling the grounded-writer Markdown report.
func TrimAdjacentBlankLines(text string) string {
	return multipleBlankLinesRegex.ReplaceAllString(text, "\n\n")
}

// Normalize lowercases and trims a label for case-insensitive
// comparison (dataset/metric labels, arxiv ids, dois).
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SignificantTokens returns s split on non-letter/digit boundaries,
// lowercased, with tokens shorter than 3 runes dropped. Used by source
// B's query condensation (at most 4 significant tokens) and the
// query-quality keyword-overlap check.
func SignificantTokens(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= 3 {
			out = append(out, f)
		}
	}
	return out
}

// LCSRatio returns the longest-common-subsequence length of a and b
// divided by the length of the longer string, in [0,1]. Used by the
// deduplicator's fuzzy title-similarity pass (threshold 0.85).
func LCSRatio(a, b string) float64 {
	a, b = Normalize(a), Normalize(b)
	if a == "" && b == "" {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	n, m := len(ra), len(rb)
	if n == 0 || m == 0 {
		return 0
	}
	prev := make([]int, m+1)
	curr := make([]int, m+1)
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	lcs := prev[m]
	longer := n
	if m > longer {
		longer = m
	}
	return float64(lcs) / float64(longer)
}

// StripMarkdownFence removes a surrounding ``` / ```json code-block
// delimiter from LLM output, if present, before JSON parsing. Used by
// every stage that asks an LLM for a JSON response.
func StripMarkdownFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) < 6 || !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") {
		return trimmed
	}
	if idx := strings.IndexByte(trimmed, '\n'); idx != -1 {
		return strings.TrimSpace(trimmed[idx+1 : len(trimmed)-3])
	}
	return strings.TrimSpace(trimmed[3 : len(trimmed)-3])
}
