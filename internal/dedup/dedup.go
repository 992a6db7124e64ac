// Package dedup implements the 4-level paper deduplication pipeline of
// spec §4.3, applied to the concatenated result set from every
// external source before persistence.
//
// Grounded on Tangerg-lynx/ai/rag's DeduplicationDocumentRefiner: a
// small, pure, seen-set-driven pass over a slice that preserves
// first-occurrence order. That refiner only compares by id; this
// package generalizes the same shape into four successive passes, each
// keyed by a different notion of "same paper".
package dedup

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/researchmesh/citeforge/internal/model"
	"github.com/researchmesh/citeforge/pkg/setx"
	"github.com/researchmesh/citeforge/pkg/strutil"
)

// fuzzyTitleThreshold is the LCS-ratio floor for declaring two titles
// the same paper (spec §4.3 step 4).
const fuzzyTitleThreshold = 0.85

// Dedup runs the full 4-level pipeline over papers, returning a slice
// with no two papers that would be declared duplicate by any of the
// four steps, in first-occurrence order among survivors.
func Dedup(papers []*model.Paper) []*model.Paper {
	out := byArxivID(papers)
	out = byDOI(out)
	out = byFingerprint(out)
	out = byFuzzyTitle(out)
	return out
}

func byArxivID(papers []*model.Paper) []*model.Paper {
	return dedupBy(papers, func(p *model.Paper) (string, bool) {
		id := strings.ToLower(strings.TrimSpace(p.ArxivID))
		return id, id != ""
	})
}

func byDOI(papers []*model.Paper) []*model.Paper {
	return dedupBy(papers, func(p *model.Paper) (string, bool) {
		doi := strings.ToLower(strings.TrimSpace(p.DOI))
		return doi, doi != ""
	})
}

// fingerprint is MD5(lowercase(title) || "|" || lowercase(first-author))
// (spec §4.3 step 3).
func fingerprint(p *model.Paper) string {
	firstAuthor := ""
	if len(p.Authors) > 0 {
		firstAuthor = p.Authors[0]
	}
	raw := strings.ToLower(p.Title) + "|" + strings.ToLower(firstAuthor)
	sum := md5.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func byFingerprint(papers []*model.Paper) []*model.Paper {
	return dedupBy(papers, func(p *model.Paper) (string, bool) {
		return fingerprint(p), true
	})
}

// dedupBy is the generalized DeduplicationDocumentRefiner shape: when
// two papers share a key, the one that wins the tie-break (more
// populated fields, then source priority) is kept.
func dedupBy(papers []*model.Paper, keyOf func(*model.Paper) (string, bool)) []*model.Paper {
	// slot is one output position: either a key whose winner is resolved
	// at the end, or an unkeyed paper kept as-is.
	type slot struct {
		key     string
		unkeyed *model.Paper
	}

	seen := setx.New[string]()
	winners := map[string]*model.Paper{}
	order := []slot{}

	for _, p := range papers {
		key, ok := keyOf(p)
		if !ok {
			order = append(order, slot{unkeyed: p})
			continue
		}
		if !seen.Contains(key) {
			seen.Add(key)
			winners[key] = p
			order = append(order, slot{key: key})
			continue
		}
		if preferSecond(winners[key], p) {
			winners[key] = p
		}
	}

	out := make([]*model.Paper, 0, len(order))
	for _, s := range order {
		if s.unkeyed != nil {
			out = append(out, s.unkeyed)
		} else {
			out = append(out, winners[s.key])
		}
	}
	return out
}

// byFuzzyTitle does an O(n^2) pairwise scan since the corpus per
// session is small (bounded by max_papers_total); each new paper is
// compared against survivors kept so far.
func byFuzzyTitle(papers []*model.Paper) []*model.Paper {
	survivors := make([]*model.Paper, 0, len(papers))

	for _, p := range papers {
		matchIdx := -1
		for i, s := range survivors {
			if strutil.LCSRatio(strings.ToLower(p.Title), strings.ToLower(s.Title)) >= fuzzyTitleThreshold {
				matchIdx = i
				break
			}
		}
		if matchIdx < 0 {
			survivors = append(survivors, p)
			continue
		}
		if preferSecond(survivors[matchIdx], p) {
			survivors[matchIdx] = p
		}
	}
	return survivors
}

// preferSecond reports whether b should replace a as the tie-break
// winner: more populated metadata fields wins; ties broken by source
// priority (spec §4.3 step 4).
func preferSecond(a, b *model.Paper) bool {
	af, bf := populatedFieldCount(a), populatedFieldCount(b)
	if af != bf {
		return bf > af
	}
	return model.SourcePriority(b.Source) > model.SourcePriority(a.Source)
}

func populatedFieldCount(p *model.Paper) int {
	count := 0
	for _, s := range []string{p.Title, p.ArxivID, p.DOI, p.Abstract, p.PDFURL, p.LandingURL} {
		if strings.TrimSpace(s) != "" {
			count++
		}
	}
	if len(p.Authors) > 0 {
		count++
	}
	if !p.PublishedAt.IsZero() {
		count++
	}
	return count
}
