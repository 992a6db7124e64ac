package pdfload

import (
	"strings"

	"github.com/researchmesh/citeforge/internal/model"
)

// ResolveSnippet finds snippet as a verbatim substring of fullText and
// returns the locator (char offsets plus the page containing
// char_start), per spec §4.6. ok is false if the snippet is not a
// verbatim substring.
func ResolveSnippet(fullText string, pageMap []model.PageRange, snippet string) (model.Locator, bool) {
	idx := strings.Index(fullText, snippet)
	if idx < 0 {
		return model.Locator{}, false
	}
	charStart := idx
	charEnd := idx + len(snippet)

	loc := model.Locator{CharStart: &charStart, CharEnd: &charEnd}
	if page, ok := LocatePage(pageMap, charStart); ok {
		p := page.PageNumber
		loc.Page = &p
	}
	return loc, true
}
