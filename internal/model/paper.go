package model

import "time"

// SourceTag identifies which external academic index produced a Paper.
type SourceTag string

const (
	SourceArxiv       SourceTag = "arxiv"
	SourceOpenAlex    SourceTag = "openalex"
	SourceHuggingFace SourceTag = "huggingface"
	SourceURL         SourceTag = "url"
)

// sourcePriority ranks source tags for dedup tie-breaking: arxiv over
// openalex over huggingface over url (spec §4.3 step 4).
var sourcePriority = map[SourceTag]int{
	SourceArxiv:       4,
	SourceOpenAlex:    3,
	SourceHuggingFace: 2,
	SourceURL:         1,
}

// SourcePriority returns the dedup tie-break rank of a source tag;
// higher wins.
func SourcePriority(s SourceTag) int { return sourcePriority[s] }

// PaperStatus is the monotonic lifecycle enum a Paper moves through.
type PaperStatus int

const (
	StatusRaw PaperStatus = iota
	StatusScreened
	StatusFullText
	StatusExtracted
	StatusReported
)

func (s PaperStatus) String() string {
	switch s {
	case StatusRaw:
		return "RAW"
	case StatusScreened:
		return "SCREENED"
	case StatusFullText:
		return "FULLTEXT"
	case StatusExtracted:
		return "EXTRACTED"
	case StatusReported:
		return "REPORTED"
	default:
		return "UNKNOWN"
	}
}

// PageRange is one entry of a Paper's page map: the ordered character
// offsets a page spans within the full text, plus a short preview used
// for progress events.
type PageRange struct {
	PageNumber int    `json:"page_number"`
	CharStart  int    `json:"char_start"`
	CharEnd    int    `json:"char_end"`
	Preview    string `json:"preview"`
}

// Paper is one academic work (spec §3).
type Paper struct {
	ID             string      `json:"paper_id"`
	Title          string      `json:"title"`
	Authors        []string    `json:"authors"`
	PublishedAt    time.Time   `json:"published_at"`
	Source         SourceTag   `json:"source"`
	ArxivID        string      `json:"arxiv_id,omitempty"`
	DOI            string      `json:"doi,omitempty"`
	Abstract       string      `json:"abstract"`
	PDFURL         string      `json:"pdf_url,omitempty"`
	LandingURL     string      `json:"landing_url"`
	Status         PaperStatus `json:"status"`
	RelevanceScore *float64    `json:"relevance_score,omitempty"`
	MetadataHash   string      `json:"metadata_hash"`
	PDFHash        string      `json:"pdf_hash,omitempty"`
	PageMap        []PageRange `json:"page_map,omitempty"`
	FullText       string      `json:"-"`
	RetrievedAt    time.Time   `json:"retrieved_at"`
}

// HasFullText reports whether full text has been loaded for this paper.
func (p *Paper) HasFullText() bool { return p.PDFHash != "" }

// ValidatePageMap checks the invariants from spec §3: char_end >=
// char_start, and ranges are contiguous and non-overlapping.
func (p *Paper) ValidatePageMap() error {
	prevEnd := 0
	for i, pr := range p.PageMap {
		if pr.CharEnd < pr.CharStart {
			return errf("page %d: char_end < char_start", pr.PageNumber)
		}
		if i > 0 && pr.CharStart != prevEnd {
			return errf("page %d: not contiguous with previous page", pr.PageNumber)
		}
		prevEnd = pr.CharEnd
	}
	return nil
}
