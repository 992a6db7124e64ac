package model

// FieldTag classifies what aspect of a paper an EvidenceSpan supports.
type FieldTag string

const (
	FieldProblem    FieldTag = "problem"
	FieldMethod     FieldTag = "method"
	FieldDataset    FieldTag = "dataset"
	FieldMetric     FieldTag = "metric"
	FieldResult     FieldTag = "result"
	FieldLimitation FieldTag = "limitation"
	FieldOther      FieldTag = "other"
)

// Locator pinpoints an EvidenceSpan within its source text.
type Locator struct {
	Page      *int `json:"page,omitempty"`
	Section   string `json:"section,omitempty"`
	CharStart *int `json:"char_start,omitempty"`
	CharEnd   *int `json:"char_end,omitempty"`
}

// EvidenceSpan is a verbatim quotation with a locator (spec §3).
type EvidenceSpan struct {
	ID         string   `json:"span_id"`
	PaperID    string   `json:"paper_id"`
	Field      FieldTag `json:"field"`
	Snippet    string   `json:"snippet"`
	Locator    Locator  `json:"locator"`
	Confidence float64  `json:"confidence"`
	SourceURL  string   `json:"source_url"`
}

// NewEvidenceSpan builds a span with its deterministic id already
// derived from paperID and the (truncated) snippet.
func NewEvidenceSpan(paperID string, field FieldTag, rawSnippet string, loc Locator, confidence float64, sourceURL string) *EvidenceSpan {
	snippet := TruncateSnippet(rawSnippet)
	return &EvidenceSpan{
		ID:         SpanID(paperID, snippet),
		PaperID:    paperID,
		Field:      field,
		Snippet:    snippet,
		Locator:    loc,
		Confidence: confidence,
		SourceURL:  sourceURL,
	}
}

// NumericResult is one card's reported direction for a (dataset,
// metric) pair — +1 for an improvement/higher result, -1 for a
// degradation/lower result — the signal the gap miner's contradiction
// source (spec §4.8b, §4.10 source 3) compares across cards in the
// same theme.
type NumericResult struct {
	Dataset   string `json:"dataset"`
	Metric    string `json:"metric"`
	Direction int    `json:"direction"`
}

// StudyCard is the structured extraction of one paper (spec §3).
type StudyCard struct {
	ID              string          `json:"card_id"`
	PaperID         string          `json:"paper_id"`
	Problem         string          `json:"problem"`
	Method          string          `json:"method"`
	Results         string          `json:"results"`
	Limitations     string          `json:"limitations"`
	Datasets        []string        `json:"datasets"`
	Metrics         []string        `json:"metrics"`
	NumericResults  []NumericResult `json:"numeric_results,omitempty"`
	EvidenceSpanIDs []string        `json:"evidence_span_ids"`
}

// Claim is an atomic citable statement (spec §3).
type Claim struct {
	ID              string   `json:"claim_id"`
	Text            string   `json:"claim_text"`
	EvidenceSpanIDs []string `json:"evidence_span_ids"`
	ThemeID         string   `json:"theme_id,omitempty"`
	Salience        float64  `json:"salience"`
	Uncertain       bool     `json:"uncertainty_flag"`
}
