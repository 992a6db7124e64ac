// Package evidence implements the evidence extractor of spec §4.7:
// per paper, an LLM call proposes a StudyCard and EvidenceSpans, each
// snippet is verified as a verbatim substring of the source text, and
// unverifiable fields are dropped rather than fabricated.
//
// Grounded on Tangerg-lynx/ai/evaluation/fact_checking.go's
// prompt-then-parse call shape, generalized from a single YES/NO
// boolean response into a structured multi-field JSON response.
package evidence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/researchmesh/citeforge/internal/llm"
	"github.com/researchmesh/citeforge/internal/model"
	"github.com/researchmesh/citeforge/pkg/strutil"
)

// ErrExtractionFailed marks a paper whose LLM response could not be
// parsed even after the one constrained-prompt retry (spec §4.7); the
// caller excludes the paper from downstream synthesis.
var ErrExtractionFailed = errors.New("evidence: extraction_failed")

type rawSpan struct {
	Field      string  `json:"field"`
	Snippet    string  `json:"snippet"`
	Confidence float64 `json:"confidence"`
}

type rawNumericResult struct {
	Dataset   string `json:"dataset"`
	Metric    string `json:"metric"`
	Direction int    `json:"direction"`
}

type rawCard struct {
	Problem        string             `json:"problem"`
	Method         string             `json:"method"`
	Results        string             `json:"results"`
	Limitations    string             `json:"limitations"`
	Datasets       []string           `json:"datasets"`
	Metrics        []string           `json:"metrics"`
	NumericResults []rawNumericResult `json:"numeric_results"`
	Spans          []rawSpan          `json:"spans"`
}

// Extract produces a StudyCard and its verified EvidenceSpans for one
// paper, given the source text to extract from (full text, or
// abstract if full text is unavailable).
func Extract(ctx context.Context, capability llm.Capability, paper *model.Paper, sourceText, sourceURL string) (*model.StudyCard, []*model.EvidenceSpan, error) {
	raw, err := extractOnce(ctx, capability, sourceText, "")
	if err != nil {
		raw, err = extractOnce(ctx, capability, sourceText, retryReminder)
		if err != nil {
			return nil, nil, ErrExtractionFailed
		}
	}

	spans := verifyAndBuildSpans(paper.ID, sourceText, sourceURL, raw.Spans)
	card := buildCard(paper.ID, raw, spans)
	return card, spans, nil
}

// retryReminder is appended to the system prompt on the one retry after
// an unparseable response.
const retryReminder = "Your previous answer could not be parsed. Respond with exactly one JSON " +
	"object with the fields above and nothing else: no prose, no markdown fences."

func extractOnce(ctx context.Context, capability llm.Capability, sourceText, reminder string) (*rawCard, error) {
	system := "Extract a structured study card from the text. Output JSON with fields: " +
		"problem, method, results, limitations, datasets (array), metrics (array), " +
		"numeric_results (array of {dataset, metric, direction}, where direction is 1 if " +
		"the reported result is an improvement/higher value and -1 if it is a " +
		"degradation/lower value, only for (dataset, metric) pairs the text actually " +
		"reports a number for), and spans (array of {field, snippet, confidence}), where " +
		"field is one of problem|method|dataset|metric|result|limitation|other and every " +
		"snippet is a VERBATIM substring copied exactly from the text. Leave a field empty " +
		"rather than inventing content not present in the text."
	if reminder != "" {
		system += " " + reminder
	}

	out, err := capability.Generate(ctx, llm.Request{System: system, Prompt: sourceText, JSONMode: true})
	if err != nil {
		return nil, err
	}

	clean := strutil.StripMarkdownFence(out)
	var raw rawCard
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return nil, fmt.Errorf("evidence: parse card: %w", err)
	}
	return &raw, nil
}

// verifyAndBuildSpans keeps only spans whose snippet is a verbatim
// substring of sourceText, builds deterministic ids, and merges
// duplicate span ids by keeping the higher-confidence copy (spec
// §4.7).
func verifyAndBuildSpans(paperID, sourceText, sourceURL string, raw []rawSpan) []*model.EvidenceSpan {
	byID := map[string]*model.EvidenceSpan{}
	order := []string{}

	for _, r := range raw {
		if !strings.Contains(sourceText, r.Snippet) {
			continue
		}
		idx := strings.Index(sourceText, r.Snippet)
		charStart := idx
		charEnd := idx + len(r.Snippet)
		loc := model.Locator{CharStart: &charStart, CharEnd: &charEnd}

		span := model.NewEvidenceSpan(paperID, model.FieldTag(r.Field), r.Snippet, loc, r.Confidence, sourceURL)
		existing, ok := byID[span.ID]
		if !ok {
			byID[span.ID] = span
			order = append(order, span.ID)
			continue
		}
		if span.Confidence > existing.Confidence {
			byID[span.ID] = span
		}
	}

	out := make([]*model.EvidenceSpan, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}

// buildCard assembles the StudyCard, dropping any field whose raw
// value has no supporting span with the matching field tag (spec
// §4.7: "each populated field must have at least one supporting
// span").
func buildCard(paperID string, raw *rawCard, spans []*model.EvidenceSpan) *model.StudyCard {
	hasField := map[model.FieldTag]bool{}
	spanIDs := make([]string, 0, len(spans))
	for _, s := range spans {
		hasField[s.Field] = true
		spanIDs = append(spanIDs, s.ID)
	}

	card := &model.StudyCard{
		ID:              model.NewID(),
		PaperID:         paperID,
		EvidenceSpanIDs: spanIDs,
	}
	if hasField[model.FieldProblem] {
		card.Problem = raw.Problem
	}
	if hasField[model.FieldMethod] {
		card.Method = raw.Method
	}
	if hasField[model.FieldResult] {
		card.Results = raw.Results
	}
	if hasField[model.FieldLimitation] {
		card.Limitations = raw.Limitations
	}
	if hasField[model.FieldDataset] {
		card.Datasets = raw.Datasets
	}
	if hasField[model.FieldMetric] {
		card.Metrics = raw.Metrics
	}
	card.NumericResults = verifyNumericResults(raw.NumericResults, card.Datasets, card.Metrics)
	return card
}

// verifyNumericResults keeps only the numeric results whose dataset
// and metric both have verified support (spec §4.7's "leave the field
// empty rather than fabricate" applies here too: a direction for a
// dataset/metric pair with no supporting span is dropped, not
// invented). This is the signal the gap miner's contradiction source
// (spec §4.8b/§4.10) compares across cards in the same theme.
func verifyNumericResults(raw []rawNumericResult, datasets, metrics []string) []model.NumericResult {
	if len(datasets) == 0 || len(metrics) == 0 {
		return nil
	}
	knownDataset := map[string]bool{}
	for _, d := range datasets {
		knownDataset[strutil.Normalize(d)] = true
	}
	knownMetric := map[string]bool{}
	for _, m := range metrics {
		knownMetric[strutil.Normalize(m)] = true
	}

	var out []model.NumericResult
	for _, r := range raw {
		if r.Direction != 1 && r.Direction != -1 {
			continue
		}
		dataset, metric := strutil.Normalize(r.Dataset), strutil.Normalize(r.Metric)
		if !knownDataset[dataset] || !knownMetric[metric] {
			continue
		}
		out = append(out, model.NumericResult{Dataset: dataset, Metric: metric, Direction: r.Direction})
	}
	return out
}
