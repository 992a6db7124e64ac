// Package screening implements the screener of spec §4.5: batches of
// papers are sent to the LLM for a tier/reason/rationale/relevance
// judgment, with the paper_id echoed back in each entry to prevent
// cross-batch misalignment, and a fail-open degrade policy on parse
// failure.
//
// Grounded on Tangerg-lynx/ai/evaluation's batched Evaluator shape
// (one call, typed request/response), with tolerant parsing via
// tidwall/gjson as the pack's JSON-handling library of choice (see
// ai/model/converter/json.go) in place of the teacher's strict
// encoding/json StructuredParser, since a screening batch response
// must survive partial malformation without failing the whole batch.
package screening

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/researchmesh/citeforge/internal/llm"
	"github.com/researchmesh/citeforge/internal/model"
	"github.com/researchmesh/citeforge/pkg/strutil"
)

// DefaultBatchSize is the configurable batch size default (spec §4.5).
const DefaultBatchSize = 15

type batchItem struct {
	ID       string
	Title    string
	Abstract string
}

// Screen screens every paper in papers against topic, in batches of
// batchSize, returning one ScreeningRecord per paper.
func Screen(ctx context.Context, capability llm.Capability, sessionID, topic string, papers []*model.Paper, batchSize int) ([]*model.ScreeningRecord, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var records []*model.ScreeningRecord
	for start := 0; start < len(papers); start += batchSize {
		end := start + batchSize
		if end > len(papers) {
			end = len(papers)
		}
		batch := papers[start:end]
		if err := ctx.Err(); err != nil {
			return records, err
		}
		recs, err := screenBatch(ctx, capability, sessionID, topic, batch)
		if err != nil {
			return records, err
		}
		records = append(records, recs...)
	}
	return records, nil
}

func screenBatch(ctx context.Context, capability llm.Capability, sessionID, topic string, batch []*model.Paper) ([]*model.ScreeningRecord, error) {
	items := make([]batchItem, len(batch))
	for i, p := range batch {
		items[i] = batchItem{ID: p.ID, Title: p.Title, Abstract: p.Abstract}
	}

	prompt := buildBatchPrompt(topic, items)
	out, err := capability.Generate(ctx, llm.Request{
		System:   "You are a systematic-review screener. Respond with a JSON array only.",
		Prompt:   prompt,
		JSONMode: true,
	})
	if err != nil {
		return degradeAll(sessionID, batch), nil
	}

	clean := strutil.StripMarkdownFence(out)
	parsed := gjson.Parse(clean)
	if !parsed.IsArray() {
		return degradeAll(sessionID, batch), nil
	}

	byID := map[string]gjson.Result{}
	parsed.ForEach(func(_, entry gjson.Result) bool {
		id := entry.Get("paper_id").String()
		if id != "" {
			byID[id] = entry
		}
		return true
	})

	records := make([]*model.ScreeningRecord, 0, len(batch))
	for _, p := range batch {
		entry, ok := byID[p.ID]
		if !ok {
			records = append(records, degradeOne(sessionID, p))
			continue
		}
		records = append(records, &model.ScreeningRecord{
			SessionID:  sessionID,
			PaperID:    p.ID,
			Tier:       model.Tier(strings.ToLower(entry.Get("tier").String())),
			Reason:     model.ReasonCode(entry.Get("reason_code").String()),
			Rationale:  entry.Get("rationale").String(),
			Relevance:  entry.Get("scored_relevance").Float(),
		})
	}
	return records, nil
}

// degradeAll/degradeOne implement the fail-open policy of spec §4.5:
// on parse failure, every paper in the batch is marked tier=core,
// reason=parse_failure so the pipeline never silently drops work.
func degradeAll(sessionID string, batch []*model.Paper) []*model.ScreeningRecord {
	out := make([]*model.ScreeningRecord, len(batch))
	for i, p := range batch {
		out[i] = degradeOne(sessionID, p)
	}
	return out
}

func degradeOne(sessionID string, p *model.Paper) *model.ScreeningRecord {
	return &model.ScreeningRecord{
		SessionID: sessionID,
		PaperID:   p.ID,
		Tier:      model.TierCore,
		Reason:    model.ReasonParseFailure,
		Rationale: "screening batch response could not be parsed; defaulted to include",
	}
}

func buildBatchPrompt(topic string, items []batchItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\nFor each paper below, output a JSON array entry with "+
		"paper_id, tier (core|background|exclude), reason_code "+
		"(relevant|out_of_scope|survey_only|missing_eval|duplicate_work|insufficient_detail), "+
		"rationale (one line), scored_relevance (0-10).\n\n", topic)
	for _, it := range items {
		fmt.Fprintf(&b, "paper_id: %s\ntitle: %s\nabstract: %s\n\n", it.ID, it.Title, it.Abstract)
	}
	return b.String()
}
