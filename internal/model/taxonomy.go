package model

import "github.com/researchmesh/citeforge/pkg/ordered"

// Dimension is a (dataset, metric)-shaped column of the taxonomy matrix.
// Either field may be empty when the matrix is indexed by dataset-only
// or metric-only columns (the gap miner and comparative-table writer
// both query single-dimension slices).
type Dimension struct {
	Dataset string `json:"dataset,omitempty"`
	Metric  string `json:"metric,omitempty"`
}

// Cell lists the study cards populating one (theme, dimension) pair.
type Cell struct {
	CardIDs []string `json:"card_ids"`
}

// TaxonomyMatrix is the themes x dimensions analytical backbone (spec
// §3, §4.8). Row and column order is preserved via ordered.KV so
// serialization is deterministic across runs with identical inputs.
type TaxonomyMatrix struct {
	SessionID string                                    `json:"session_id"`
	Themes    []string                                   `json:"themes"`
	Rows      *ordered.KV[string, *ordered.KV[Dimension, *Cell]] `json:"-"`
}

// NewTaxonomyMatrix creates an empty matrix for a session.
func NewTaxonomyMatrix(sessionID string) *TaxonomyMatrix {
	return &TaxonomyMatrix{
		SessionID: sessionID,
		Rows:      ordered.New[string, *ordered.KV[Dimension, *Cell]](),
	}
}

// Add records that cardID populates (theme, dim).
func (t *TaxonomyMatrix) Add(theme string, dim Dimension, cardID string) {
	row, ok := t.Rows.Get(theme)
	if !ok {
		row = ordered.New[Dimension, *Cell]()
		t.Rows.Put(theme, row)
		t.Themes = append(t.Themes, theme)
	}
	cell, ok := row.Get(dim)
	if !ok {
		cell = &Cell{}
		row.Put(dim, cell)
	}
	cell.CardIDs = append(cell.CardIDs, cardID)
}

// Cell returns the cell for (theme, dim), or nil if empty.
func (t *TaxonomyMatrix) Cell(theme string, dim Dimension) *Cell {
	row, ok := t.Rows.Get(theme)
	if !ok {
		return nil
	}
	cell, _ := row.Get(dim)
	return cell
}

// ThemeCardCount returns the total number of distinct cards in a theme
// across every dimension, used to decide whether a hole (spec §4.8)
// qualifies: a zero cell only counts as a hole if the theme itself has
// >= 3 cards overall.
func (t *TaxonomyMatrix) ThemeCardCount(theme string) int {
	row, ok := t.Rows.Get(theme)
	if !ok {
		return 0
	}
	seen := make(map[string]struct{})
	row.ForEach(func(_ Dimension, c *Cell) {
		for _, id := range c.CardIDs {
			seen[id] = struct{}{}
		}
	})
	return len(seen)
}

// Dimensions returns the union of dimensions that appear in any row, in
// first-seen order.
func (t *TaxonomyMatrix) Dimensions() []Dimension {
	seen := map[Dimension]struct{}{}
	var out []Dimension
	t.Rows.ForEach(func(_ string, row *ordered.KV[Dimension, *Cell]) {
		for _, d := range row.Keys() {
			if _, ok := seen[d]; !ok {
				seen[d] = struct{}{}
				out = append(out, d)
			}
		}
	})
	return out
}
