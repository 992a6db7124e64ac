package cluster

import (
	"slices"

	"github.com/researchmesh/citeforge/internal/model"
	"github.com/researchmesh/citeforge/pkg/strutil"
)

// BuildTaxonomy enumerates the union of normalized dataset and metric
// labels across themes and populates the themes x dimensions matrix
// (spec §4.8).
func BuildTaxonomy(sessionID string, themes []Theme) *model.TaxonomyMatrix {
	matrix := model.NewTaxonomyMatrix(sessionID)

	for _, theme := range themes {
		for _, card := range theme.Cards {
			for _, dataset := range card.Datasets {
				matrix.Add(theme.Name, model.Dimension{Dataset: strutil.Normalize(dataset)}, card.ID)
			}
			for _, metric := range card.Metrics {
				matrix.Add(theme.Name, model.Dimension{Metric: strutil.Normalize(metric)}, card.ID)
			}
			for _, dataset := range card.Datasets {
				for _, metric := range card.Metrics {
					matrix.Add(theme.Name, model.Dimension{
						Dataset: strutil.Normalize(dataset),
						Metric:  strutil.Normalize(metric),
					}, card.ID)
				}
			}
		}
	}
	return matrix
}

// Hole is a (theme, dimension) pair with zero cards in a theme that
// otherwise has at least MinClusterSize cards overall (spec §4.8a).
type Hole struct {
	Theme     string
	Dimension model.Dimension
}

// Holes reports every qualifying hole in matrix. The candidate
// dimensions are every dimension present in any row plus every
// (dataset, metric) pair formed from the dataset and metric labels of
// that union, so a pair that no card reports is still a candidate.
func Holes(matrix *model.TaxonomyMatrix) []Hole {
	var holes []Hole
	dims := matrix.Dimensions()
	var datasets, metrics []string
	for _, d := range dims {
		if d.Metric == "" {
			datasets = append(datasets, d.Dataset)
		} else if d.Dataset == "" {
			metrics = append(metrics, d.Metric)
		}
	}
	for _, ds := range datasets {
		for _, m := range metrics {
			if pair := (model.Dimension{Dataset: ds, Metric: m}); !slices.Contains(dims, pair) {
				dims = append(dims, pair)
			}
		}
	}
	for _, theme := range matrix.Themes {
		if matrix.ThemeCardCount(theme) < MinClusterSize {
			continue
		}
		for _, dim := range dims {
			cell := matrix.Cell(theme, dim)
			if cell == nil || len(cell.CardIDs) == 0 {
				holes = append(holes, Hole{Theme: theme, Dimension: dim})
			}
		}
	}
	return holes
}

// NumericResult is one card's reported direction for a (dataset,
// metric) pair; Direction is +1 (improvement/higher) or -1
// (degradation/lower) as judged by the caller.
type NumericResult struct {
	CardID    string
	Dimension model.Dimension
	Direction int
}

// Contradiction is two cards in the same theme reporting conflicting
// directions for the same (dataset, metric) pair (spec §4.8b).
type Contradiction struct {
	Theme      string
	Dimension  model.Dimension
	CardIDA    string
	CardIDB    string
}

// Contradictions scans results grouped per theme for conflicting
// directions on the same dimension.
func Contradictions(theme string, results []NumericResult) []Contradiction {
	byDim := map[model.Dimension][]NumericResult{}
	for _, r := range results {
		byDim[r.Dimension] = append(byDim[r.Dimension], r)
	}

	var out []Contradiction
	for dim, rs := range byDim {
		for i := 0; i < len(rs); i++ {
			for j := i + 1; j < len(rs); j++ {
				if rs[i].Direction != 0 && rs[j].Direction != 0 && rs[i].Direction != rs[j].Direction {
					out = append(out, Contradiction{
						Theme:     theme,
						Dimension: dim,
						CardIDA:   rs[i].CardID,
						CardIDB:   rs[j].CardID,
					})
				}
			}
		}
	}
	return out
}
