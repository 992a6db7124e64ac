// Package cluster implements the clusterer and taxonomy builder of
// spec §4.8: study cards are grouped into themes by embedding
// similarity over concatenated problem+method text, with a minimum
// cluster size of 3 and a catch-all "miscellaneous" theme for
// unassigned cards; the taxonomy builder then derives the themes x
// (dataset, metric) matrix plus holes and contradictions.
//
// Grounded on Tangerg-lynx/ai/model/embedding.Model's narrow
// text-to-vector contract, reduced to the single Embed method this
// pipeline needs; qdrant/go-client is wired as the optional
// large-corpus similarity backend via QdrantIndex, in place of the
// in-process cosine sweep.
package cluster

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/researchmesh/citeforge/internal/model"
	"github.com/researchmesh/citeforge/pkg/strutil"
)

// MinClusterSize is the minimum number of cards a theme must have to
// stand on its own (spec §4.8); smaller groups fold into miscellaneous.
const MinClusterSize = 3

// similarityThreshold is the cosine-similarity floor for two cards to
// join the same cluster.
const similarityThreshold = 0.75

// MiscellaneousTheme is the catch-all theme name for cards that do not
// join any qualifying cluster.
const MiscellaneousTheme = "miscellaneous"

// Embedder turns text into a vector. External collaborator (spec §1:
// "clustering embedding model choice" is out of core scope).
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// VectorIndex is an optional ANN backend for ClusterWithIndex, used in
// place of the brute-force cosine sweep once a corpus grows past what
// that sweep can resolve in one phase budget.
type VectorIndex interface {
	Upsert(ctx context.Context, id string, vector []float64) error
	Neighbors(ctx context.Context, id string, vector []float64, threshold float64, limit int) ([]string, error)
}

// buildNeighborSets resolves, for each card, the set of other card IDs
// within similarityThreshold. Without an index this falls back to the
// direct pairwise cosine comparison; with one, each card's neighbors
// come from an index lookup instead.
func buildNeighborSets(ctx context.Context, index VectorIndex, cards []*model.StudyCard, vectors [][]float64) ([]map[string]bool, error) {
	sets := make([]map[string]bool, len(cards))
	for i := range cards {
		sets[i] = map[string]bool{}
	}

	if index == nil {
		for i := range cards {
			for j := i + 1; j < len(cards); j++ {
				if cosineSimilarity(vectors[i], vectors[j]) >= similarityThreshold {
					sets[i][cards[j].ID] = true
					sets[j][cards[i].ID] = true
				}
			}
		}
		return sets, nil
	}

	for i, c := range cards {
		ids, err := index.Neighbors(ctx, c.ID, vectors[i], similarityThreshold, len(cards))
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			sets[i][id] = true
		}
	}
	return sets, nil
}

// Theme is one cluster: a name and the cards assigned to it.
type Theme struct {
	Name  string
	Cards []*model.StudyCard
}

// Cluster groups cards into themes using embedding similarity over
// each card's problem+method text, with an in-process O(n^2) cosine
// sweep.
func Cluster(ctx context.Context, embedder Embedder, cards []*model.StudyCard) ([]Theme, error) {
	return ClusterWithIndex(ctx, embedder, cards, nil)
}

// ClusterWithIndex is Cluster with an optional persistent VectorIndex.
// When index is non-nil, each card's vector is upserted into it and
// neighbor lookups replace the pairwise cosine sweep, so clustering
// scales past what an in-process double loop can do in one phase
// budget for large corpora (spec §4.8 treats the embedding/similarity
// backend as an external collaborator).
func ClusterWithIndex(ctx context.Context, embedder Embedder, cards []*model.StudyCard, index VectorIndex) ([]Theme, error) {
	if len(cards) == 0 {
		return nil, nil
	}

	vectors := make([][]float64, len(cards))
	for i, c := range cards {
		v, err := embedder.Embed(ctx, c.Problem+" "+c.Method)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
		if index != nil {
			if err := index.Upsert(ctx, c.ID, v); err != nil {
				return nil, err
			}
		}
	}

	neighborSets, err := buildNeighborSets(ctx, index, cards, vectors)
	if err != nil {
		return nil, err
	}

	assigned := make([]bool, len(cards))
	var groups [][]int

	for i := range cards {
		if assigned[i] {
			continue
		}
		group := []int{i}
		assigned[i] = true
		for j := i + 1; j < len(cards); j++ {
			if assigned[j] {
				continue
			}
			if neighborSets[i][cards[j].ID] {
				group = append(group, j)
				assigned[j] = true
			}
		}
		groups = append(groups, group)
	}

	var themes []Theme
	var misc []*model.StudyCard
	themeIdx := 0
	for _, g := range groups {
		if len(g) < MinClusterSize {
			for _, idx := range g {
				misc = append(misc, cards[idx])
			}
			continue
		}
		themeIdx++
		theme := Theme{Name: themeName(themeIdx, cards[g[0]])}
		for _, idx := range g {
			theme.Cards = append(theme.Cards, cards[idx])
		}
		themes = append(themes, theme)
	}
	if len(misc) > 0 {
		themes = append(themes, Theme{Name: MiscellaneousTheme, Cards: misc})
	}
	return themes, nil
}

func themeName(idx int, seed *model.StudyCard) string {
	words := strutil.SignificantTokens(seed.Problem)
	if len(words) == 0 {
		return themeFallbackName(idx)
	}
	if len(words) > 3 {
		words = words[:3]
	}
	return strings.Join(words, "-")
}

func themeFallbackName(idx int) string {
	return "theme-" + strconv.Itoa(idx)
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
