package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/researchmesh/citeforge/internal/model"
)

func TestDedup_ArxivIDExactMatch(t *testing.T) {
	papers := []*model.Paper{
		{ID: "a", ArxivID: "1234.5678", Title: "Paper One", Source: model.SourceArxiv},
		{ID: "b", ArxivID: "1234.5678", Title: "Paper One (mirror)", Source: model.SourceOpenAlex},
	}
	out := Dedup(papers)
	assert.Len(t, out, 1)
}

func TestDedup_DOIExactMatchCaseInsensitive(t *testing.T) {
	papers := []*model.Paper{
		{ID: "a", DOI: "10.1000/ABC", Title: "X"},
		{ID: "b", DOI: "10.1000/abc", Title: "X duplicate"},
	}
	out := Dedup(papers)
	assert.Len(t, out, 1)
}

func TestDedup_FingerprintMatch(t *testing.T) {
	papers := []*model.Paper{
		{ID: "a", Title: "Attention Is All You Need", Authors: []string{"Vaswani"}},
		{ID: "b", Title: "attention is all you need", Authors: []string{"vaswani"}},
	}
	out := Dedup(papers)
	assert.Len(t, out, 1)
}

func TestDedup_FuzzyTitleMatch(t *testing.T) {
	papers := []*model.Paper{
		{ID: "a", Title: "Deep Residual Learning for Image Recognition", Authors: []string{"He"}},
		{ID: "b", Title: "Deep Residual Learning for Image Recognitio", Authors: []string{"Xu"}},
	}
	out := Dedup(papers)
	assert.Len(t, out, 1)
}

func TestDedup_DistinctPapersSurvive(t *testing.T) {
	papers := []*model.Paper{
		{ID: "a", Title: "Graph Neural Networks", ArxivID: "1"},
		{ID: "b", Title: "Transformer Architectures", ArxivID: "2"},
	}
	out := Dedup(papers)
	assert.Len(t, out, 2)
}

func TestDedup_TieBreakPrefersMorePopulatedFields(t *testing.T) {
	sparse := &model.Paper{ID: "a", ArxivID: "1", Title: "Sparse"}
	rich := &model.Paper{ID: "b", ArxivID: "1", Title: "Sparse", Abstract: "full abstract", DOI: "10.1/x"}

	out := Dedup([]*model.Paper{sparse, rich})
	assert.Len(t, out, 1)
	assert.Equal(t, "b", out[0].ID)
}

func TestDedup_TieBreakPrefersSourcePriority(t *testing.T) {
	openalex := &model.Paper{ID: "a", ArxivID: "1", Title: "X", Source: model.SourceOpenAlex}
	arxiv := &model.Paper{ID: "b", ArxivID: "1", Title: "X", Source: model.SourceArxiv}

	out := Dedup([]*model.Paper{openalex, arxiv})
	assert.Len(t, out, 1)
	assert.Equal(t, "b", out[0].ID)
}
