package pdfload

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchmesh/citeforge/internal/cache"
	"github.com/researchmesh/citeforge/internal/model"
)

func TestLoader_BlockedDomainSkipped(t *testing.T) {
	l := NewLoader(nil, nil, cache.New())
	res, err := l.Load(context.Background(), "https://www.sciencedirect.com/x")
	require.NoError(t, err)
	assert.True(t, res.Unavailable)
}

func TestLoader_FetchAndParseBuildsPageMap(t *testing.T) {
	fetch := func(_ context.Context, _ string) ([]byte, error) { return []byte("raw-bytes"), nil }
	parse := func(_ []byte) (*Parsed, error) {
		return &Parsed{Pages: []PageText{{Text: "page one text "}, {Text: "page two text"}}}, nil
	}
	l := NewLoader(fetch, parse, cache.New())

	res, err := l.Load(context.Background(), "https://arxiv.org/pdf/1234")
	require.NoError(t, err)
	require.False(t, res.Unavailable)
	assert.Equal(t, "page one text page two text", res.FullText)
	require.Len(t, res.PageMap, 2)
	assert.Equal(t, 0, res.PageMap[0].CharStart)
	assert.Equal(t, len("page one text "), res.PageMap[0].CharEnd)
	assert.Equal(t, res.PageMap[0].CharEnd, res.PageMap[1].CharStart)
	assert.NotEmpty(t, res.PDFHash)
}

func TestLoader_DegradesOnParseFailure(t *testing.T) {
	fetch := func(_ context.Context, _ string) ([]byte, error) { return []byte("x"), nil }
	parse := func(_ []byte) (*Parsed, error) { return nil, assertErr }
	l := NewLoader(fetch, parse, cache.New())

	res, err := l.Load(context.Background(), "https://arxiv.org/pdf/1234")
	require.NoError(t, err)
	assert.True(t, res.Unavailable)
}

func TestLoader_CacheHitSkipsFetch(t *testing.T) {
	calls := 0
	fetch := func(_ context.Context, _ string) ([]byte, error) {
		calls++
		return []byte("raw-bytes"), nil
	}
	parse := func(_ []byte) (*Parsed, error) {
		return &Parsed{Pages: []PageText{{Text: "text"}}}, nil
	}
	store := cache.New()
	l := NewLoader(fetch, parse, store)

	_, err := l.Load(context.Background(), "https://arxiv.org/pdf/1234")
	require.NoError(t, err)
	_, err = l.Load(context.Background(), "https://arxiv.org/pdf/1234")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestResolveSnippet_LocatesPage(t *testing.T) {
	fullText := "page one text page two text"
	pageMap := []model.PageRange{
		{PageNumber: 1, CharStart: 0, CharEnd: 14},
		{PageNumber: 2, CharStart: 14, CharEnd: len(fullText)},
	}

	loc, ok := ResolveSnippet(fullText, pageMap, "two text")
	require.True(t, ok)
	require.NotNil(t, loc.Page)
	assert.Equal(t, 2, *loc.Page)
}

func TestResolveSnippet_NotFound(t *testing.T) {
	_, ok := ResolveSnippet("page one text", nil, "nonexistent snippet")
	assert.False(t, ok)
}

var assertErr = errBoom{}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
