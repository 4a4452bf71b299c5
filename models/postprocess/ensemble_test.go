package postprocess

import (
	"testing"

	"github.com/nvr-ai/go-humansort/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsemble_Empty(t *testing.T) {
	assert.Nil(t, Ensemble(nil, nil, 0.5))
}

func TestEnsemble_SingleSourceIsIdentity(t *testing.T) {
	a := []Detection{
		{Box: images.Rect{X1: 0, Y1: 0, X2: 50, Y2: 50}, Score: 0.91, Class: 0, Source: SourceA},
		{Box: images.Rect{X1: 200, Y1: 200, X2: 260, Y2: 300}, Score: 0.55, Class: 0, Source: SourceA},
		{Box: images.Rect{X1: 10, Y1: 10, X2: 40, Y2: 60}, Score: 0.73, Class: 16, Source: SourceA},
	}

	fused := Ensemble(a, nil, 0.55)

	require.Len(t, fused, len(a))
	for i, f := range fused {
		assert.Equal(t, a[i].Box, f.Box)
		assert.Equal(t, a[i].Score, f.Score)
		assert.Equal(t, a[i].Class, f.Class)
		assert.Equal(t, SourceFused, f.Source)
	}
}

func TestEnsemble_ClassesNeverInteract(t *testing.T) {
	box := images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}
	a := []Detection{{Box: box, Score: 0.9, Class: 2, Source: SourceA}}
	b := []Detection{{Box: box, Score: 0.8, Class: 0, Source: SourceB}}

	fused := Ensemble(a, b, 0.1)

	require.Len(t, fused, 2)
	assert.Equal(t, 0, fused[0].Class)
	assert.Equal(t, 0.8, fused[0].Score)
	assert.Equal(t, 2, fused[1].Class)
	assert.Equal(t, 0.9, fused[1].Score)
}

func TestEnsemble_FusesAcrossSources(t *testing.T) {
	a := []Detection{{Box: images.Rect{X1: 0, Y1: 0, X2: 100, Y2: 100}, Score: 0.9, Class: 0, Source: SourceA}}
	b := []Detection{{Box: images.Rect{X1: 10, Y1: 10, X2: 110, Y2: 110}, Score: 0.6, Class: 0, Source: SourceB}}

	fused := Ensemble(a, b, 0.55)

	require.Len(t, fused, 1)
	assert.InDelta(t, 0.75, fused[0].Score, 1e-9)
	assert.InDelta(t, 4.0, fused[0].Box.X1, 1e-9)
	assert.Equal(t, SourceFused, fused[0].Source)
}

func TestFilters(t *testing.T) {
	in := []Detection{
		{Score: 0.2, Class: 0},
		{Score: 0.5, Class: 1},
		{Score: 0.9, Class: 0},
	}

	byScore := FilterByScore(in, 0.5)
	require.Len(t, byScore, 2)
	assert.Equal(t, 0.5, byScore[0].Score)

	byClass := FilterByClass(in, 0)
	require.Len(t, byClass, 2)
	assert.Equal(t, 0.9, byClass[1].Score)

	tagged := Tag(in, SourceB)
	for _, d := range tagged {
		assert.Equal(t, SourceB, d.Source)
	}
	assert.Equal(t, SourceA, in[0].Source, "Tag must not modify its input")
}

func TestSource_String(t *testing.T) {
	assert.Equal(t, "A", SourceA.String())
	assert.Equal(t, "B", SourceB.String())
	assert.Equal(t, "FUSED", SourceFused.String())
	assert.Equal(t, "Source(7)", Source(7).String())
}
