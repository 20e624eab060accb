package dag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, nodes []string, edges [][2]string) *Graph {
	t.Helper()
	g := New()
	for _, n := range nodes {
		g.AddNode(n)
	}
	for _, e := range edges {
		require.NoError(t, g.AddEdge(e[0], e[1]))
	}
	return g
}

func TestSort(t *testing.T) {
	tests := []struct {
		name  string
		nodes []string
		edges [][2]string
		want  []string
	}{
		{"no edges keeps insertion order", []string{"c", "a", "b"}, nil, []string{"c", "a", "b"}},
		{"chain", []string{"y", "x", "w"}, [][2]string{{"w", "x"}, {"x", "y"}}, []string{"w", "x", "y"}},
		{
			"diamond",
			[]string{"d", "b", "c", "a"},
			[][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}},
			[]string{"a", "b", "c", "d"},
		},
		{
			"independent nodes stay before later ones",
			[]string{"k", "r", "y"},
			[][2]string{{"r", "y"}},
			[]string{"k", "r", "y"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := build(t, tt.nodes, tt.edges).Sort()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSortCycle(t *testing.T) {
	g := build(t, []string{"c", "a", "b"}, [][2]string{{"a", "b"}, {"b", "a"}, {"a", "c"}})
	_, err := g.Sort()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCycle))

	var ce *CycleError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, []string{"a", "b", "a"}, ce.Path)
	assert.Contains(t, err.Error(), "a -> b -> a")
}

func TestSelfEdge(t *testing.T) {
	g := build(t, []string{"a"}, [][2]string{{"a", "a"}})
	_, err := g.Sort()
	assert.ErrorIs(t, err, ErrCycle)
}

func TestAddEdgeUnknownNode(t *testing.T) {
	g := New()
	g.AddNode("a")
	assert.Error(t, g.AddEdge("a", "b"))
	assert.Error(t, g.AddEdge("b", "a"))
}

func TestDependencies(t *testing.T) {
	g := build(t, []string{"a", "b", "c"}, [][2]string{{"b", "c"}, {"a", "c"}, {"a", "c"}})
	deps, err := g.Dependencies("c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, deps)
	assert.Equal(t, 3, g.Len())
	assert.True(t, g.Has("b"))
}
