package sets

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsert(t *testing.T) {
	s := New("a")
	require.True(t, s.Has("a"))
	require.False(t, s.Insert("a"))
	require.True(t, s.Insert("b"))
	require.Len(t, s, 2)
}

func TestUnique(t *testing.T) {
	require.Equal(t, []string{"go", "Go", "web"}, Unique([]string{"go", "Go", "go", "web", "Go"}))
	require.Empty(t, Unique[int](nil))
}
