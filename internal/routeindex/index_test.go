package routeindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_ExactMatch(t *testing.T) {
	idx := New()
	idx.Store(Route{ID: 1, Method: "GET", Pattern: "/health"})

	r, err := idx.Lookup("GET", "/health")
	require.NoError(t, err)
	assert.Equal(t, uint(1), r.ID)
}

func TestLookup_ParameterisedRoute(t *testing.T) {
	idx := New()
	idx.Store(Route{ID: 7, Method: "GET", Pattern: "/api/users/:id"})

	r, err := idx.Lookup("GET", "/api/users/42")
	require.NoError(t, err)
	assert.Equal(t, uint(7), r.ID)

	_, err = idx.Lookup("GET", "/api/users/42/posts")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookup_NotFound(t *testing.T) {
	idx := New()
	_, err := idx.Lookup("GET", "/nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookup_MethodMismatch(t *testing.T) {
	idx := New()
	idx.Store(Route{ID: 1, Method: "GET", Pattern: "/users/:id"})
	_, err := idx.Lookup("POST", "/users/42")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookup_TieBreakAscendingID(t *testing.T) {
	idx := New()
	// Both match "/a/1": store higher id first to prove ascending tie-break
	// is independent of insertion order.
	idx.Store(Route{ID: 9, Method: "GET", Pattern: "/a/:x"})
	idx.Store(Route{ID: 3, Method: "GET", Pattern: "/:y/1"})

	r, err := idx.Lookup("GET", "/a/1")
	require.NoError(t, err)
	assert.Equal(t, uint(3), r.ID)
}

func TestStore_OverwriteByID(t *testing.T) {
	idx := New()
	idx.Store(Route{ID: 1, Method: "GET", Pattern: "/old"})
	idx.Store(Route{ID: 1, Method: "GET", Pattern: "/new"})

	_, err := idx.Lookup("GET", "/old")
	assert.ErrorIs(t, err, ErrNotFound)

	r, err := idx.Lookup("GET", "/new")
	require.NoError(t, err)
	assert.Equal(t, uint(1), r.ID)
}

func TestClearAndList(t *testing.T) {
	idx := New()
	idx.Store(Route{ID: 1, Method: "GET", Pattern: "/a"})
	idx.Store(Route{ID: 2, Method: "GET", Pattern: "/b/:id"})
	assert.Len(t, idx.List(), 2)

	idx.Clear()
	assert.Empty(t, idx.List())
	_, err := idx.Lookup("GET", "/a")
	assert.ErrorIs(t, err, ErrNotFound)
}
