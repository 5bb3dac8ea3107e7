package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRecyclesWithNewGeneration(t *testing.T) {
	p := NewPool()
	a := p.Create()
	require.False(t, a.IsZero())
	require.True(t, p.Alive(a))

	require.True(t, p.Destroy(a))
	assert.False(t, p.Alive(a))
	assert.False(t, p.Destroy(a), "stale destroy is ignored")

	b := p.Create()
	assert.Equal(t, a.Index(), b.Index())
	assert.NotEqual(t, a.Generation(), b.Generation())
	assert.True(t, p.Alive(b))
	assert.False(t, p.Alive(a))
	assert.Equal(t, 1, p.Len())
}

func TestSlotsStaleLookupMisses(t *testing.T) {
	s := NewSlots[string]()
	id := s.Insert("a.lua")
	v, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, "a.lua", v)

	_, ok = s.Remove(id)
	require.True(t, ok)

	id2 := s.Insert("b.lua")
	_, ok = s.Get(id)
	assert.False(t, ok)
	v, ok = s.Get(id2)
	require.True(t, ok)
	assert.Equal(t, "b.lua", v)
	assert.Equal(t, 1, s.Len())
}

func TestWorldFlushOrder(t *testing.T) {
	w := NewWorld()
	a, b, c := w.CreateEntity(), w.CreateEntity(), w.CreateEntity()

	w.MarkForDestruction(c)
	w.MarkForDestruction(a)
	w.MarkForDestruction(c)
	assert.True(t, w.Marked(a))
	assert.False(t, w.Marked(b))

	var released []ID
	w.FlushDestroyQueue(func(id ID) { released = append(released, id) })
	assert.Equal(t, []ID{c, a}, released)
	assert.False(t, w.Alive(a))
	assert.True(t, w.Alive(b))
	assert.Equal(t, 1, w.Count())
}
