package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type kind string

type item struct {
	kind kind
	id   int
}

func (i *item) Type() kind { return i.kind }

func TestRegistry_RegisterGetHas(t *testing.T) {
	r := New[kind, *item]()

	assert.False(t, r.Has("a"))
	_, ok := r.Get("a")
	assert.False(t, ok)

	a := &item{kind: "a", id: 1}
	r.Register(a)

	assert.True(t, r.Has("a"))
	got, ok := r.Get("a")
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_LastRegisterWins(t *testing.T) {
	r := New[kind, *item]()
	r.Register(&item{kind: "a", id: 1})
	r.Register(&item{kind: "b", id: 2})
	r.Register(&item{kind: "a", id: 3})

	got, _ := r.Get("a")
	assert.Equal(t, 3, got.id)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []kind{"a", "b"}, r.Types())
}

func TestRegistry_ListOrder(t *testing.T) {
	r := New[kind, *item]()
	for i, k := range []kind{"c", "a", "b"} {
		r.Register(&item{kind: k, id: i})
	}

	var kinds []kind
	for _, p := range r.List() {
		kinds = append(kinds, p.Type())
	}
	assert.Equal(t, []kind{"c", "a", "b"}, kinds)
}

func TestRegistry_Unregister(t *testing.T) {
	r := New[kind, *item]()
	r.Register(&item{kind: "a"})
	r.Register(&item{kind: "b"})

	assert.True(t, r.Unregister("a"))
	assert.False(t, r.Unregister("a"))
	assert.False(t, r.Has("a"))
	assert.Equal(t, []kind{"b"}, r.Types())

	r.Register(&item{kind: "a"})
	assert.Equal(t, []kind{"b", "a"}, r.Types())
}

func TestRegistry_Isolated(t *testing.T) {
	r1 := New[kind, *item]()
	r2 := New[kind, *item]()
	r1.Register(&item{kind: "a"})
	assert.False(t, r2.Has("a"))
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := New[kind, *item]()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Register(&item{kind: kind(fmt.Sprintf("k%d", i%5)), id: i})
		}()
		go func() {
			defer wg.Done()
			_ = r.List()
			_ = r.Has("k1")
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, r.Len())
}
