package omap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intCompare(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func TestMapOrdersByCompare(t *testing.T) {
	m := New[int, string](intCompare)
	m.Put(5, "five")
	m.Put(1, "one")
	m.Put(3, "three")

	all := m.All()
	assert.Equal(t, []int{1, 3, 5}, []int{all[0].Key, all[1].Key, all[2].Key})
}

func TestMapGetAndDelete(t *testing.T) {
	m := New[int, string](intCompare)
	m.Put(1, "one")
	v, ok := m.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "one", v)

	assert.True(t, m.Delete(1))
	_, ok = m.Get(1)
	assert.False(t, ok)
	assert.False(t, m.Delete(1))
}

func TestMapRangeFilters(t *testing.T) {
	m := New[int, string](intCompare)
	for i := 0; i < 10; i++ {
		m.Put(i, "x")
	}
	got := m.Range(func(k int) bool { return k >= 3 && k <= 6 })
	assert.Len(t, got, 4)
}

func TestGetOrInsert(t *testing.T) {
	m := New[int, int](intCompare)
	v := m.GetOrInsert(1, func() int { return 42 })
	assert.Equal(t, 42, v)
	v2 := m.GetOrInsert(1, func() int { return 99 })
	assert.Equal(t, 42, v2)
}
