package containers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSortedKeys(t *testing.T) {
	m := map[uint16]string{3: "c", 1: "a", 2: "b"}
	assert.Equal(t, []uint16{1, 2, 3}, SortedKeys(m))
	assert.ElementsMatch(t, []string{"a", "b", "c"}, Values(m))
}

func TestStrMapper(t *testing.T) {
	assert.Equal(t, []string{"1ms", "2s"}, StrMapper([]time.Duration{time.Millisecond, 2 * time.Second}))
}

func TestMapFn(t *testing.T) {
	assert.Equal(t, []int{2, 4}, MapFn([]int{1, 2}, func(i int) int { return i * 2 }))
}

func TestSyncMap(t *testing.T) {
	var m SyncMap[int, *string]
	a, b := "a", "b"

	v, loaded := m.LoadOrStore(1, &a)
	assert.False(t, loaded)
	assert.Same(t, &a, v)

	v, loaded = m.LoadOrStore(1, &b)
	assert.True(t, loaded)
	assert.Same(t, &a, v)

	assert.False(t, m.CompareAndDelete(1, &b))
	assert.True(t, m.CompareAndDelete(1, &a))
	_, ok := m.Load(1)
	assert.False(t, ok)

	m.LoadOrStore(2, &b)
	m.Delete(2)
	_, ok = m.Load(2)
	assert.False(t, ok)
}
