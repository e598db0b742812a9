package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable(t *testing.T) {
	t.Parallel()
	heap := NewHeap()
	key := heap.NewString("key")
	tbl := NewTable()

	_, ok := tbl.Get(key)
	assert.False(t, ok)
	assert.False(t, tbl.Has(key))

	assert.True(t, tbl.Set(key, Number(1)))
	assert.False(t, tbl.Set(key, Number(2)))
	val, ok := tbl.Get(key)
	assert.True(t, ok)
	assert.Equal(t, Number(2), val)
	assert.Equal(t, 1, tbl.Len())

	assert.True(t, tbl.Set(heap.NewString("other"), Null))
	keys := []string{}
	tbl.Each(func(k *String, _ Value) { keys = append(keys, k.Chars()) })
	assert.ElementsMatch(t, []string{"key", "other"}, keys)

	assert.True(t, tbl.Delete(key))
	assert.False(t, tbl.Delete(key))
	assert.False(t, tbl.Has(key))
	assert.Equal(t, 1, tbl.Len())
}
