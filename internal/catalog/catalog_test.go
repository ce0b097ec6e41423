package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBooks(t *testing.T) {
	all := Books()
	require.Len(t, all, 4)
	assert.Equal(t, "Harry Potter and the Philosopher's Stone", all[0].Title)
	assert.Equal(t, 260, all[3].Price)

	all[0].Title = "changed"
	assert.NotEqual(t, "changed", Books()[0].Title)
}

func TestFind(t *testing.T) {
	b, ok := Find(3)
	require.True(t, ok)
	assert.Equal(t, "Robert T. Kiyosaki", b.Author)

	_, ok = Find(99)
	assert.False(t, ok)
}

func TestSearch(t *testing.T) {
	assert.Len(t, Search("rowling"), 2)
	assert.Len(t, Search("DEEP"), 1)
	assert.Len(t, Search(""), 4)
	assert.Empty(t, Search("tolkien"))
}
