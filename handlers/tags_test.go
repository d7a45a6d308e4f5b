package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitTags("a, b, c"))
	assert.Equal(t, []string{}, splitTags(""))
	assert.Equal(t, []string{"go"}, splitTags("go"))
	// only the exact separator splits
	assert.Equal(t, []string{"a,b", "c"}, splitTags("a,b, c"))
}

func TestDistinctTags(t *testing.T) {
	lists := [][]string{{"x"}, {"y"}, {"x", "z"}, {}, {"w"}}
	assert.Equal(t, []string{"x", "y", "z", "w"}, distinctTags(lists, 5))
	assert.Equal(t, []string{"x", "y"}, distinctTags(lists, 2))

	many := [][]string{{"a", "b", "c"}, {"d", "e", "f"}}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, distinctTags(many, 5))

	assert.Equal(t, []string{}, distinctTags(nil, 5))
}
