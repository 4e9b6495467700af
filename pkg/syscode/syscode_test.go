package syscode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextSiblingSeedsWhenEmpty(t *testing.T) {
	code, err := NextSibling("0000", "", 4)
	require.NoError(t, err)
	assert.Equal(t, "00000000", code)
}

func TestNextSiblingIncrements(t *testing.T) {
	code, err := NextSibling("0000", "00000000", 4)
	require.NoError(t, err)
	assert.Equal(t, "00000001", code)
}

func TestNextSiblingCarries(t *testing.T) {
	code, err := NextSibling("", "000z", 4)
	require.NoError(t, err)
	assert.Equal(t, "0010", code)
}

func TestNextSiblingSaturates(t *testing.T) {
	_, err := NextSibling("", "zzzz", 4)
	require.Error(t, err)
}

func TestAllocateSiblingSequenceIsStrictlyIncreasing(t *testing.T) {
	// simulate N successive allocations the way the allocator would, each
	// one folding the prior result back in as maxSibling.
	parent := "0000"
	maxSibling := ""
	var codes []string
	for i := 0; i < 5; i++ {
		code, err := NextSibling(parent, maxSibling, 4)
		require.NoError(t, err)
		codes = append(codes, code)
		maxSibling = code
	}
	for i := 1; i < len(codes); i++ {
		assert.Less(t, codes[i-1], codes[i])
	}
	assert.Len(t, codes, 5)
	seen := map[string]bool{}
	for _, c := range codes {
		assert.False(t, seen[c])
		seen[c] = true
	}
}

func TestParentSysCodesDeepestFirst(t *testing.T) {
	ancestors := ParentSysCodes("0000000100020003", 4)
	assert.Equal(t, []string{"000000010002", "00000001", "0000"}, ancestors)
}

func TestIsDescendant(t *testing.T) {
	assert.True(t, IsDescendant("00000000", "0000"))
	assert.False(t, IsDescendant("0000", "0000"))
	assert.False(t, IsDescendant("0001", "0000"))
}

func TestValidateFormat(t *testing.T) {
	require.NoError(t, ValidateFormat("00000000", 4))
	require.NoError(t, ValidateFormat("", 4))
	require.Error(t, ValidateFormat("000", 4))
	require.Error(t, ValidateFormat("ZZZZ", 4))
	require.Error(t, ValidateFormat("0000", 1))
}

func TestDepth(t *testing.T) {
	assert.Equal(t, 0, Depth("", 4))
	assert.Equal(t, 2, Depth("00000000", 4))
}
