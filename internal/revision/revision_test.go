package revision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_Absolute(t *testing.T) {
	r, err := Normalize(3, 5)
	assert.NoError(t, err)
	assert.Equal(t, Revision(3), r)
}

func TestNormalize_AbsoluteOutOfRange(t *testing.T) {
	_, err := Normalize(6, 5)
	assert.Error(t, err)
}

func TestNormalize_Head(t *testing.T) {
	r, err := Normalize(0, 5)
	assert.NoError(t, err)
	assert.Equal(t, Revision(5), r)
}

func TestNormalize_Relative(t *testing.T) {
	r, err := Normalize(-2, 5)
	assert.NoError(t, err)
	assert.Equal(t, Revision(3), r)
}

func TestNormalize_RelativeOutOfRange(t *testing.T) {
	_, err := Normalize(-5, 5)
	assert.Error(t, err)
}

func TestEquivalent(t *testing.T) {
	assert.True(t, Equivalent(5, 0, 5))
	assert.True(t, Equivalent(-1, 4, 5))
	assert.False(t, Equivalent(3, 4, 5))
}
