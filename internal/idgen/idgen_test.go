package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextIsStrictlyIncreasing(t *testing.T) {
	require.NoError(t, Init(7))

	prev := Next()
	for i := 0; i < 5000; i++ {
		id := Next()
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestInitRejectsOutOfRangeNode(t *testing.T) {
	assert.Error(t, Init(-1))
	assert.Error(t, Init(1024))
}

func TestParse(t *testing.T) {
	id := Next()

	parsed, err := Parse(Format(id))
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	for _, bad := range []string{"", "abc", "12x", "-5", "0"} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}
