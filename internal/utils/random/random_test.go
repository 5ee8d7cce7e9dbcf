package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntnBounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		v, err := Intn(5)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 5)
	}
}

func TestIntnRejectsNonPositive(t *testing.T) {
	_, err := Intn(0)
	assert.Error(t, err)
	_, err = Intn(-3)
	assert.Error(t, err)
}
