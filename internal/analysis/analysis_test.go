package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeight(t *testing.T) {
	assert.Equal(t, float64(8), Weight("underage"))
	assert.Equal(t, float64(5), Weight("scam"))
	assert.Equal(t, float64(1), Weight("spam"))
}

func TestWeightUnknownCategory(t *testing.T) {
	assert.Equal(t, float64(1), Weight("something_new"))
	assert.Equal(t, float64(1), Weight(""))
}
