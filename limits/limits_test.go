package limits

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckOpenFiles(t *testing.T) {

	limit, needed, ok := CheckOpenFiles(10, 4)
	assert.EqualValues(t, 10+4+reservedFiles, needed)

	if known, isKnown := OpenFiles(); isKnown {
		assert.Equal(t, known, limit)
		assert.Equal(t, needed <= limit, ok)
	} else {
		assert.True(t, ok)
	}

	if known, isKnown := OpenFiles(); isKnown && known < 1<<40 {
		_, _, ok = CheckOpenFiles(1<<40, 1)
		assert.False(t, ok)
	}
}
