package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var lines []string
	SetLogger(func(format string, v ...any) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	Logf("ingest: stored %d archives", 3)
	assert.Equal(t, []string{"ingest: stored 3 archives"}, lines)

	// nil installs a no-op, not a nil func.
	SetLogger(nil)
	assert.NotPanics(t, func() { Logf("bench monitor stopped") })
	assert.Len(t, lines, 1)
}

func TestLogfDefault(t *testing.T) {
	assert.NotNil(t, Logf)
}
