package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidStatus(t *testing.T) {
	for _, status := range []string{"", "pending", "processing", "completed", "failed"} {
		assert.True(t, validStatus(status), "status %q", status)
	}
	for _, status := range []string{"bogus", "COMPLETED", "done"} {
		assert.False(t, validStatus(status), "status %q", status)
	}
}

func TestParseDateFlag(t *testing.T) {
	parsed, err := parseDateFlag("2024-01-15", "from")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), parsed)

	_, err = parseDateFlag("15/01/2024", "from")
	require.Error(t, err)
	assert.ErrorContains(t, err, "invalid date")
}
