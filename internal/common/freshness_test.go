package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsFresh(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.True(t, IsFresh(now.Add(-time.Minute), now, FreshnessFxRate))
	// An age of exactly the TTL still counts as fresh
	assert.True(t, IsFresh(now.Add(-FreshnessFxRate), now, FreshnessFxRate))
	assert.False(t, IsFresh(now.Add(-FreshnessFxRate-time.Second), now, FreshnessFxRate))
	assert.False(t, IsFresh(time.Time{}, now, FreshnessFxRate))
}
