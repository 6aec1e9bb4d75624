package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSimulated(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	c := NewSimulated(start)
	assert.Equal(t, start, c.Now())

	c.Advance(30 * time.Minute)
	assert.Equal(t, start.Add(30*time.Minute), c.Now())

	c.Advance(-time.Hour)
	assert.Equal(t, start.Add(30*time.Minute), c.Now(), "negative durations are ignored")

	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestReal(t *testing.T) {
	t.Parallel()

	before := time.Now()
	now := Real{}.Now()
	assert.False(t, now.Before(before))
}
