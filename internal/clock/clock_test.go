package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedClock(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c := NewFixed(start)
	assert.Equal(t, start, c.Now(context.Background()))

	c.Advance(90 * time.Minute)
	assert.Equal(t, start.Add(90*time.Minute), c.Now(context.Background()))
}

func TestSystemClockIsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, SystemClock{}.Now(context.Background()).Location())
}
