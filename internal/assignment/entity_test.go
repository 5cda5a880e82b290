package assignment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignment_StampOnce(t *testing.T) {
	first := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)
	a := &Assignment{}

	assert.True(t, a.MarkStarted(first))
	assert.False(t, a.MarkStarted(later))
	require.NotNil(t, a.StartAt)
	assert.Equal(t, first, *a.StartAt)

	assert.True(t, a.MarkCompleted(later))
	assert.False(t, a.MarkCompleted(later.Add(time.Hour)))
	assert.Equal(t, later, *a.CompletedAt)
}

func TestPriority_Valid(t *testing.T) {
	assert.True(t, PriorityLow.Valid())
	assert.True(t, PriorityMedium.Valid())
	assert.True(t, PriorityHigh.Valid())
	assert.False(t, Priority("urgent").Valid())
}
