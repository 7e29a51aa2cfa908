package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchedule(t *testing.T) {
	start := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

	t.Run("valid window", func(t *testing.T) {
		s, err := NewSchedule(start, start.Add(48*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, start, s.Start())
		assert.Equal(t, start.Add(48*time.Hour), s.Completion())
		assert.False(t, s.HasActualCompletion())
	})

	t.Run("completion equal to start", func(t *testing.T) {
		_, err := NewSchedule(start, start)
		assert.ErrorIs(t, err, ErrInvalidSchedule)
	})

	t.Run("completion before start", func(t *testing.T) {
		_, err := NewSchedule(start, start.Add(-time.Hour))
		assert.ErrorIs(t, err, ErrInvalidSchedule)
	})
}

func TestRehydrateSchedule(t *testing.T) {
	start := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	completion := start.Add(24 * time.Hour)
	actual := start.Add(20 * time.Hour)

	s := RehydrateSchedule(start, completion, &actual)

	assert.True(t, s.HasActualCompletion())
	require.NotNil(t, s.ActualCompletion())
	assert.Equal(t, actual, *s.ActualCompletion())
}
