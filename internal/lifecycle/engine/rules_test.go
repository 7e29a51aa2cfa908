package engine

import (
	"testing"
	"time"

	"github.com/taskflow-io/taskflow/internal/lifecycle/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

var baseNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func itemWith(t *testing.T, status domain.WorkStatus, start, completion time.Time, actual *time.Time) domain.WorkItem {
	t.Helper()
	sched := domain.RehydrateSchedule(start, completion, actual)
	return domain.RehydrateTask(uuid.New(), uuid.New(), "item", status, sched, start, start)
}

func TestNextStatus_DateDriven(t *testing.T) {
	day := 24 * time.Hour
	tests := []struct {
		name       string
		status     domain.WorkStatus
		start      time.Time
		completion time.Time
		actual     *time.Time
		want       domain.WorkStatus
	}{
		{
			name:   "pending within window becomes ongoing",
			status: domain.StatusPending,
			start:  baseNow.Add(-time.Hour), completion: baseNow.Add(day),
			want: domain.StatusOnGoing,
		},
		{
			name:   "pending before start stays pending",
			status: domain.StatusPending,
			start:  baseNow.Add(time.Hour), completion: baseNow.Add(2 * day),
			want: domain.StatusPending,
		},
		{
			name:   "pending never started and already overdue goes straight to delayed",
			status: domain.StatusPending,
			start:  baseNow.Add(-2 * day), completion: baseNow.Add(-day),
			want: domain.StatusDelayed,
		},
		{
			name:   "ongoing past completion becomes delayed",
			status: domain.StatusOnGoing,
			start:  baseNow.Add(-2 * day), completion: baseNow.Add(-time.Minute),
			want: domain.StatusDelayed,
		},
		{
			name:   "ongoing within window stays ongoing",
			status: domain.StatusOnGoing,
			start:  baseNow.Add(-day), completion: baseNow.Add(day),
			want: domain.StatusOnGoing,
		},
		{
			name:   "delayed stays delayed",
			status: domain.StatusDelayed,
			start:  baseNow.Add(-2 * day), completion: baseNow.Add(-day),
			want: domain.StatusDelayed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := itemWith(t, tt.status, tt.start, tt.completion, tt.actual)
			assert.Equal(t, tt.want, NextStatus(item, baseNow))
		})
	}
}

func TestNextStatus_ActualCompletionWins(t *testing.T) {
	actual := baseNow.Add(-time.Hour)

	// Even an overdue item completes once an actual completion is recorded.
	item := itemWith(t, domain.StatusOnGoing,
		baseNow.Add(-48*time.Hour), baseNow.Add(-24*time.Hour), &actual)

	assert.Equal(t, domain.StatusCompleted, NextStatus(item, baseNow))
}

func TestNextStatus_Boundaries(t *testing.T) {
	start := baseNow
	completion := baseNow.Add(24 * time.Hour)

	t.Run("now equals start enters ongoing", func(t *testing.T) {
		item := itemWith(t, domain.StatusPending, start, completion, nil)
		assert.Equal(t, domain.StatusOnGoing, NextStatus(item, start))
	})

	t.Run("now equals completion is still ongoing", func(t *testing.T) {
		item := itemWith(t, domain.StatusOnGoing, start, completion, nil)
		assert.Equal(t, domain.StatusOnGoing, NextStatus(item, completion))
	})

	t.Run("strictly after completion is delayed", func(t *testing.T) {
		item := itemWith(t, domain.StatusOnGoing, start, completion, nil)
		assert.Equal(t, domain.StatusDelayed, NextStatus(item, completion.Add(time.Nanosecond)))
	})
}

func TestNextStatus_TerminalStability(t *testing.T) {
	times := []time.Time{
		baseNow.Add(-365 * 24 * time.Hour),
		baseNow,
		baseNow.Add(365 * 24 * time.Hour),
	}

	for _, status := range []domain.WorkStatus{domain.StatusCompleted, domain.StatusCancelled} {
		for _, now := range times {
			item := itemWith(t, status, baseNow.Add(-time.Hour), baseNow.Add(time.Hour), nil)
			assert.Equal(t, status, NextStatus(item, now))
		}
	}
}

func TestNextStatus_Idempotent(t *testing.T) {
	item := itemWith(t, domain.StatusPending,
		baseNow.Add(-time.Hour), baseNow.Add(time.Hour), nil)

	first := NextStatus(item, baseNow)
	second := NextStatus(item, baseNow)

	assert.Equal(t, first, second)
	// And the item itself was not mutated.
	assert.Equal(t, domain.StatusPending, item.Status())
}
