package mocks

import (
	"context"
	"testing"
	"time"

	"github.com/phrazzld/taskwatch/internal/domain"
	"github.com/phrazzld/taskwatch/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockTaskStoreTransitions(t *testing.T) {
	ctx := context.Background()
	s := NewMockTaskStore()

	task, err := s.Create(ctx, domain.TaskSpec{Description: "Run", At: domain.MustParseTimeOfDay("06:30")})
	require.NoError(t, err)

	won, _ := s.MarkMissed(ctx, task.ID)
	assert.False(t, won, "pending task cannot be missed")

	won, _ = s.MarkNotified(ctx, task.ID, time.Now())
	assert.True(t, won)
	won, _ = s.MarkNotified(ctx, task.ID, time.Now())
	assert.False(t, won)

	won, _ = s.MarkCompleted(ctx, task.ID, "video", time.Now())
	assert.True(t, won)
	won, _ = s.MarkMissed(ctx, task.ID)
	assert.False(t, won)

	got := s.Snapshot(task.ID)
	assert.Equal(t, domain.TaskStateCompleted, got.State)
	assert.NoError(t, got.Validate())

	_, err = s.LatestOpen(ctx)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestMockTaskStoreReturnsCopies(t *testing.T) {
	s := NewMockTaskStore()
	task := s.Put(&domain.Task{Description: "Run", State: domain.TaskStatePending})

	task.Description = "changed"
	assert.Equal(t, "Run", s.Snapshot(task.ID).Description)
}
