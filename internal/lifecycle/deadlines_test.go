package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeadlineQueue(t *testing.T) {
	base := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)

	t.Run("pops due entries earliest first", func(t *testing.T) {
		q := newDeadlineQueue()
		q.Schedule(3, base.Add(30*time.Minute))
		q.Schedule(1, base.Add(10*time.Minute))
		q.Schedule(2, base.Add(20*time.Minute))

		next, ok := q.Next()
		assert.True(t, ok)
		assert.Equal(t, base.Add(10*time.Minute), next)

		assert.Equal(t, []int64{1, 2}, q.PopDue(base.Add(20*time.Minute)))
		assert.Equal(t, 1, q.Len())
		assert.Empty(t, q.PopDue(base.Add(29*time.Minute)))
		assert.Equal(t, []int64{3}, q.PopDue(base.Add(time.Hour)))

		_, ok = q.Next()
		assert.False(t, ok)
	})

	t.Run("rescheduling moves the entry", func(t *testing.T) {
		q := newDeadlineQueue()
		q.Schedule(1, base)
		q.Schedule(2, base.Add(time.Minute))
		q.Schedule(1, base.Add(time.Hour))

		assert.Equal(t, 2, q.Len())
		assert.Equal(t, []int64{2}, q.PopDue(base.Add(time.Minute)))
	})

	t.Run("cancel removes the entry", func(t *testing.T) {
		q := newDeadlineQueue()
		q.Schedule(1, base)
		q.Schedule(2, base)

		assert.True(t, q.Cancel(1))
		assert.False(t, q.Cancel(1))
		assert.Equal(t, []int64{2}, q.PopDue(base))
	})

	t.Run("ties break by task id", func(t *testing.T) {
		q := newDeadlineQueue()
		q.Schedule(9, base)
		q.Schedule(4, base)
		q.Schedule(6, base)

		assert.Equal(t, []int64{4, 6, 9}, q.PopDue(base))
	})
}
