package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskwatch/internal/platform/logger"
)

// mockJob implements the Job interface for testing
type mockJob struct {
	id      uuid.UUID
	jobType string
	execFn  func(ctx context.Context) error
}

func (m *mockJob) ID() uuid.UUID { return m.id }

func (m *mockJob) Type() string { return m.jobType }

func (m *mockJob) Execute(ctx context.Context) error {
	if m.execFn != nil {
		return m.execFn(ctx)
	}
	return nil
}

func newMockJob() *mockJob {
	return &mockJob{id: uuid.New(), jobType: "mock"}
}

func TestQueueEnqueue(t *testing.T) {
	_, log := logger.NewTestLogger(t)
	queue := NewQueue(2, log)

	require.NoError(t, queue.Enqueue(newMockJob()))
	require.NoError(t, queue.Enqueue(newMockJob()))

	err := queue.Enqueue(newMockJob())
	require.ErrorIs(t, err, ErrQueueFull)
	assert.Contains(t, err.Error(), "queue capacity 2 reached")

	assert.Len(t, queue.Channel(), 2)
}

func TestQueueClose(t *testing.T) {
	_, log := logger.NewTestLogger(t)
	queue := NewQueue(2, log)
	job := newMockJob()
	require.NoError(t, queue.Enqueue(job))

	queue.Close()
	queue.Close() // second close is a no-op

	require.ErrorIs(t, queue.Enqueue(newMockJob()), ErrQueueClosed)

	// buffered jobs remain readable after close
	got, ok := <-queue.Channel()
	require.True(t, ok)
	assert.Equal(t, job.ID(), got.ID())
	_, ok = <-queue.Channel()
	assert.False(t, ok)
}

func TestNewWorkerPool(t *testing.T) {
	_, log := logger.NewTestLogger(t)
	queue := NewQueue(1, log)

	pool := NewWorkerPool(queue, nil, WorkerPoolConfig{WorkerCount: 5}, log)
	assert.Equal(t, 5, pool.workerCount)
	assert.Nil(t, pool.errorHandler)

	pool = NewWorkerPool(queue, nil, WorkerPoolConfig{WorkerCount: 0}, log)
	assert.Equal(t, 1, pool.workerCount)

	pool = NewWorkerPool(queue, nil, WorkerPoolConfig{WorkerCount: -5}, log)
	assert.Equal(t, 1, pool.workerCount)

	assert.Equal(t, 2, DefaultWorkerPoolConfig().WorkerCount)
}

func TestWorkerPoolProcessesJobs(t *testing.T) {
	_, log := logger.NewTestLogger(t)
	queue := NewQueue(10, log)
	statuses := NewStatusStore(10)
	dispatcher := NewDispatcher(queue, statuses, log)

	pool := NewWorkerPool(queue, statuses, WorkerPoolConfig{WorkerCount: 2}, log)

	var mu sync.Mutex
	var failed []uuid.UUID
	pool.SetErrorHandler(func(job Job, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, job.ID())
	})
	pool.Start()
	t.Cleanup(pool.Stop)

	ok := newMockJob()
	bad := newMockJob()
	bad.execFn = func(context.Context) error { return errors.New("boom") }
	panicky := newMockJob()
	panicky.execFn = func(context.Context) error { panic("kaboom") }

	for _, job := range []Job{ok, bad, panicky} {
		require.NoError(t, dispatcher.Submit(job))
	}

	require.Eventually(t, func() bool {
		for _, job := range []Job{ok, bad, panicky} {
			rec, found := statuses.Get(job.ID())
			if !found || (rec.Status != StatusCompleted && rec.Status != StatusFailed) {
				return false
			}
		}
		return true
	}, time.Second, 10*time.Millisecond)

	rec, _ := statuses.Get(ok.ID())
	assert.Equal(t, StatusCompleted, rec.Status)
	rec, _ = statuses.Get(bad.ID())
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, "boom", rec.Error)
	rec, _ = statuses.Get(panicky.ID())
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Contains(t, rec.Error, "kaboom")

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []uuid.UUID{bad.ID(), panicky.ID()}, failed)
}

func TestWorkerPoolStopCancelsJobs(t *testing.T) {
	_, log := logger.NewTestLogger(t)
	queue := NewQueue(1, log)
	pool := NewWorkerPool(queue, nil, WorkerPoolConfig{WorkerCount: 1}, log)
	pool.Start()

	started := make(chan struct{})
	job := newMockJob()
	job.execFn = func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}
	require.NoError(t, queue.Enqueue(job))
	<-started

	stopped := make(chan struct{})
	go func() {
		pool.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestDispatcherQueueFull(t *testing.T) {
	_, log := logger.NewTestLogger(t)
	queue := NewQueue(1, log)
	statuses := NewStatusStore(10)
	dispatcher := NewDispatcher(queue, statuses, log)

	first, second := newMockJob(), newMockJob()
	require.NoError(t, dispatcher.Submit(first))
	require.ErrorIs(t, dispatcher.Submit(second), ErrQueueFull)

	rec, ok := dispatcher.Statuses().Get(first.ID())
	require.True(t, ok)
	assert.Equal(t, StatusPending, rec.Status)

	rec, ok = statuses.Get(second.ID())
	require.True(t, ok)
	assert.Equal(t, StatusFailed, rec.Status)
}

func TestStatusStoreEvictsOldest(t *testing.T) {
	statuses := NewStatusStore(2)
	a, b, c := newMockJob(), newMockJob(), newMockJob()

	statuses.Update(a, StatusPending, "")
	statuses.Update(b, StatusPending, "")
	statuses.Update(a, StatusCompleted, "")
	statuses.Update(c, StatusPending, "")

	_, ok := statuses.Get(a.ID())
	assert.False(t, ok)
	_, ok = statuses.Get(b.ID())
	assert.True(t, ok)
	rec, ok := statuses.Get(c.ID())
	assert.True(t, ok)
	assert.Equal(t, "mock", rec.Type)
}

type recordingSender struct {
	kinds []string
	err   error
}

func (s *recordingSender) Send(_ context.Context, kind string) error {
	s.kinds = append(s.kinds, kind)
	return s.err
}

func TestReportJob(t *testing.T) {
	sender := &recordingSender{}
	job := NewReportJob("weekly", sender)

	assert.NotEqual(t, uuid.Nil, job.ID())
	assert.Equal(t, "report:weekly", job.Type())
	assert.Equal(t, "weekly", job.Kind())
	require.NoError(t, job.Execute(context.Background()))
	assert.Equal(t, []string{"weekly"}, sender.kinds)

	sender.err = errors.New("sink down")
	require.Error(t, job.Execute(context.Background()))
}
