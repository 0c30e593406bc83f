package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"projecttracker/internal/model"
	"projecttracker/internal/queue"
)

type fakeDueLister struct {
	records []model.ProgressRecord
}

func (f *fakeDueLister) ListDueOn(context.Context, time.Time) ([]model.ProgressRecord, error) {
	return f.records, nil
}

type fakeTaskEnumerator struct {
	tasks []model.Task
}

func (f *fakeTaskEnumerator) ListByProject(_ context.Context, projectID int) ([]model.Task, error) {
	var out []model.Task
	for _, t := range f.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTaskEnumerator) ListByProjects(_ context.Context, projectIDs []int) ([]model.Task, error) {
	want := make(map[int]bool, len(projectIDs))
	for _, id := range projectIDs {
		want[id] = true
	}
	var out []model.Task
	for _, t := range f.tasks {
		if want[t.ProjectID] {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeReconciler struct {
	mu      sync.Mutex
	calls   int
	failIDs map[string]bool
}

func (f *fakeReconciler) Reconcile(_ context.Context, _ int, cuTaskID string) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.failIDs[cuTaskID] {
		return errors.New("simulated timeout")
	}
	return nil
}

type fakeAggregator struct {
	calls int
}

func (f *fakeAggregator) RecomputeDueToday(context.Context, time.Time) (int, error) {
	f.calls++
	return 0, nil
}

type fakePusher struct {
	jobs    []queue.SyncJob
	failIDs map[string]bool
}

func (f *fakePusher) Push(_ context.Context, job queue.SyncJob) error {
	if f.failIDs[job.CuTaskID] {
		return errors.New("queue unavailable")
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func makeTasks(projectID, n int) []model.Task {
	tasks := make([]model.Task, 0, n)
	for i := 1; i <= n; i++ {
		cuID := fmt.Sprintf("CU-%d", i)
		title := fmt.Sprintf("Task %d", i)
		tasks = append(tasks, model.Task{
			ID:        i,
			ProjectID: projectID,
			CuTaskID:  &cuID,
			TaskTitle: &title,
		})
	}
	return tasks
}

func newTestOrchestrator(due *fakeDueLister, tasks *fakeTaskEnumerator, rec *fakeReconciler, agg *fakeAggregator, push *fakePusher) *SyncOrchestrator {
	return NewSyncOrchestrator(due, tasks, rec, agg, push, 5, time.UTC, zap.NewNop())
}

func TestSyncDueTodayFailureIsolation(t *testing.T) {
	due := &fakeDueLister{records: []model.ProgressRecord{{ID: 1, ProjectID: 9, ReportDate: date("2024-03-04")}}}
	tasks := &fakeTaskEnumerator{tasks: makeTasks(9, 50)}
	rec := &fakeReconciler{failIDs: map[string]bool{"CU-3": true, "CU-17": true, "CU-42": true}}
	agg := &fakeAggregator{}

	orch := newTestOrchestrator(due, tasks, rec, agg, &fakePusher{})
	report, err := orch.SyncDueToday(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 50, report.Attempted)
	assert.Equal(t, 47, report.Succeeded)
	assert.Equal(t, 3, report.Failed)
	assert.Equal(t, 50, rec.calls, "failures must not abort sibling tasks")
	assert.Equal(t, 1, agg.calls, "aggregator must still run after a partial failure")
}

func TestSyncDueTodayNothingDue(t *testing.T) {
	orch := newTestOrchestrator(&fakeDueLister{}, &fakeTaskEnumerator{}, &fakeReconciler{}, &fakeAggregator{}, &fakePusher{})

	report, err := orch.SyncDueToday(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Attempted)
}

func TestSyncDueTodaySkipsUnlinkedTasks(t *testing.T) {
	due := &fakeDueLister{records: []model.ProgressRecord{{ID: 1, ProjectID: 9, ReportDate: date("2024-03-04")}}}
	tasks := &fakeTaskEnumerator{tasks: append(makeTasks(9, 2), model.Task{ID: 99, ProjectID: 9})}
	rec := &fakeReconciler{}
	agg := &fakeAggregator{}

	orch := newTestOrchestrator(due, tasks, rec, agg, &fakePusher{})
	report, err := orch.SyncDueToday(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Attempted, "tasks without an external id are not reconciled")
}

func TestSyncProjectStreamsProgress(t *testing.T) {
	tasks := &fakeTaskEnumerator{tasks: makeTasks(4, 10)}
	rec := &fakeReconciler{failIDs: map[string]bool{"CU-5": true}}

	orch := newTestOrchestrator(&fakeDueLister{}, tasks, rec, &fakeAggregator{}, &fakePusher{})

	progressCh := make(chan SyncProgress, 16)
	var (
		updates []SyncProgress
		wg      sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for u := range progressCh {
			updates = append(updates, u)
		}
	}()

	report, err := orch.SyncProject(context.Background(), 4, progressCh)
	wg.Wait()
	require.NoError(t, err)

	assert.Equal(t, 10, report.Attempted)
	assert.Equal(t, 9, report.Succeeded)
	assert.Equal(t, 1, report.Failed)

	require.Len(t, updates, 10)
	failed := 0
	seen := make(map[int]bool)
	for _, u := range updates {
		assert.Equal(t, 10, u.Total)
		seen[u.Completed] = true
		if u.Failed {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
	// Every counter value 1..10 is streamed exactly once; delivery order
	// is not fixed across workers.
	for i := 1; i <= 10; i++ {
		assert.True(t, seen[i], "missing counter value %d", i)
	}
}

func TestSyncProjectStalledConsumerStillReturns(t *testing.T) {
	tasks := &fakeTaskEnumerator{tasks: makeTasks(4, 20)}
	orch := newTestOrchestrator(&fakeDueLister{}, tasks, &fakeReconciler{}, &fakeAggregator{}, &fakePusher{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // the consumer is gone before anyone drains

	progressCh := make(chan SyncProgress, 2)
	done := make(chan struct{})
	go func() {
		_, _ = orch.SyncProject(ctx, 4, progressCh)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("SyncProject did not return with a stalled consumer")
	}
}

func TestEnqueueDueToday(t *testing.T) {
	due := &fakeDueLister{records: []model.ProgressRecord{
		{ID: 1, ProjectID: 2, ReportDate: date("2024-03-04")},
		{ID: 2, ProjectID: 2, ReportDate: date("2024-03-04")},
	}}
	tasks := &fakeTaskEnumerator{tasks: makeTasks(2, 3)}
	push := &fakePusher{}

	orch := newTestOrchestrator(due, tasks, &fakeReconciler{}, &fakeAggregator{}, push)
	enqueued, err := orch.EnqueueDueToday(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, enqueued)
	require.Len(t, push.jobs, 3)
	assert.Equal(t, queue.SyncJob{ProjectID: 2, CuTaskID: "CU-1"}, push.jobs[0])
}

func TestEnqueueDueTodayContinuesPastPushFailure(t *testing.T) {
	due := &fakeDueLister{records: []model.ProgressRecord{
		{ID: 1, ProjectID: 2, ReportDate: date("2024-03-04")},
	}}
	tasks := &fakeTaskEnumerator{tasks: makeTasks(2, 4)}
	push := &fakePusher{failIDs: map[string]bool{"CU-2": true}}

	orch := newTestOrchestrator(due, tasks, &fakeReconciler{}, &fakeAggregator{}, push)
	enqueued, err := orch.EnqueueDueToday(context.Background())

	assert.Error(t, err, "push failures are surfaced after the batch")
	assert.Equal(t, 3, enqueued, "one bad push must not strand the rest")
	require.Len(t, push.jobs, 3)
}
