package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"projecttracker/internal/model"
)

type metricsWrite struct {
	spi, cpi, actual float64
}

type fakeProgressStore struct {
	mu            sync.Mutex
	dueRecords    []model.ProgressRecord
	byProject     map[int][]model.ProgressRecord
	viewMetrics   map[int]model.ProjectMetrics
	viewCalls     int
	metricWrites  map[int]metricsWrite
	planWrites    map[int]float64
	failMetricsOn int
}

func newFakeProgressStore() *fakeProgressStore {
	return &fakeProgressStore{
		byProject:    make(map[int][]model.ProgressRecord),
		viewMetrics:  make(map[int]model.ProjectMetrics),
		metricWrites: make(map[int]metricsWrite),
		planWrites:   make(map[int]float64),
	}
}

func (f *fakeProgressStore) ListDueOn(context.Context, time.Time) ([]model.ProgressRecord, error) {
	return f.dueRecords, nil
}

func (f *fakeProgressStore) ListByProject(_ context.Context, projectID int) ([]model.ProgressRecord, error) {
	return f.byProject[projectID], nil
}

func (f *fakeProgressStore) UpdateMetrics(_ context.Context, id int, spi, cpi, actual float64) error {
	if f.failMetricsOn == id {
		return errors.New("update failed")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metricWrites[id] = metricsWrite{spi: spi, cpi: cpi, actual: actual}
	return nil
}

func (f *fakeProgressStore) UpdatePlanProgress(_ context.Context, id int, planProgress float64) error {
	f.planWrites[id] = planProgress
	return nil
}

func (f *fakeProgressStore) ViewMetricsByProjects(context.Context, []int) (map[int]model.ProjectMetrics, error) {
	f.viewCalls++
	return f.viewMetrics, nil
}

type fakeTaskCounter struct {
	total     map[int]int
	completed map[int]map[string]int // projectID -> report date -> count
}

func (f *fakeTaskCounter) CountByProject(_ context.Context, projectID int) (int, error) {
	return f.total[projectID], nil
}

func (f *fakeTaskCounter) CountCompletedDueBy(_ context.Context, projectID int, d time.Time) (int, error) {
	return f.completed[projectID][d.Format("2006-01-02")], nil
}

func fptr(v float64) *float64 { return &v }

func TestRecomputeDueTodayNoRows(t *testing.T) {
	store := newFakeProgressStore()
	svc := NewProgressService(store, &fakeTaskCounter{}, 10, zap.NewNop())

	updated, err := svc.RecomputeDueToday(context.Background(), date("2024-03-04"))
	require.NoError(t, err)
	assert.Zero(t, updated)
	assert.Empty(t, store.metricWrites, "no-op day must not write")
	assert.Zero(t, store.viewCalls, "no-op day must not read the view")
}

func TestRecomputeDueTodayWritesViewMetrics(t *testing.T) {
	store := newFakeProgressStore()
	store.dueRecords = []model.ProgressRecord{
		{ID: 11, ProjectID: 1, WeekNo: 2, ReportDate: date("2024-03-04")},
		{ID: 21, ProjectID: 2, WeekNo: 5, ReportDate: date("2024-03-04")},
	}
	store.viewMetrics = map[int]model.ProjectMetrics{
		1: {ProjectID: 1, AvgSPI: fptr(0.9), AvgCPI: fptr(1.1), ActualProgress: fptr(42.5)},
		// project 2 absent from the view: zero-filled
	}
	svc := NewProgressService(store, &fakeTaskCounter{}, 10, zap.NewNop())

	updated, err := svc.RecomputeDueToday(context.Background(), date("2024-03-04"))
	require.NoError(t, err)
	assert.Equal(t, 2, updated)
	assert.Equal(t, 1, store.viewCalls, "source metrics must come from one batched read")

	assert.Equal(t, metricsWrite{spi: 0.9, cpi: 1.1, actual: 42.5}, store.metricWrites[11])
	assert.Equal(t, metricsWrite{}, store.metricWrites[21], "missing aggregates default to zero")
}

func TestRecomputeDueTodayNilAggregatesBecomeZero(t *testing.T) {
	store := newFakeProgressStore()
	store.dueRecords = []model.ProgressRecord{
		{ID: 31, ProjectID: 3, ReportDate: date("2024-03-04")},
	}
	store.viewMetrics = map[int]model.ProjectMetrics{
		3: {ProjectID: 3, AvgSPI: nil, AvgCPI: fptr(1.2), ActualProgress: nil},
	}
	svc := NewProgressService(store, &fakeTaskCounter{}, 10, zap.NewNop())

	_, err := svc.RecomputeDueToday(context.Background(), date("2024-03-04"))
	require.NoError(t, err)
	assert.Equal(t, metricsWrite{spi: 0, cpi: 1.2, actual: 0}, store.metricWrites[31])
}

func TestRecomputeDueTodayIsolatesRowFailures(t *testing.T) {
	store := newFakeProgressStore()
	for i := 1; i <= 7; i++ {
		store.dueRecords = append(store.dueRecords, model.ProgressRecord{
			ID: i, ProjectID: 1, ReportDate: date("2024-03-04"),
		})
	}
	store.failMetricsOn = 4
	svc := NewProgressService(store, &fakeTaskCounter{}, 3, zap.NewNop())

	updated, err := svc.RecomputeDueToday(context.Background(), date("2024-03-04"))
	require.NoError(t, err, "a single row failure must not fail the pass")
	assert.Equal(t, 6, updated)
	assert.Len(t, store.metricWrites, 6)
}

func TestRecomputePlanProgressZeroTasks(t *testing.T) {
	store := newFakeProgressStore()
	store.byProject[5] = []model.ProgressRecord{
		{ID: 1, ProjectID: 5, WeekNo: 1, ReportDate: date("2024-01-01")},
		{ID: 2, ProjectID: 5, WeekNo: 2, ReportDate: date("2024-01-08")},
	}
	counter := &fakeTaskCounter{total: map[int]int{5: 0}}
	svc := NewProgressService(store, counter, 10, zap.NewNop())

	rows, err := svc.RecomputePlanProgress(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 2, rows)
	assert.Equal(t, 0.0, store.planWrites[1])
	assert.Equal(t, 0.0, store.planWrites[2])
}

func TestRecomputePlanProgressRatio(t *testing.T) {
	store := newFakeProgressStore()
	store.byProject[5] = []model.ProgressRecord{
		{ID: 1, ProjectID: 5, WeekNo: 1, ReportDate: date("2024-01-01")},
		{ID: 2, ProjectID: 5, WeekNo: 2, ReportDate: date("2024-01-08")},
		{ID: 3, ProjectID: 5, WeekNo: 3, ReportDate: date("2024-01-15")},
	}
	counter := &fakeTaskCounter{
		total: map[int]int{5: 4},
		completed: map[int]map[string]int{
			5: {
				"2024-01-01": 0,
				"2024-01-08": 2,
				"2024-01-15": 3,
			},
		},
	}
	svc := NewProgressService(store, counter, 10, zap.NewNop())

	_, err := svc.RecomputePlanProgress(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, store.planWrites[1])
	assert.Equal(t, 50.0, store.planWrites[2])
	assert.Equal(t, 75.0, store.planWrites[3])
}
