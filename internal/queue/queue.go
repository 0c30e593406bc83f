package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SyncQueueKey is the redis list the orchestrator pushes sync jobs onto
// and the worker pops them from.
const SyncQueueKey = "sync:tasks"

// SyncJob is one unit of reconciliation work, serialized onto the queue.
// Producer and consumer share no other state.
type SyncJob struct {
	ProjectID int    `json:"project_id"`
	CuTaskID  string `json:"cu_task_id"`
}

type Queue struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

func (q *Queue) Push(ctx context.Context, job SyncJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := q.rdb.LPush(ctx, SyncQueueKey, body).Err(); err != nil {
		return fmt.Errorf("failed to enqueue sync job: %w", err)
	}
	return nil
}

// Pop blocks up to timeout for the next job. It returns (nil, nil) when the
// queue stayed empty, so consumers can loop without treating that as error.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*SyncJob, error) {
	res, err := q.rdb.BRPop(ctx, timeout, SyncQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop sync job: %w", err)
	}
	// BRPop returns [key, value]
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply of length %d", len(res))
	}

	var job SyncJob
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to decode sync job: %w", err)
	}
	return &job, nil
}

func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, SyncQueueKey).Result()
}
