package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"workhub/internal/apperr"
	"workhub/internal/lock"
	"workhub/internal/model"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCascade(parallelism int, logs *bytes.Buffer) *Cascade {
	return &Cascade{base: base{Deps: Deps{
		Logger:            slog.New(slog.NewTextHandler(logs, nil)),
		DeleteParallelism: parallelism,
	}}}
}

func TestCascadeRun_StopsAtFailingTier(t *testing.T) {
	var logs bytes.Buffer
	c := newTestCascade(2, &logs)

	var mu sync.Mutex
	var ran []string
	step := func(name string, err error) deletion {
		return deletion{name: name, run: func(ctx context.Context) error {
			mu.Lock()
			ran = append(ran, name)
			mu.Unlock()
			return err
		}}
	}

	err := c.run(context.Background(), []tier{
		{step("comments", nil)},
		{step("activities", errors.New("disk full")), step("sprints", errors.New("timeout")), step("sprints-2", nil)},
		{step("backlogs", nil)},
	})

	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 2)
	assert.ElementsMatch(t, []string{"comments", "activities", "sprints", "sprints-2"}, ran)
	assert.NotContains(t, ran, "backlogs")
	assert.Contains(t, logs.String(), "cascade delete stopped")
}

func TestCascadeRun_RespectsParallelism(t *testing.T) {
	c := newTestCascade(3, &bytes.Buffer{})

	var current, peak atomic.Int32
	release := make(chan struct{})
	var t1 tier
	for i := 0; i < 9; i++ {
		t1 = append(t1, deletion{name: "x", run: func(ctx context.Context) error {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			current.Add(-1)
			return nil
		}})
	}

	done := make(chan error)
	go func() { done <- c.run(context.Background(), []tier{t1}) }()
	for i := 0; i < 9; i++ {
		release <- struct{}{}
	}

	require.NoError(t, <-done)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestChunked(t *testing.T) {
	ids := make([]uuid.UUID, deleteChunkSize*2+7)
	for i := range ids {
		ids[i] = uuid.New()
	}

	var mu sync.Mutex
	var sizes []int
	tr := chunked("activities", ids, func(ctx context.Context, chunk []uuid.UUID) error {
		mu.Lock()
		sizes = append(sizes, len(chunk))
		mu.Unlock()
		return nil
	})
	require.Len(t, tr, 3)
	for _, d := range tr {
		require.NoError(t, d.run(context.Background()))
	}
	assert.Equal(t, []int{deleteChunkSize, deleteChunkSize, 7}, sizes)

	assert.Empty(t, chunked("none", nil, nil))
}

func TestBacklogLockOrder(t *testing.T) {
	low := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	high := uuid.MustParse("ffffffff-0000-0000-0000-000000000000")
	projects := []model.Project{
		{Base: model.Base{ID: uuid.New()}, BacklogID: high},
		{Base: model.Base{ID: uuid.New()}, BacklogID: low},
	}

	ids, keys := backlogLockOrder(projects)
	assert.Equal(t, []uuid.UUID{projects[1].ID, projects[0].ID}, ids)
	assert.Equal(t, []string{lock.BacklogKey(low), lock.BacklogKey(high)}, keys)
	assert.Equal(t, high, projects[0].BacklogID, "input left unsorted")
}

func TestAcquireAll_ReleasesTakenLeasesOnFailure(t *testing.T) {
	locker := lock.NewMemoryLocker()
	b := base{Deps: Deps{Locker: locker, LockWait: 50 * time.Millisecond}}

	held, err := locker.Acquire(context.Background(), "backlog:b")
	require.NoError(t, err)

	_, err = b.acquireAll(context.Background(), "workspace:w", "backlog:a", "backlog:b")
	assert.True(t, apperr.Is(err, apperr.KindInternal))
	held()

	release, err := b.acquireAll(context.Background(), "workspace:w", "backlog:a", "backlog:b")
	require.NoError(t, err)
	release()
}
