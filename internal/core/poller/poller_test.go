package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"recipe-suggester/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInterval = 5 * time.Millisecond

// scripted 依序回傳預設的任務狀態，最後一個狀態重複使用
type scripted struct {
	mu    sync.Mutex
	steps []common.JobStatus
	errs  map[int]error
	calls int
}

func (s *scripted) fetch(ctx context.Context, jobID int64) (common.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.calls
	s.calls++
	if err, ok := s.errs[n]; ok {
		return common.Job{}, err
	}
	i := n
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	job := common.Job{ID: jobID, RecipeID: 42, Status: s.steps[i]}
	if job.Status == common.JobStatusCompleted {
		job.Payload = common.StringPtr(`{"ingredients":[]}`)
	}
	return job, nil
}

func (s *scripted) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recorder struct {
	mu        sync.Mutex
	completed []common.Job
	failed    []common.Job
	updates   int
	captions  []string
	errs      int
}

func (r *recorder) options() Options {
	return Options{
		Kind:     common.JobKindIngredients,
		Interval: testInterval,
		OnUpdate: func(common.Job) {
			r.mu.Lock()
			r.updates++
			r.mu.Unlock()
		},
		OnComplete: func(job common.Job) {
			r.mu.Lock()
			r.completed = append(r.completed, job)
			r.mu.Unlock()
		},
		OnFail: func(job common.Job) {
			r.mu.Lock()
			r.failed = append(r.failed, job)
			r.mu.Unlock()
		},
		OnError: func(error) {
			r.mu.Lock()
			r.errs++
			r.mu.Unlock()
		},
	}
}

func waitDone(t *testing.T, p *Poller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Wait(ctx))
}

func TestPoller_CompletesOnce(t *testing.T) {
	src := &scripted{steps: []common.JobStatus{common.JobStatusRunning, common.JobStatusRunning, common.JobStatusCompleted}}
	rec := &recorder{}
	p := New(src.fetch, rec.options())

	p.Start(context.Background(), 7)
	waitDone(t, p)

	assert.Equal(t, StateCompleted, p.State())
	rec.mu.Lock()
	require.Len(t, rec.completed, 1)
	assert.Empty(t, rec.failed)
	assert.Equal(t, 2, rec.updates)
	assert.Equal(t, int64(7), rec.completed[0].ID)
	rec.mu.Unlock()

	last, ok := p.Last()
	require.True(t, ok)
	assert.Equal(t, common.JobStatusCompleted, last.Status)
}

func TestPoller_NoPollsAfterTerminal(t *testing.T) {
	src := &scripted{steps: []common.JobStatus{common.JobStatusFailed}}
	rec := &recorder{}
	p := New(src.fetch, rec.options())

	p.Start(context.Background(), 1)
	waitDone(t, p)
	calls := src.count()

	time.Sleep(10 * testInterval)
	assert.Equal(t, calls, src.count())
	assert.Equal(t, 1, calls)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Len(t, rec.failed, 1)
	assert.Empty(t, rec.completed)
	assert.Equal(t, StateFailed, p.State())
}

func TestPoller_FetchErrorsKeepPolling(t *testing.T) {
	src := &scripted{
		steps: []common.JobStatus{common.JobStatusRunning, common.JobStatusRunning, common.JobStatusCompleted},
		errs:  map[int]error{0: errors.New("connection refused")},
	}
	rec := &recorder{}
	p := New(src.fetch, rec.options())

	p.Start(context.Background(), 1)
	waitDone(t, p)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 1, rec.errs)
	assert.Len(t, rec.completed, 1)
}

func TestPoller_CancelStopsPolling(t *testing.T) {
	src := &scripted{steps: []common.JobStatus{common.JobStatusRunning}}
	rec := &recorder{}
	p := New(src.fetch, rec.options())

	p.Start(context.Background(), 1)
	time.Sleep(5 * testInterval)
	p.Cancel()

	calls := src.count()
	time.Sleep(10 * testInterval)
	assert.Equal(t, calls, src.count())
	assert.Equal(t, StateIdle, p.State())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Empty(t, rec.completed)
	assert.Empty(t, rec.failed)
}

func TestPoller_StartRetiresPreviousRun(t *testing.T) {
	var mu sync.Mutex
	seen := map[int64]int{}
	fetch := func(ctx context.Context, jobID int64) (common.Job, error) {
		mu.Lock()
		seen[jobID]++
		mu.Unlock()
		if jobID == 2 {
			return common.Job{ID: jobID, Status: common.JobStatusCompleted}, nil
		}
		return common.Job{ID: jobID, Status: common.JobStatusRunning}, nil
	}
	rec := &recorder{}
	p := New(fetch, rec.options())

	p.Start(context.Background(), 1)
	time.Sleep(5 * testInterval)
	p.Start(context.Background(), 2)

	mu.Lock()
	before := seen[1]
	mu.Unlock()

	waitDone(t, p)
	time.Sleep(5 * testInterval)

	mu.Lock()
	assert.Equal(t, before, seen[1])
	mu.Unlock()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.completed, 1)
	assert.Equal(t, int64(2), rec.completed[0].ID)
	assert.Equal(t, int64(2), p.JobID())
}

func TestPoller_NoOverlappingRequests(t *testing.T) {
	var inFlight, maxInFlight int32
	var calls int32
	fetch := func(ctx context.Context, jobID int64) (common.Job, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			old := atomic.LoadInt32(&maxInFlight)
			if cur <= old || atomic.CompareAndSwapInt32(&maxInFlight, old, cur) {
				break
			}
		}
		// 比輪詢間隔更慢的回應
		time.Sleep(3 * testInterval)
		if atomic.AddInt32(&calls, 1) >= 4 {
			return common.Job{ID: jobID, Status: common.JobStatusCompleted}, nil
		}
		return common.Job{ID: jobID, Status: common.JobStatusRunning}, nil
	}
	p := New(fetch, Options{Interval: testInterval})

	p.Start(context.Background(), 1)
	waitDone(t, p)
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
}

func TestPoller_CaptionsRotateWhilePolling(t *testing.T) {
	src := &scripted{steps: []common.JobStatus{common.JobStatusRunning}}
	var mu sync.Mutex
	var captions []string
	p := New(src.fetch, Options{
		Interval:        testInterval,
		CaptionInterval: 2 * testInterval,
		Captions:        []string{"a", "b"},
		OnCaption: func(c string) {
			mu.Lock()
			captions = append(captions, c)
			mu.Unlock()
		},
	})

	p.Start(context.Background(), 1)
	time.Sleep(12 * testInterval)
	p.Cancel()

	mu.Lock()
	got := append([]string(nil), captions...)
	mu.Unlock()

	require.GreaterOrEqual(t, len(got), 3)
	assert.Equal(t, "a", got[0])
	assert.Equal(t, "b", got[1])
	assert.Equal(t, "a", got[2])

	time.Sleep(5 * testInterval)
	mu.Lock()
	assert.Equal(t, len(got), len(captions))
	mu.Unlock()
}

func TestPoller_ParentContextCanceled(t *testing.T) {
	src := &scripted{steps: []common.JobStatus{common.JobStatusRunning}}
	p := New(src.fetch, Options{Interval: testInterval})

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx, 1)
	cancel()
	waitDone(t, p)
	assert.Equal(t, StateIdle, p.State())
}

func TestPoller_DoneWithoutRun(t *testing.T) {
	p := New(nil, Options{})
	select {
	case <-p.Done():
	default:
		t.Fatal("Done should be closed when idle")
	}
	assert.Equal(t, StateIdle, p.State())
}

func TestPoller_CancelFromTerminalCallback(t *testing.T) {
	src := &scripted{steps: []common.JobStatus{common.JobStatusCompleted}}
	returned := make(chan struct{})
	var p *Poller
	p = New(src.fetch, Options{
		Interval: testInterval,
		OnComplete: func(common.Job) {
			p.Cancel()
			close(returned)
		},
	})

	p.Start(context.Background(), 1)

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("Cancel inside OnComplete did not return")
	}
	waitDone(t, p)
	assert.Equal(t, StateCompleted, p.State())
}

func TestPoller_StartFromTerminalCallback(t *testing.T) {
	fetch := func(ctx context.Context, jobID int64) (common.Job, error) {
		if jobID == 1 {
			return common.Job{ID: jobID, Status: common.JobStatusFailed}, nil
		}
		return common.Job{ID: jobID, Status: common.JobStatusCompleted}, nil
	}
	completed := make(chan int64, 1)
	var p *Poller
	p = New(fetch, Options{
		Interval: testInterval,
		OnFail: func(job common.Job) {
			p.Start(context.Background(), job.ID+1)
		},
		OnComplete: func(job common.Job) {
			completed <- job.ID
		},
	})

	p.Start(context.Background(), 1)

	select {
	case id := <-completed:
		assert.Equal(t, int64(2), id)
	case <-time.After(2 * time.Second):
		t.Fatal("restart inside OnFail did not complete")
	}
	assert.Equal(t, int64(2), p.JobID())
}

func TestPoller_NoTerminalCallbackAfterCancel(t *testing.T) {
	release := make(chan struct{})
	fetch := func(ctx context.Context, jobID int64) (common.Job, error) {
		<-release
		return common.Job{ID: jobID, Status: common.JobStatusCompleted}, nil
	}
	rec := &recorder{}
	p := New(fetch, rec.options())

	p.Start(context.Background(), 1)
	time.Sleep(3 * testInterval)
	go func() {
		time.Sleep(2 * testInterval)
		close(release)
	}()
	p.Cancel()

	time.Sleep(5 * testInterval)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Empty(t, rec.completed)
	assert.Equal(t, StateIdle, p.State())
}
