package poller

import (
	"context"
	"sync"
	"time"

	"recipe-suggester/internal/pkg/common"

	"go.uber.org/zap"
)

const (
	// DefaultInterval 任務輪詢間隔
	DefaultInterval = 1000 * time.Millisecond
	// DefaultCaptionInterval 進度文字輪播間隔
	DefaultCaptionInterval = 2000 * time.Millisecond
)

// State 輪詢狀態
type State string

const (
	StateIdle      State = "idle"
	StatePolling   State = "polling"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// FetchFunc 依 id 取得任務
type FetchFunc func(ctx context.Context, jobID int64) (common.Job, error)

// Options 輪詢設定與回呼。回呼不持有鎖執行。
// OnComplete / OnFail 在 run 的 goroutine 全部結束後才呼叫，回呼內可再呼叫 Start 或 Cancel。
type Options struct {
	Kind            common.JobKind
	Interval        time.Duration
	CaptionInterval time.Duration
	Captions        []string

	OnUpdate   func(job common.Job)
	OnComplete func(job common.Job)
	OnFail     func(job common.Job)
	OnCaption  func(caption string)
	OnError    func(err error)
}

// Poller 追蹤單一任務直到終止狀態。同一時間只有一個 run。
type Poller struct {
	fetch FetchFunc
	opts  Options

	startMu sync.Mutex // 串行化 Start / Cancel

	mu    sync.Mutex
	state State
	jobID int64
	last  *common.Job
	run   *run
}

type run struct {
	jobID  int64
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// terminal 由 loop 寫入，wg.Wait 之後讀取
	terminal func()
	stopped  chan struct{} // 輪詢與輪播 goroutine 已結束
	done     chan struct{} // 終止回呼也已結束
}

// New 創建輪詢器
func New(fetch FetchFunc, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.CaptionInterval <= 0 {
		opts.CaptionInterval = DefaultCaptionInterval
	}
	return &Poller{
		fetch: fetch,
		opts:  opts,
		state: StateIdle,
	}
}

// Start 開始輪詢 jobID，先結束並等待既有的 run
func (p *Poller) Start(ctx context.Context, jobID int64) {
	p.startMu.Lock()
	defer p.startMu.Unlock()

	p.retire()

	runCtx, cancel := context.WithCancel(ctx)
	r := &run{
		jobID:   jobID,
		ctx:     runCtx,
		cancel:  cancel,
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}

	p.mu.Lock()
	prevState := p.state
	p.run = r
	p.jobID = jobID
	p.last = nil
	p.state = StatePolling
	p.mu.Unlock()

	common.LogJobTransition(p.opts.Kind, jobID, string(prevState), string(StatePolling))

	r.wg.Add(2)
	go p.loop(r)
	go p.rotate(r)
	go p.settle(r)
}

// settle 等 run 的 goroutine 結束後才送出終止回呼；run 已被取代或取消時不送
func (p *Poller) settle(r *run) {
	defer close(r.done)

	r.wg.Wait()
	r.cancel()

	p.mu.Lock()
	current := p.run == r
	// 外部 context 取消時回到 idle
	if current && p.state == StatePolling {
		p.state = StateIdle
	}
	p.mu.Unlock()
	close(r.stopped)

	if current && r.terminal != nil {
		r.terminal()
	}
}

// Cancel 停止目前的 run 並等待其 goroutine 結束，之後不會再開始任何回呼
func (p *Poller) Cancel() {
	p.startMu.Lock()
	defer p.startMu.Unlock()
	p.retire()
}

func (p *Poller) retire() {
	p.mu.Lock()
	r := p.run
	p.run = nil
	if r != nil && p.state == StatePolling {
		p.state = StateIdle
	}
	p.mu.Unlock()

	if r == nil {
		return
	}
	r.cancel()
	<-r.stopped
}

// Done 目前 run 結束且終止回呼返回後關閉；沒有 run 時回傳已關閉的 channel
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.run == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return p.run.done
}

// Wait 等待目前 run 結束
func (p *Poller) Wait(ctx context.Context) error {
	select {
	case <-p.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State 目前狀態
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// JobID 目前追蹤的任務 id
func (p *Poller) JobID() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.jobID
}

// Last 最後一次取得的任務快照
func (p *Poller) Last() (common.Job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return common.Job{}, false
	}
	return *p.last, true
}

// loop 前一次回應處理完才排下一次輪詢
func (p *Poller) loop(r *run) {
	defer r.wg.Done()

	timer := time.NewTimer(p.opts.Interval)
	defer timer.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-timer.C:
		}

		job, err := p.fetch(r.ctx, r.jobID)
		if r.ctx.Err() != nil {
			return
		}
		if err != nil {
			common.LogWarn("輪詢任務失敗，稍後重試",
				zap.String("kind", string(p.opts.Kind)),
				zap.Int64("job_id", r.jobID),
				zap.Error(err),
			)
			if p.opts.OnError != nil {
				p.opts.OnError(err)
			}
			timer.Reset(p.opts.Interval)
			continue
		}

		next := StatePolling
		switch job.Status {
		case common.JobStatusCompleted:
			next = StateCompleted
		case common.JobStatusFailed:
			next = StateFailed
		case common.JobStatusRunning:
		default:
			common.LogWarn("未知的任務狀態",
				zap.Int64("job_id", r.jobID),
				zap.String("status", string(job.Status)),
			)
		}

		if !p.commit(r, job, next) {
			return
		}

		switch next {
		case StatePolling:
			if p.opts.OnUpdate != nil {
				p.opts.OnUpdate(job)
			}
			timer.Reset(p.opts.Interval)
			continue
		case StateCompleted:
			if p.opts.OnComplete != nil {
				r.terminal = func() { p.opts.OnComplete(job) }
			}
		case StateFailed:
			if p.opts.OnFail != nil {
				r.terminal = func() { p.opts.OnFail(job) }
			}
		}
		r.cancel()
		return
	}
}

// commit 只在 run 仍為目前 run 且未取消時寫入狀態
func (p *Poller) commit(r *run, job common.Job, next State) bool {
	p.mu.Lock()
	if p.run != r || r.ctx.Err() != nil {
		p.mu.Unlock()
		return false
	}
	prev := p.state
	snapshot := job
	p.last = &snapshot
	p.state = next
	p.mu.Unlock()

	if prev != next {
		common.LogJobTransition(p.opts.Kind, r.jobID, string(prev), string(next))
	}
	return true
}

// rotate 輪詢期間依序輪播進度文字，開始時立即送出第一則
func (p *Poller) rotate(r *run) {
	defer r.wg.Done()

	if len(p.opts.Captions) == 0 || p.opts.OnCaption == nil {
		return
	}

	i := 0
	p.opts.OnCaption(p.opts.Captions[i])

	ticker := time.NewTicker(p.opts.CaptionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			if r.ctx.Err() != nil {
				return
			}
			i = (i + 1) % len(p.opts.Captions)
			p.opts.OnCaption(p.opts.Captions[i])
		}
	}
}
