// ============================================================================
// widgetsync Periodic - 週期任務
// ============================================================================
//
// Package: internal/periodic
// 文件: periodic.go
// 功能: 以固定間隔重複執行的任務，支援協作式取消
//
// 生命週期:
//   Start(ctx) -> 每個 interval 呼叫一次 tick(total)
//   tick 回傳 false、ctx 取消、或 Stop() 時結束
//   再次 Start 會先停止舊的迴圈並把累計時間歸零
//
// ============================================================================

package periodic

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// TickFunc runs once per interval. total is the scheduled time accumulated
// since Start, including this tick. Returning false ends the task.
type TickFunc func(total time.Duration) bool

// Task 週期任務
type Task struct {
	interval time.Duration
	tick     TickFunc

	mu     sync.Mutex
	stopCh chan struct{} // 停止訊號
	done   chan struct{} // 迴圈結束
	total  atomic.Int64  // 累計時間 (ns)
}

// New 建立週期任務，尚未啟動
func New(interval time.Duration, tick TickFunc) *Task {
	return &Task{interval: interval, tick: tick}
}

// Interval returns the tick period.
func (t *Task) Interval() time.Duration {
	return t.interval
}

// Start launches the loop. A running loop is stopped first.
func (t *Task) Start(ctx context.Context) {
	t.Stop()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.total.Store(0)
	stopCh := make(chan struct{})
	done := make(chan struct{})
	t.stopCh = stopCh
	t.done = done

	go t.loop(ctx, stopCh, done)
}

func (t *Task) loop(ctx context.Context, stopCh, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			total := time.Duration(t.total.Add(int64(t.interval)))
			if !t.tick(total) {
				return
			}
		}
	}
}

// Stop ends the loop and waits for it to exit. Safe to call at any time,
// but not from inside the tick function.
func (t *Task) Stop() {
	t.mu.Lock()
	stopCh, done := t.stopCh, t.done
	t.stopCh, t.done = nil, nil
	t.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done
}

// Running reports whether the loop is alive.
func (t *Task) Running() bool {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()

	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Elapsed returns the scheduled time accumulated since the last Start.
func (t *Task) Elapsed() time.Duration {
	return time.Duration(t.total.Load())
}
