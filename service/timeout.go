package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// TimeoutError 操作超过截止时间
type TimeoutError struct {
	Operation string
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: request timed out after %s", e.Operation, e.Timeout)
}

// Inflight 记录尚未结束的后台操作
type Inflight struct {
	wg      sync.WaitGroup
	pending atomic.Int64
}

// NewInflight 创建跟踪器
func NewInflight() *Inflight {
	return &Inflight{}
}

func (f *Inflight) add() {
	f.pending.Add(1)
	f.wg.Add(1)
}

func (f *Inflight) done() {
	f.pending.Add(-1)
	f.wg.Done()
}

// Pending 当前未结束的操作数
func (f *Inflight) Pending() int64 {
	return f.pending.Load()
}

// Wait 等待所有操作结束，ctx 结束时提前返回
func (f *Inflight) Wait(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("仍有 %d 个操作未完成: %w", f.Pending(), ctx.Err())
	}
}

type outcome[T any] struct {
	value T
	err   error
}

// WithTimeout 让 op 与计时器赛跑。超时后返回 *TimeoutError，
// op 本身不会被取消，会在后台继续执行直至结束，其结果被丢弃。
// tracker 不为空时登记该后台操作。timeout <= 0 表示不设截止时间。
func WithTimeout[T any](ctx context.Context, tracker *Inflight, operation string, timeout time.Duration, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	results := make(chan outcome[T], 1)
	if tracker != nil {
		tracker.add()
	}
	opCtx := context.WithoutCancel(ctx)
	go func() {
		if tracker != nil {
			defer tracker.done()
		}
		v, err := op(opCtx)
		results <- outcome[T]{value: v, err: err}
	}()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case r := <-results:
		return r.value, r.err
	case <-expired:
		return zero, &TimeoutError{Operation: operation, Timeout: timeout}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
