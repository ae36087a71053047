package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestScheduler_Register 测试任务注册约束
func TestScheduler_Register(t *testing.T) {
	sched := NewScheduler()

	noop := func(ctx context.Context) error { return nil }

	err := sched.Register("auto_escalation", time.Minute, noop)
	assert.NoError(t, err)

	// 间隔必须为正
	err = sched.Register("bad_interval", 0, noop)
	assert.Error(t, err)
	err = sched.Register("bad_interval", -time.Second, noop)
	assert.Error(t, err)

	assert.Equal(t, []string{"auto_escalation"}, sched.JobNames())

	// 启动后不再接受注册
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)
	defer sched.Stop()

	err = sched.Register("late_job", time.Minute, noop)
	assert.Error(t, err)
}

// TestScheduler_TriggerNow 测试手动触发
func TestScheduler_TriggerNow(t *testing.T) {
	sched := NewScheduler()
	ctx := context.Background()

	var count int64
	err := sched.Register("counter", time.Hour, func(ctx context.Context) error {
		atomic.AddInt64(&count, 1)
		return nil
	})
	assert.NoError(t, err)

	// 未启动也可手动触发
	err = sched.TriggerNow(ctx, "counter")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), atomic.LoadInt64(&count))

	err = sched.TriggerNow(ctx, "no_such_job")
	assert.Error(t, err)
}

// TestScheduler_StartStop 测试周期执行与停止
func TestScheduler_StartStop(t *testing.T) {
	sched := NewScheduler()

	var count int64
	err := sched.Register("ticker_job", 10*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt64(&count, 1)
		return nil
	})
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)
	time.Sleep(60 * time.Millisecond)
	sched.Stop()

	executed := atomic.LoadInt64(&count)
	assert.Greater(t, executed, int64(0))

	// 停止后不再执行
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, executed, atomic.LoadInt64(&count))
}

// TestScheduler_PanicRecovery 测试任务panic不影响调度器
func TestScheduler_PanicRecovery(t *testing.T) {
	sched := NewScheduler()
	ctx := context.Background()

	err := sched.Register("panic_job", time.Hour, func(ctx context.Context) error {
		panic("boom")
	})
	assert.NoError(t, err)
	var count int64
	err = sched.Register("error_job", time.Hour, func(ctx context.Context) error {
		atomic.AddInt64(&count, 1)
		return fmt.Errorf("transient failure")
	})
	assert.NoError(t, err)

	// panic 被捕获，错误被吞掉记日志
	assert.NotPanics(t, func() {
		_ = sched.TriggerNow(ctx, "panic_job")
	})
	err = sched.TriggerNow(ctx, "error_job")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), atomic.LoadInt64(&count))
}
