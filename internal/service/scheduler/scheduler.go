/**
 * 服务层:后台任务调度器
 * @author: sun977
 * @date: 2025.12.20
 * @description: 固定间隔的后台任务运行器(升级/提醒/逾期/清理各自独立周期)
 * @func:
 * 1.按任务注册的间隔独立轮询
 * 2.同名任务不重入(上一轮未结束则跳过本轮)
 * 3.任务panic被吞掉并记日志,不影响调度器本身
 */
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"approvalmaster/internal/pkg/logger"
)

// JobFunc 单次任务执行函数
type JobFunc func(ctx context.Context) error

// job 注册的后台任务
type job struct {
	name     string
	interval time.Duration
	run      JobFunc
	running  int32 // 0空闲 1执行中
}

// Scheduler 后台任务调度器
type Scheduler struct {
	jobs     []*job
	stopChan chan struct{}
	wg       sync.WaitGroup
	started  bool
	mu       sync.Mutex
}

// NewScheduler 创建调度器实例
func NewScheduler() *Scheduler {
	return &Scheduler{
		stopChan: make(chan struct{}),
	}
}

// Register 注册后台任务
// 间隔必须为正，调度器启动后不再接受注册
func (s *Scheduler) Register(name string, interval time.Duration, run JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("scheduler already started")
	}
	if interval <= 0 {
		return fmt.Errorf("job %s interval must be positive", name)
	}
	s.jobs = append(s.jobs, &job{
		name:     name,
		interval: interval,
		run:      run,
	})
	return nil
}

// Start 启动调度器
// 每个任务独立goroutine轮询，互不阻塞
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	logger.LogInfo("Starting background scheduler...", "", 0, "", "service.scheduler.Start", "", map[string]interface{}{
		"jobs": len(s.jobs),
	})

	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, j)
	}
}

// Stop 停止调度器并等待在途任务结束
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
	logger.LogInfo("Background scheduler stopped", "", 0, "", "service.scheduler.Stop", "", nil)
}

// loop 单任务轮询循环
func (s *Scheduler) loop(ctx context.Context, j *job) {
	defer s.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runOnce(ctx, j)
		}
	}
}

// runOnce 执行单轮任务
// 上一轮仍在执行时跳过，panic被捕获后调度继续
func (s *Scheduler) runOnce(ctx context.Context, j *job) {
	if !atomic.CompareAndSwapInt32(&j.running, 0, 1) {
		logger.LogWarn("Job still running, skipping this round", "", 0, "", "", "", map[string]interface{}{
			"job": j.name,
		})
		return
	}
	defer atomic.StoreInt32(&j.running, 0)

	defer func() {
		if r := recover(); r != nil {
			logger.LogError(fmt.Errorf("job panic: %v", r), "", 0, "", "service.scheduler.runOnce", "", map[string]interface{}{
				"job": j.name,
			})
		}
	}()

	start := time.Now()
	if err := j.run(ctx); err != nil {
		logger.LogError(err, "", 0, "", "service.scheduler.runOnce", "", map[string]interface{}{
			"job":      j.name,
			"duration": time.Since(start).String(),
		})
		return
	}
}

// TriggerNow 立即触发一次指定任务（管理端点使用）
func (s *Scheduler) TriggerNow(ctx context.Context, name string) error {
	for _, j := range s.jobs {
		if j.name == name {
			s.runOnce(ctx, j)
			return nil
		}
	}
	return fmt.Errorf("job %s not registered", name)
}

// JobNames 返回已注册的任务名列表
func (s *Scheduler) JobNames() []string {
	names := make([]string, 0, len(s.jobs))
	for _, j := range s.jobs {
		names = append(names, j.name)
	}
	return names
}
