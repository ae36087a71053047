/*
 * @author: sun977
 * @date: 2025.12.20
 * @description: 时钟抽象，定时扫描与审批决策通过注入时钟获取当前时间，便于测试控制时间
 * @func: Clock 接口 / SystemClock / FixedClock
 */

package utils

import (
	"sync"
	"time"
)

// Clock 时间来源抽象
type Clock interface {
	Now() time.Time
}

// SystemClock 系统时钟
type SystemClock struct{}

// Now 返回当前系统时间
func (SystemClock) Now() time.Time {
	return time.Now()
}

// NewSystemClock 创建系统时钟
func NewSystemClock() Clock {
	return SystemClock{}
}

// FixedClock 固定时钟，测试用，可手动推进
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock 创建固定时钟
func NewFixedClock(now time.Time) *FixedClock {
	return &FixedClock{now: now}
}

// Now 返回固定时间
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance 推进时钟
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set 设置时钟
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
