package utils

import (
	"sync"
	"time"
)

// Clock 毫秒时钟
type Clock interface {
	NowMs() int64
}

// SystemClock 系统时钟
type SystemClock struct{}

// NowMs 当前Unix毫秒
func (SystemClock) NowMs() int64 {
	return time.Now().UnixMilli()
}

// ManualClock 手动推进的时钟，用于测试
type ManualClock struct {
	mu  sync.Mutex
	now int64
}

// NewManualClock 创建手动时钟
func NewManualClock(startMs int64) *ManualClock {
	return &ManualClock{now: startMs}
}

// NowMs 当前毫秒
func (c *ManualClock) NowMs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set 设置时间
func (c *ManualClock) Set(ms int64) {
	c.mu.Lock()
	c.now = ms
	c.mu.Unlock()
}

// Advance 向前推进
func (c *ManualClock) Advance(d time.Duration) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d.Milliseconds()
	return c.now
}
