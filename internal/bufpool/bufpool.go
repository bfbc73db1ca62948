// Package bufpool provides recycled byte buffers for encode hot paths.
// 网关每次调用都要编码请求信封，轮询下高频分配，复用缓冲以减压 GC。
package bufpool

import (
	"bytes"
	"sync"
	"sync/atomic"
)

const (
	// defaultCap 新建缓冲的初始容量，按请求信封的典型大小取值
	defaultCap = 4096
	// maxRetainedCap 超过该容量的缓冲不回池，防止个别大负载长期占用内存
	maxRetainedCap = 1 << 20
)

// Pool recycles bytes.Buffer instances across encode operations.
// Create one with New; the zero value is not usable.
type Pool struct {
	pool sync.Pool

	// Metrics
	gets atomic.Int64
	puts atomic.Int64
	news atomic.Int64
}

// New creates a buffer pool. Fresh buffers start at capacity, or at a
// sensible default when capacity <= 0.
func New(capacity int) *Pool {
	if capacity <= 0 {
		capacity = defaultCap
	}
	p := &Pool{}
	p.pool.New = func() any {
		p.news.Add(1)
		return bytes.NewBuffer(make([]byte, 0, capacity))
	}
	return p
}

// Get retrieves an empty buffer from the pool.
func (p *Pool) Get() *bytes.Buffer {
	p.gets.Add(1)
	return p.pool.Get().(*bytes.Buffer)
}

// Put resets the buffer and returns it to the pool.
func (p *Pool) Put(b *bytes.Buffer) {
	if b == nil || b.Cap() > maxRetainedCap {
		return
	}
	b.Reset()
	p.puts.Add(1)
	p.pool.Put(b)
}

// Stats returns usage counters for the pool.
func (p *Pool) Stats() Stats {
	return Stats{
		Gets: p.gets.Load(),
		Puts: p.puts.Load(),
		News: p.news.Load(),
	}
}

// Stats contains pool usage counters.
type Stats struct {
	Gets int64 `json:"gets"`
	Puts int64 `json:"puts"`
	News int64 `json:"news"`
}

// HitRate reports the share of Gets served without allocating.
func (s Stats) HitRate() float64 {
	if s.Gets == 0 {
		return 0
	}
	return float64(s.Gets-s.News) / float64(s.Gets)
}
