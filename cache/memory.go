package cache

import (
	"context"
	"sync"
	"time"
)

// Memory 进程内 LRU 结果缓存。
type Memory struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*lruNode
	head     *lruNode // 最近使用
	tail     *lruNode // 最久未使用
}

type lruNode struct {
	key       string
	entry     *Entry
	expiresAt time.Time
	prev      *lruNode
	next      *lruNode
}

// NewMemory 创建进程内缓存。capacity <= 0 取 1000，ttl <= 0 取 24h。
func NewMemory(capacity int, ttl time.Duration) *Memory {
	if capacity <= 0 {
		capacity = 1000
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Memory{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*lruNode),
	}
}

// Get 返回缓存条目；过期或不存在返回 ErrCacheMiss。
func (c *Memory) Get(_ context.Context, key string) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.items[key]
	if !ok {
		return nil, ErrCacheMiss
	}

	// 检查过期
	if time.Now().After(node.expiresAt) {
		c.removeNode(node)
		delete(c.items, key)
		return nil, ErrCacheMiss
	}

	// 移动到头部（O(1) 操作）
	c.moveToHead(node)
	return node.entry, nil
}

// Set 写入条目；容量满时淘汰最久未使用的。
func (c *Memory) Set(_ context.Context, key string, entry *Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 如果已存在，更新并移动到头部
	if node, ok := c.items[key]; ok {
		node.entry = entry
		node.expiresAt = time.Now().Add(c.ttl)
		c.moveToHead(node)
		return nil
	}

	// 检查容量，淘汰最久未使用的
	if len(c.items) >= c.capacity && c.tail != nil {
		delete(c.items, c.tail.key)
		c.removeNode(c.tail)
	}

	node := &lruNode{
		key:       key,
		entry:     entry,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.items[key] = node
	c.addToHead(node)
	return nil
}

// Close 清空缓存。
func (c *Memory) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*lruNode)
	c.head = nil
	c.tail = nil
	return nil
}

// Len 返回当前条目数（含未被惰性清理的过期条目）。
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Memory) addToHead(node *lruNode) {
	node.prev = nil
	node.next = c.head
	if c.head != nil {
		c.head.prev = node
	}
	c.head = node
	if c.tail == nil {
		c.tail = node
	}
}

func (c *Memory) removeNode(node *lruNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		c.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		c.tail = node.prev
	}
	node.prev = nil
	node.next = nil
}

func (c *Memory) moveToHead(node *lruNode) {
	if c.head == node {
		return
	}
	c.removeNode(node)
	c.addToHead(node)
}
