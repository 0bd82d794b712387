package dbtools

import (
	"fmt"
	"sync"

	"github.com/Kaguya154/dbic/types"
)

// Cache 按 SQL 文本缓存的对象（通常是预编译语句），超出容量时淘汰最早放入的一项。
type Cache[V any] struct {
	mu      sync.Mutex
	limit   int
	items   map[string]V
	order   []string
	onEvict func(key string, v V)
}

// NewCache limit <= 0 表示不限制容量
func NewCache[V any](limit int, onEvict func(key string, v V)) *Cache[V] {
	return &Cache[V]{
		limit:   limit,
		items:   make(map[string]V),
		onEvict: onEvict,
	}
}

func MakeKey(driver types.DriverKind, op types.OpType, sql string) string {
	return fmt.Sprintf("%s:%s:%s", driver, op.String(), sql)
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *Cache[V]) Set(key string, v V) {
	c.mu.Lock()
	var evicted []string
	var evictedVals []V
	if old, ok := c.items[key]; ok {
		c.items[key] = v
		c.mu.Unlock()
		if c.onEvict != nil {
			c.onEvict(key, old)
		}
		return
	}
	c.items[key] = v
	c.order = append(c.order, key)
	for c.limit > 0 && len(c.order) > c.limit {
		k := c.order[0]
		c.order = c.order[1:]
		evicted = append(evicted, k)
		evictedVals = append(evictedVals, c.items[k])
		delete(c.items, k)
	}
	c.mu.Unlock()

	if c.onEvict != nil {
		for i, k := range evicted {
			c.onEvict(k, evictedVals[i])
		}
	}
}

func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear 清空缓存并对每一项调用淘汰回调
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	items := c.items
	order := c.order
	c.items = make(map[string]V)
	c.order = nil
	c.mu.Unlock()

	if c.onEvict != nil {
		for _, k := range order {
			c.onEvict(k, items[k])
		}
	}
}
