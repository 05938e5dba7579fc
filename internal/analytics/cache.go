package analytics

import (
	"container/list"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores computed payloads as JSON. Keys embed a per-user generation:
// bumping it makes every earlier entry of that user unreachable.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Generation(ctx context.Context, userID uint) (int64, error)
	Bump(ctx context.Context, userID uint) error
}

// Key builds "dash:u<uid>:g<gen>:<kind>:<parts...>".
func Key(userID uint, gen int64, kind string, parts ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "dash:u%d:g%d:%s", userID, gen, kind)
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}

func genKey(userID uint) string { return fmt.Sprintf("dash:gen:u%d", userID) }

// RedisCache is shared by every server and worker instance.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache { return &RedisCache{rdb: rdb} }

func (c *RedisCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, b, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Generation(ctx context.Context, userID uint) (int64, error) {
	n, err := c.rdb.Get(ctx, genKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis generation: %w", err)
	}
	return n, nil
}

func (c *RedisCache) Bump(ctx context.Context, userID uint) error {
	if err := c.rdb.Incr(ctx, genKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis bump: %w", err)
	}
	return nil
}

// MemoryCache is a process-local LRU with TTL, used when no redis is configured.
type MemoryCache struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	lru     *list.List
	gens    map[uint]int64
	now     func() time.Time
}

type memItem struct {
	key       string
	data      []byte
	expiresAt time.Time
}

func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 1024
	}
	return &MemoryCache{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		gens:    make(map[uint]int64),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	elem, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		return false, nil
	}
	item := elem.Value.(*memItem)
	if c.now().After(item.expiresAt) {
		c.remove(elem)
		c.mu.Unlock()
		return false, nil
	}
	c.lru.MoveToFront(elem)
	data := item.data
	c.mu.Unlock()
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	item := &memItem{key: key, data: b, expiresAt: c.now().Add(ttl)}
	if elem, ok := c.items[key]; ok {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return nil
	}
	c.items[key] = c.lru.PushFront(item)
	for c.lru.Len() > c.maxSize {
		c.remove(c.lru.Back())
	}
	return nil
}

func (c *MemoryCache) Generation(_ context.Context, userID uint) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[userID], nil
}

func (c *MemoryCache) Bump(_ context.Context, userID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[userID]++
	prefix := fmt.Sprintf("dash:u%d:", userID)
	for key, elem := range c.items {
		if strings.HasPrefix(key, prefix) {
			c.remove(elem)
		}
	}
	return nil
}

// Len is the number of live and expired entries still held.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// CleanExpired drops expired entries and returns how many were removed.
func (c *MemoryCache) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for elem := c.lru.Back(); elem != nil; {
		prev := elem.Prev()
		if now.After(elem.Value.(*memItem).expiresAt) {
			c.remove(elem)
			n++
		}
		elem = prev
	}
	return n
}

func (c *MemoryCache) remove(elem *list.Element) {
	item := elem.Value.(*memItem)
	delete(c.items, item.key)
	c.lru.Remove(elem)
}
