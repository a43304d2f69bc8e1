package llm

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
)

// responseCache 进程内 LRU 缓存，按 cache seed + 请求内容寻址
type responseCache struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	order   *list.List
	hits    int64
	misses  int64
}

type cacheEntry struct {
	key      string
	response ChatResponse
}

func newResponseCache(maxSize int) *responseCache {
	if maxSize <= 0 {
		maxSize = 256
	}
	return &responseCache{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

func (c *responseCache) get(key string) (ChatResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return ChatResponse{}, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).response, true
}

func (c *responseCache) put(key string, resp ChatResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*cacheEntry).response = resp
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&cacheEntry{key: key, response: resp})
	for c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
}

func (c *responseCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

type cacheKeyMessage struct {
	Role    string `json:"role"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

// cacheKey 只取影响输出的字段，忽略消息 ID 与时间戳
func cacheKey(seed int, req *ChatRequest) string {
	msgs := make([]cacheKeyMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = cacheKeyMessage{Role: string(m.Role), Name: m.Name, Content: m.Content}
	}
	data, err := json.Marshal(struct {
		Seed        int               `json:"seed"`
		Model       string            `json:"model"`
		Temperature float32           `json:"temperature"`
		Messages    []cacheKeyMessage `json:"messages"`
	}{seed, req.Model, req.Temperature, msgs})
	if err != nil {
		data = []byte(fmt.Sprintf("%d|%v", seed, req))
	}
	hash := sha256.Sum256(data)
	return "llm:cache:" + hex.EncodeToString(hash[:16])
}
