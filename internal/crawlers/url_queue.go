package crawlers

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/RecoveryAshes/WebScope/internal/models"
)

// URLQueue 搜索爬取的URL前沿
// 职责: 管理待访问和已访问的URL, 跟进链接插在队首, 使其紧随来源页面被访问
type URLQueue struct {
	// 待处理URL
	pending []models.URLItem

	// 已访问URL标记集合
	visited map[string]bool

	mu sync.Mutex

	// 最大深度, 结果页自身为0
	maxDepth int
}

// NewURLQueue 创建URL队列
func NewURLQueue(maxDepth int) *URLQueue {
	return &URLQueue{
		visited:  make(map[string]bool),
		maxDepth: maxDepth,
	}
}

// validate 检查协议、深度和是否已访问, 调用方持有锁
func (q *URLQueue) validate(item models.URLItem) error {
	parsedURL, err := url.Parse(item.URL)
	if err != nil {
		return fmt.Errorf("URL格式无效: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("不支持的协议: %s", parsedURL.Scheme)
	}
	if item.Depth > q.maxDepth {
		return fmt.Errorf("深度超过限制: %d > %d", item.Depth, q.maxDepth)
	}
	if q.visited[item.URL] {
		return fmt.Errorf("URL已访问: %s", item.URL)
	}
	return nil
}

// Push 追加到队尾
func (q *URLQueue) Push(item models.URLItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.validate(item); err != nil {
		return err
	}
	q.pending = append(q.pending, item)
	return nil
}

// PushNext 按原顺序插入到队首, 返回接受的数量
func (q *URLQueue) PushNext(items ...models.URLItem) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	accepted := make([]models.URLItem, 0, len(items))
	for _, item := range items {
		if q.validate(item) == nil {
			accepted = append(accepted, item)
		}
	}
	q.pending = append(accepted, q.pending...)
	return len(accepted)
}

// Pop 取出下一个待访问URL, 队列为空时返回false
func (q *URLQueue) Pop() (models.URLItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return models.URLItem{}, false
	}
	item := q.pending[0]
	q.pending = q.pending[1:]
	return item, true
}

// MarkVisited 标记URL为已访问
func (q *URLQueue) MarkVisited(urlStr string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.visited[urlStr] = true
}

// IsVisited 检查URL是否已访问
func (q *URLQueue) IsVisited(urlStr string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.visited[urlStr]
}

// PendingCount 返回当前待处理URL数量
func (q *URLQueue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
