package models

// URLItem 搜索爬取前沿中的一个待访问页面
type URLItem struct {
	URL string

	// Depth 0 为搜索结果页直接给出的链接, 1 为从结果页中跟进的链接
	Depth int

	// SourceURL 发现此链接的页面, 结果中以 "Link from <url>" 展示
	SourceURL string

	// LinkText 发现此链接时的锚文本
	LinkText string
}
