package models

// FetchRequest crawl_url 的参数
type FetchRequest struct {
	URL              string
	Headers          map[string]string
	Params           map[string]string
	MaxContentLength int
	ExtractSelector  string
}

// SelectorCount 选择器及其匹配数量
type SelectorCount struct {
	Selector string `json:"selector"`
	Count    int    `json:"count"`
}

// FetchResult crawl_url 的返回值
type FetchResult struct {
	StatusCode         int             `json:"status_code"`
	ContentType        string          `json:"content_type"`
	URL                string          `json:"url"`
	ContentLength      int             `json:"content_length"`
	Title              *string         `json:"title,omitempty"`
	Text               string          `json:"text"`
	Truncated          bool            `json:"truncated"`
	ExtractedCount     *int            `json:"extracted_count,omitempty"`
	SuggestedSelectors []SelectorCount `json:"suggested_selectors,omitempty"`
	PageElements       map[string]int  `json:"page_elements,omitempty"`
}

// PageSnapshot 页面加载器的产物, 浏览器渲染和静态加载共用
type PageSnapshot struct {
	URL      string
	FinalURL string
	Title    string
	HTML     string
}
