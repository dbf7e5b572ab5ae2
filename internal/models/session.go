package models

import "time"

// SessionStatus 会话状态
type SessionStatus string

const (
	SessionStarted SessionStatus = "started"
	SessionClosed  SessionStatus = "closed"
)

// BrowserType 目前只支持Chrome
const BrowserType = "Chrome"

// SessionInfo 会话对外可见的信息
type SessionInfo struct {
	SessionID   string        `json:"session_id"`
	Status      SessionStatus `json:"status"`
	BrowserType string        `json:"browser_type,omitempty"`
	Headless    bool          `json:"headless"`
	CreatedAt   time.Time     `json:"created_at"`
	LastUsed    time.Time     `json:"last_used"`
	CurrentURL  string        `json:"current_url,omitempty"`
}

// NavigationResult navigate_to_url 的返回值
type NavigationResult struct {
	Title      string `json:"title"`
	CurrentURL string `json:"current_url"`
}

// ScreenshotResult take_screenshot 的返回值
type ScreenshotResult struct {
	Filename     string `json:"filename"`
	AbsolutePath string `json:"absolute_path"`
	Status       string `json:"status"`
	Bytes        []byte `json:"-"`
}

// PageSource get_page_html 的返回值
type PageSource struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	ContentLength int    `json:"content_length"`
	HTML          string `json:"html"`
	Truncated     bool   `json:"truncated,omitempty"`
	SavedToFile   string `json:"saved_to_file,omitempty"`
}

// ElementInfo 被点击元素的描述
type ElementInfo struct {
	TagName    string            `json:"tag_name"`
	Text       string            `json:"text"`
	Attributes map[string]string `json:"attributes"`
}

// NavigationType 点击后的页面变化类型
type NavigationType string

const (
	NavigationURLChange    NavigationType = "url_change"
	NavigationInPageAction NavigationType = "in_page_action"
)

// ClickResult click_element_and_wait 的返回值
type ClickResult struct {
	Status         string         `json:"status"`
	OriginalURL    string         `json:"original_url"`
	ElementInfo    *ElementInfo   `json:"element_info,omitempty"`
	NavigationType NavigationType `json:"navigation_type,omitempty"`
	WaitDuration   float64        `json:"wait_duration"`
	NewURL         string         `json:"new_url,omitempty"`
	NewTitle       string         `json:"new_title,omitempty"`
	URLChanged     bool           `json:"url_changed"`
	Screenshot     string         `json:"screenshot,omitempty"`
	Warning        string         `json:"warning,omitempty"`
	Message        string         `json:"message,omitempty"`
	ErrorType      string         `json:"error_type,omitempty"`
	CurrentURL     string         `json:"current_url,omitempty"`
}

// Rect 元素在视口中的位置
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ClickableCandidate 页面脚本返回的原始可点击元素
type ClickableCandidate struct {
	Tag      string `json:"tag"`
	Text     string `json:"text"`
	Selector string `json:"selector"`
	ID       string `json:"id"`
	Class    string `json:"class"`
	Href     string `json:"href"`
	Type     string `json:"type"`
	Role     string `json:"role"`
	Position Rect   `json:"position"`
}

// ClickableElement 分类后的可点击元素
type ClickableElement struct {
	Text     string `json:"text"`
	Selector string `json:"selector"`
	ID       string `json:"id"`
	Class    string `json:"class"`
	Position Rect   `json:"position"`
	Href     string `json:"href,omitempty"`
	Type     string `json:"type,omitempty"`
}

// 可点击元素类别
const (
	ClickableLinks     = "links"
	ClickableButtons   = "buttons"
	ClickableInputs    = "inputs"
	ClickableMenuItems = "menu_items"
)

// DefaultClickableTypes find_clickable_elements 默认返回的类别
var DefaultClickableTypes = []string{ClickableLinks, ClickableButtons, ClickableInputs, ClickableMenuItems}

// ClickableReport find_clickable_elements 的返回值
type ClickableReport struct {
	URL               string                        `json:"url"`
	Title             string                        `json:"title"`
	ClickableElements map[string][]ClickableElement `json:"clickable_elements"`
	TotalClickable    int                           `json:"total_clickable"`
	Counts            map[string]int                `json:"counts"`
}
