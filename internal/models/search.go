package models

// SearchEngine 搜索引擎标识
type SearchEngine string

const (
	EngineGoogle     SearchEngine = "google"
	EngineBing       SearchEngine = "bing"
	EngineDuckDuckGo SearchEngine = "ddg"
)

// ParseSearchEngine 解析搜索引擎名称, 未知名称回退到google
func ParseSearchEngine(name string) SearchEngine {
	switch name {
	case "bing":
		return EngineBing
	case "ddg", "duckduckgo":
		return EngineDuckDuckGo
	default:
		return EngineGoogle
	}
}

// SearchRequest deep_web_search 的参数
type SearchRequest struct {
	Query                  string
	MaxPages               int
	Engine                 SearchEngine
	Depth                  int
	ExtractRelevantContent bool
}

// RelevantParagraph 与查询相关的段落
type RelevantParagraph struct {
	Text           string `json:"text"`
	RelevanceScore int    `json:"relevance_score"`
}

// SearchPageResult 访问过的一个页面
type SearchPageResult struct {
	URL             string              `json:"url"`
	Title           string              `json:"title"`
	Source          string              `json:"source,omitempty"`
	LinkText        string              `json:"link_text,omitempty"`
	RelevantContent []RelevantParagraph `json:"relevant_content,omitempty"`
}

// RankedContent 跨页面排序后的相关内容
type RankedContent struct {
	Text           string `json:"text"`
	RelevanceScore int    `json:"relevance_score"`
	Source         string `json:"source"`
	Title          string `json:"title"`
}

// SearchReport deep_web_search 的返回值
type SearchReport struct {
	Query              string             `json:"query"`
	SearchEngine       SearchEngine       `json:"search_engine"`
	PagesVisited       int                `json:"pages_visited"`
	TotalSearchResults int                `json:"total_search_results"`
	Results            []SearchPageResult `json:"results"`
	TopRelevantContent []RankedContent    `json:"top_relevant_content,omitempty"`
	Status             string             `json:"status"`
	Error              string             `json:"error,omitempty"`
}

// AnswerSource 候选答案
type AnswerSource struct {
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
	Source string  `json:"source"`
	Title  string  `json:"title"`
}

// SearchMetadata 回答问题时的搜索统计
type SearchMetadata struct {
	PagesVisited       int `json:"pages_visited"`
	TotalSearchResults int `json:"total_search_results"`
}

// AnswerReport answer_question_from_web 的返回值
type AnswerReport struct {
	Status         string          `json:"status"`
	Message        string          `json:"message,omitempty"`
	Question       string          `json:"question"`
	QuestionType   string          `json:"question_type"`
	AnswerSources  []AnswerSource  `json:"answer_sources,omitempty"`
	Confidence     float64         `json:"confidence"`
	SearchMetadata *SearchMetadata `json:"search_metadata,omitempty"`
}
