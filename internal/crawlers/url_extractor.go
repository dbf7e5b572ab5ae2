package crawlers

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/RecoveryAshes/WebScope/internal/models"
)

// SearchHit 搜索结果页中的一条结果
type SearchHit struct {
	URL   string
	Title string
}

var (
	searchBaseURLs = map[models.SearchEngine]string{
		models.EngineGoogle:     "https://www.google.com/search?q=",
		models.EngineBing:       "https://www.bing.com/search?q=",
		models.EngineDuckDuckGo: "https://duckduckgo.com/?q=",
	}
	resultSelectors = map[models.SearchEngine]string{
		models.EngineGoogle:     "div.g div.yuRUbf > a, div.g h3.LC20lb",
		models.EngineBing:       "li.b_algo h2 a",
		models.EngineDuckDuckGo: ".result__a",
	}
)

// SearchURL 搜索引擎结果页地址, 未知引擎使用google
func SearchURL(engine models.SearchEngine, query string) string {
	base, ok := searchBaseURLs[engine]
	if !ok {
		base = searchBaseURLs[models.EngineGoogle]
	}
	return base + url.QueryEscape(query)
}

// ExtractSearchResults 从结果页提取结果链接, 按URL去重并保持页面顺序
// google的标题元素 h3 取其所在的 a 作为链接
func ExtractSearchResults(doc *goquery.Document, engine models.SearchEngine, pageURL string) []SearchHit {
	selector, ok := resultSelectors[engine]
	if !ok {
		selector = resultSelectors[models.EngineGoogle]
	}
	base, _ := url.Parse(pageURL)

	hits := []SearchHit{}
	seen := make(map[string]bool)
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		anchor, title := s, strings.TrimSpace(s.Text())
		switch goquery.NodeName(s) {
		case "h3":
			anchor = s.Closest("a")
			if anchor.Length() == 0 {
				return
			}
		case "a":
			if engine == models.EngineGoogle {
				title = "No title"
				if h3 := s.Find("h3").First(); h3.Length() > 0 {
					title = strings.TrimSpace(h3.Text())
				}
			}
		}

		link, ok := absoluteLink(base, anchor.AttrOr("href", ""))
		if !ok || seen[link] {
			return
		}
		seen[link] = true
		hits = append(hits, SearchHit{URL: link, Title: title})
	})
	return hits
}

// absoluteLink 解析为绝对http(s)地址
func absoluteLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return "", false
	}
	return ref.String(), true
}

// ShouldFollowLink 只跟进以 http 或 / 开头的链接, 排除 javascript:、mailto: 等
func ShouldFollowLink(href string) bool {
	return strings.HasPrefix(href, "http") || strings.HasPrefix(href, "/")
}

// RelevantLinks 锚文本包含任一查询词的链接, 最多 limit 个
// 以 / 开头的链接按页面的源站补全
func RelevantLinks(doc *goquery.Document, pageURL string, terms []string, limit int) []models.URLItem {
	origin, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	origin = &url.URL{Scheme: origin.Scheme, Host: origin.Host}

	var links []models.URLItem
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.ToLower(strings.TrimSpace(s.Text()))
		href := s.AttrOr("href", "")
		if !containsTerm(text, terms) || !ShouldFollowLink(href) {
			return true
		}

		link := href
		if strings.HasPrefix(href, "/") {
			resolved, ok := absoluteLink(origin, href)
			if !ok {
				return true
			}
			link = resolved
		}

		links = append(links, models.URLItem{
			URL:       link,
			Depth:     1,
			SourceURL: pageURL,
			LinkText:  text,
		})
		return len(links) < limit
	})
	return links
}

// containsTerm 文本(已小写)是否包含任一查询词
func containsTerm(lowerText string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(lowerText, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
