// Package analyzer 对HTML文本做纯函数式的结构分析, 不访问网络和浏览器
package analyzer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/RecoveryAshes/WebScope/internal/models"
)

// maxKeywordMatches 每个关键字保留的匹配数
const maxKeywordMatches = 5

// Parse 解析HTML文本
func Parse(source string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("解析HTML失败: %w", err)
	}
	return doc, nil
}

// ValidateSelector 检查CSS选择器语法
func ValidateSelector(selector string) error {
	if _, err := cascadia.Compile(selector); err != nil {
		return &models.ValidationError{
			Field:      "selector",
			Reason:     fmt.Sprintf("无效的CSS选择器 %q: %v", selector, err),
			Suggestion: "检查选择器语法, 例如 div.content > p",
		}
	}
	return nil
}

type selectorGroup struct {
	name      string
	selectors []string
}

var (
	containerGroups = []selectorGroup{
		{"articles", []string{"article", "article.post", "article.news", "article.content"}},
		{"main_content", []string{"main", ".main", ".content", ".post-content", ".article-content"}},
		{"lists", []string{".list", "ul.posts", ".news-list", ".article-list"}},
	}
	componentGroups = []selectorGroup{
		{"headlines", []string{"h1", "h2.title", ".headline", ".post-title"}},
		{"text_content", []string{"p", ".text", ".content p", "article p"}},
		{"dates", []string{"time", ".date", ".timestamp", ".published"}},
	}
)

// FindSelectors 统计常见内容选择器的命中数, 并按关键字定位文本节点
func FindSelectors(doc *goquery.Document, keywords []string) *models.SelectorReport {
	report := &models.SelectorReport{
		CommonContainers:  countGroups(doc, containerGroups),
		ContentComponents: countGroups(doc, componentGroups),
		KeywordMatches:    make(map[string][]models.KeywordMatch),
	}

	for _, keyword := range keywords {
		if matches := matchKeyword(doc, keyword); len(matches) > 0 {
			report.KeywordMatches[keyword] = matches
		}
	}
	return report
}

func countGroups(doc *goquery.Document, groups []selectorGroup) map[string][]models.SelectorCount {
	result := make(map[string][]models.SelectorCount, len(groups))
	for _, g := range groups {
		result[g.name] = CountSelectors(doc.Selection, g.selectors)
	}
	return result
}

// CountSelectors 返回命中数大于0的选择器
func CountSelectors(sel *goquery.Selection, selectors []string) []models.SelectorCount {
	counts := []models.SelectorCount{}
	for _, s := range selectors {
		if n := sel.Find(s).Length(); n > 0 {
			counts = append(counts, models.SelectorCount{Selector: s, Count: n})
		}
	}
	return counts
}

// keywordPattern 不区分大小写, 非法正则按字面量匹配
func keywordPattern(keyword string) *regexp.Regexp {
	if re, err := regexp.Compile("(?i)" + keyword); err == nil {
		return re
	}
	return regexp.MustCompile("(?i)" + regexp.QuoteMeta(keyword))
}

func matchKeyword(doc *goquery.Document, keyword string) []models.KeywordMatch {
	pattern := keywordPattern(keyword)
	var matches []models.KeywordMatch

	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.TextNode && n.Parent != nil && n.Parent.Type == html.ElementNode && pattern.MatchString(n.Data) {
			sample := strings.TrimSpace(n.Data)
			if sample == "" {
				sample = "[No text]"
			} else {
				sample = truncateRunes(sample, 100)
			}
			matches = append(matches, models.KeywordMatch{
				Selector:    nodeSelector(n.Parent),
				TextSample:  sample,
				ElementType: n.Parent.Data,
			})
			if len(matches) >= maxKeywordMatches {
				return false
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}

	for _, root := range doc.Nodes {
		if !walk(root) {
			break
		}
	}
	return matches
}

// nodeSelector tag.class1.class2 形式的选择器
func nodeSelector(n *html.Node) string {
	classes := strings.Fields(attr(n, "class"))
	if len(classes) == 0 {
		return n.Data
	}
	return n.Data + "." + strings.Join(classes, ".")
}

// ParseHTML 不带选择器时返回标题和链接, 带选择器时返回匹配元素
func ParseHTML(doc *goquery.Document, selector string) (interface{}, error) {
	if selector == "" {
		links := []string{}
		doc.Find("a").Each(func(_ int, a *goquery.Selection) {
			if href, ok := a.Attr("href"); ok && href != "" {
				links = append(links, href)
			}
		})
		return &models.PageLinks{Title: Title(doc), Links: links}, nil
	}

	if err := ValidateSelector(selector); err != nil {
		return nil, err
	}

	result := &models.SelectionResult{Results: []models.ParsedElement{}}
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		outer, _ := goquery.OuterHtml(s)
		result.Results = append(result.Results, models.ParsedElement{
			Text:  StrippedText(s),
			HTML:  outer,
			Attrs: attrMap(s),
		})
	})
	result.Count = len(result.Results)
	return result, nil
}

// Title 页面 <title> 文本
func Title(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// StrippedText 逐个文本节点去除首尾空白后拼接
func StrippedText(s *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(strings.TrimSpace(n.Data))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return b.String()
}

func textLength(s *goquery.Selection) int {
	return utf8.RuneCountInString(StrippedText(s))
}

func attrMap(s *goquery.Selection) map[string]string {
	attrs := make(map[string]string)
	if len(s.Nodes) == 0 {
		return attrs
	}
	for _, a := range s.Nodes[0].Attr {
		attrs[a.Key] = a.Val
	}
	return attrs
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// classString 规范化后的class属性
func classString(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.AttrOr("class", "")), " ")
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func containsAny(s string, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
