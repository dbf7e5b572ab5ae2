package analyzer

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/RecoveryAshes/WebScope/internal/models"
)

// minContentLength 内容区的最小文本长度
const minContentLength = 500

var (
	contentSelectors = []string{
		"main", "#content", ".content", "article", ".post",
		".main-content", "#main-content", ".page-content",
	}
	sidebarSelectors = []string{
		"aside", ".sidebar", "#sidebar", ".widget-area", ".right-sidebar",
		".left-sidebar", ".side-content",
	}

	// nestedPatterns 常见的嵌套结构, 以 . 开头的步骤按class匹配
	nestedPatterns = [][]string{
		{"header", "nav"},
		{"nav", "ul", "li", "a"},
		{"main", "article"},
		{"article", "header", "main", "footer"},
		{"section", "article"},
		{".container", ".row", ".col"},
		{".card", ".card-header", ".card-body"},
	}
)

// ContentAreas 文本量足够的内容区
func ContentAreas(doc *goquery.Document) []models.AreaInfo {
	return collectAreas(doc, contentSelectors, minContentLength)
}

// SidebarAreas 侧边栏区域
func SidebarAreas(doc *goquery.Document) []models.AreaInfo {
	return collectAreas(doc, sidebarSelectors, -1)
}

func collectAreas(doc *goquery.Document, selectors []string, minText int) []models.AreaInfo {
	areas := []models.AreaInfo{}
	for _, selector := range selectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			length := textLength(s)
			if length <= minText {
				return
			}
			areas = append(areas, models.AreaInfo{
				Selector:      selector,
				TextLength:    length,
				ChildrenCount: s.Children().Length(),
			})
		})
	}
	return areas
}

// TopLevelElements body 的直接子元素
func TopLevelElements(doc *goquery.Document) []models.TopLevelElement {
	elements := []models.TopLevelElement{}
	doc.Find("body").First().Children().Each(func(_ int, s *goquery.Selection) {
		classes := strings.Fields(s.AttrOr("class", ""))
		if classes == nil {
			classes = []string{}
		}
		elements = append(elements, models.TopLevelElement{
			Tag:           goquery.NodeName(s),
			ID:            s.AttrOr("id", ""),
			Classes:       classes,
			ChildrenCount: s.Children().Length(),
			TextLength:    textLength(s),
		})
	})
	return elements
}

// NestedPatterns 检测常见嵌套结构
// 标签步骤只看直接子元素, class步骤看所有后代
func NestedPatterns(doc *goquery.Document) []models.NestedPattern {
	results := make([]models.NestedPattern, 0, len(nestedPatterns))
	for _, pattern := range nestedPatterns {
		result := models.NestedPattern{Pattern: strings.Join(pattern, " > ")}

		doc.Find(pattern[0]).EachWithBreak(func(_ int, start *goquery.Selection) bool {
			chain := []*goquery.Selection{start}
			current := start
			for _, step := range pattern[1:] {
				var next *goquery.Selection
				if strings.HasPrefix(step, ".") {
					next = current.Find(step)
				} else {
					next = current.ChildrenFiltered(step)
				}
				if next.Length() == 0 {
					return true
				}
				current = next.First()
				chain = append(chain, current)
			}

			result.Found = true
			result.Sample = patternSample(chain)
			return false
		})

		results = append(results, result)
	}
	return results
}

// patternSample tag.首个class 以 " > " 连接
func patternSample(chain []*goquery.Selection) string {
	parts := make([]string, len(chain))
	for i, s := range chain {
		part := goquery.NodeName(s)
		if classes := strings.Fields(s.AttrOr("class", "")); len(classes) > 0 {
			part += "." + classes[0]
		}
		parts[i] = part
	}
	return strings.Join(parts, " > ")
}

func sortClassCounts(counts []models.ClassCount) {
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
}
