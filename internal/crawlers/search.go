package crawlers

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/RecoveryAshes/WebScope/internal/analyzer"
	"github.com/RecoveryAshes/WebScope/internal/models"
	"github.com/RecoveryAshes/WebScope/internal/utils"
)

const (
	// DefaultSearchPages deep_web_search 默认最多访问的页面数
	DefaultSearchPages = 5
	// DefaultSearchDepth 默认深度, 大于1时跟进结果页中的相关链接
	DefaultSearchDepth = 2

	minParagraphLength  = 20
	paragraphsPerPage   = 3
	linksPerPage        = 2
	topRelevantContents = 5
)

var (
	// paragraphSelector 按块级元素切分段落
	paragraphSelector = "p, li, blockquote, pre, td, dd, h1, h2, h3, h4, h5, h6"
	blankLines        = regexp.MustCompile(`\n\s*\n|\r\n\s*\r\n|\r\s*\r`)
	spaces            = regexp.MustCompile(`\s+`)
)

// Searcher 搜索引擎 + 有界爬取
type Searcher struct {
	source        LoaderSource
	defaultEngine models.SearchEngine
}

// NewSearcher 创建搜索器
func NewSearcher(source LoaderSource, defaultEngine string) *Searcher {
	return &Searcher{
		source:        source,
		defaultEngine: models.ParseSearchEngine(defaultEngine),
	}
}

// DefaultEngine 未指定引擎时使用的搜索引擎
func (s *Searcher) DefaultEngine() models.SearchEngine {
	return s.defaultEngine
}

// Search 打开搜索结果页, 依次访问结果页面并按需跟进相关链接
// 失败体现在报告的 status/error 中, 已访问页面的结果会保留
func (s *Searcher) Search(ctx context.Context, req models.SearchRequest) *models.SearchReport {
	if req.MaxPages <= 0 {
		req.MaxPages = DefaultSearchPages
	}
	if req.Engine == "" {
		req.Engine = s.defaultEngine
	}
	req.Engine = models.ParseSearchEngine(string(req.Engine))

	report := &models.SearchReport{
		Query:        req.Query,
		SearchEngine: req.Engine,
		Results:      []models.SearchPageResult{},
		Status:       "success",
	}

	start := time.Now()
	utils.Infof("🔍 开始搜索: %q (引擎=%s, 最多%d页, 深度=%d)", req.Query, req.Engine, req.MaxPages, req.Depth)

	err := s.source.WithLoader(ctx, func(loader PageLoader) error {
		return s.crawl(ctx, loader, req, report)
	})
	if err != nil {
		report.Status = "error"
		report.Error = err.Error()
		utils.Warnf("搜索失败 [%s]: %v", req.Query, err)
	}

	if req.ExtractRelevantContent && len(report.Results) > 0 {
		report.TopRelevantContent = rankContent(report.Results, topRelevantContents)
	}

	utils.Infof("✅ 搜索完成: 访问 %d 个页面, 耗时 %v", report.PagesVisited, time.Since(start).Round(time.Millisecond))
	return report
}

func (s *Searcher) crawl(ctx context.Context, loader PageLoader, req models.SearchRequest, report *models.SearchReport) error {
	searchPage, err := loader.Load(ctx, SearchURL(req.Engine, req.Query))
	if err != nil {
		return fmt.Errorf("加载搜索结果页失败: %w", err)
	}
	doc, err := analyzer.Parse(searchPage.HTML)
	if err != nil {
		return err
	}

	hits := ExtractSearchResults(doc, req.Engine, searchPage.FinalURL)
	if len(hits) > req.MaxPages {
		hits = hits[:req.MaxPages]
	}
	report.TotalSearchResults = len(hits)

	titles := make(map[string]string, len(hits))
	queue := NewURLQueue(1)
	for _, hit := range hits {
		titles[hit.URL] = hit.Title
		if err := queue.Push(models.URLItem{URL: hit.URL}); err != nil {
			utils.Debugf("跳过搜索结果 [%s]: %v", hit.URL, err)
		}
	}

	terms := QueryTerms(req.Query)
	for {
		item, ok := queue.Pop()
		if !ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if queue.IsVisited(item.URL) {
			continue
		}
		if item.Depth > 0 && report.PagesVisited >= req.MaxPages {
			continue
		}

		utils.Debugf("访问页面 [%s] 深度=%d 待访问=%d", item.URL, item.Depth, queue.PendingCount())
		page, err := loader.Load(ctx, item.URL)
		queue.MarkVisited(item.URL)
		if err != nil {
			utils.Debugf("跳过无法加载的页面 [%s]: %v", item.URL, err)
			continue
		}
		report.PagesVisited++

		pageDoc, err := analyzer.Parse(page.HTML)
		if err != nil {
			continue
		}

		result := models.SearchPageResult{
			URL:             item.URL,
			Title:           page.Title,
			RelevantContent: []models.RelevantParagraph{},
		}
		if item.Depth == 0 && result.Title == "" {
			result.Title = titles[item.URL]
		}
		if item.Depth > 0 {
			result.Source = "Link from " + item.SourceURL
			result.LinkText = item.LinkText
		}

		// 提取段落会移除script/style, 先收集链接
		if item.Depth == 0 && req.Depth > 1 && report.PagesVisited < req.MaxPages {
			queue.PushNext(RelevantLinks(pageDoc, item.URL, terms, linksPerPage)...)
		}
		if req.ExtractRelevantContent {
			result.RelevantContent = RelevantParagraphs(pageDoc, terms)
		}

		report.Results = append(report.Results, result)
	}
}

// QueryTerms 按空白切分查询并去掉首尾标点
func QueryTerms(query string) []string {
	var terms []string
	for _, field := range strings.Fields(query) {
		term := strings.TrimFunc(field, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}

// RelevantParagraphs 包含查询词的段落, 按命中词数降序取前3
// 会从文档中移除 script 和 style
func RelevantParagraphs(doc *goquery.Document, terms []string) []models.RelevantParagraph {
	doc.Find("script, style").Remove()

	paragraphs := []models.RelevantParagraph{}
	for _, text := range splitParagraphs(doc) {
		if utf8.RuneCountInString(text) < minParagraphLength {
			continue
		}
		if score := relevanceScore(text, terms); score > 0 {
			paragraphs = append(paragraphs, models.RelevantParagraph{Text: text, RelevanceScore: score})
		}
	}

	sort.SliceStable(paragraphs, func(i, j int) bool {
		return paragraphs[i].RelevanceScore > paragraphs[j].RelevanceScore
	})
	if len(paragraphs) > paragraphsPerPage {
		paragraphs = paragraphs[:paragraphsPerPage]
	}
	return paragraphs
}

// splitParagraphs 块级元素的文本, 没有块级元素时按空行切分正文
func splitParagraphs(doc *goquery.Document) []string {
	var texts []string
	seen := make(map[string]bool)
	doc.Find(paragraphSelector).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(spaces.ReplaceAllString(s.Text(), " "))
		if text == "" || seen[text] {
			return
		}
		seen[text] = true
		texts = append(texts, text)
	})
	if len(texts) > 0 {
		return texts
	}

	for _, part := range blankLines.Split(doc.Find("body").Text(), -1) {
		if text := strings.TrimSpace(spaces.ReplaceAllString(part, " ")); text != "" {
			texts = append(texts, text)
		}
	}
	return texts
}

// relevanceScore 文本中出现的查询词数量, 不区分大小写
func relevanceScore(text string, terms []string) int {
	lower := strings.ToLower(text)
	score := 0
	for _, term := range terms {
		if strings.Contains(lower, strings.ToLower(term)) {
			score++
		}
	}
	return score
}

// rankContent 汇总所有页面的相关段落并排序
func rankContent(results []models.SearchPageResult, limit int) []models.RankedContent {
	ranked := []models.RankedContent{}
	for _, page := range results {
		for _, p := range page.RelevantContent {
			ranked = append(ranked, models.RankedContent{
				Text:           p.Text,
				RelevanceScore: p.RelevanceScore,
				Source:         page.URL,
				Title:          page.Title,
			})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RelevanceScore > ranked[j].RelevanceScore
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
