package analyzer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gorilla/css/scanner"

	"github.com/RecoveryAshes/WebScope/internal/models"
)

var (
	mediaWidthPattern = regexp.MustCompile(`(min-width|max-width):\s*(\d+)(px|rem|em)`)
	inlineFontSize    = regexp.MustCompile(`font-size:\s*([^;}]+)[;}]`)
)

// styleBlocks 所有 <style> 元素的文本
func styleBlocks(doc *goquery.Document) []string {
	var blocks []string
	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		if text := s.Text(); strings.TrimSpace(text) != "" {
			blocks = append(blocks, text)
		}
	})
	return blocks
}

// mediaHeads 扫描样式表中的 @media 规则头, 形如 "@media (max-width: 768px) {"
func mediaHeads(css string) []string {
	var heads []string
	s := scanner.New(css)

	for {
		tok := s.Next()
		if tok.Type == scanner.TokenEOF || tok.Type == scanner.TokenError {
			return heads
		}
		if tok.Type != scanner.TokenAtKeyword || !strings.EqualFold(tok.Value, "@media") {
			continue
		}

		var b strings.Builder
		b.WriteString(tok.Value)
		for {
			next := s.Next()
			if next.Type == scanner.TokenEOF || next.Type == scanner.TokenError {
				return heads
			}
			if next.Type == scanner.TokenComment {
				continue
			}
			b.WriteString(next.Value)
			if next.Type == scanner.TokenChar && (next.Value == "{" || next.Value == ";") {
				break
			}
		}
		if head := b.String(); strings.HasSuffix(head, "{") {
			heads = append(heads, head)
		}
	}
}

// declarationValues 收集样式表中某个属性的全部取值
func declarationValues(css, property string) []string {
	var values []string
	s := scanner.New(css)

	for {
		tok := s.Next()
		if tok.Type == scanner.TokenEOF || tok.Type == scanner.TokenError {
			return values
		}
		if tok.Type != scanner.TokenIdent || !strings.EqualFold(tok.Value, property) {
			continue
		}

		next := skipSpace(s)
		if next.Type != scanner.TokenChar || next.Value != ":" {
			continue
		}

		var b strings.Builder
		for {
			v := s.Next()
			if v.Type == scanner.TokenEOF || v.Type == scanner.TokenError {
				return values
			}
			if v.Type == scanner.TokenChar && (v.Value == ";" || v.Value == "}") {
				break
			}
			if v.Type != scanner.TokenComment {
				b.WriteString(v.Value)
			}
		}
		if value := strings.TrimSpace(b.String()); value != "" {
			values = append(values, value)
		}
	}
}

func skipSpace(s *scanner.Scanner) *scanner.Token {
	for {
		tok := s.Next()
		if tok.Type != scanner.TokenS && tok.Type != scanner.TokenComment {
			return tok
		}
	}
}

// RawMediaQueries 原样返回的 @media 规则头, 最多 limit 条
func RawMediaQueries(doc *goquery.Document, limit int) []string {
	queries := []string{}
	for _, block := range styleBlocks(doc) {
		for _, head := range mediaHeads(block) {
			if len(queries) >= limit {
				return queries
			}
			queries = append(queries, head)
		}
	}
	return queries
}

// MediaQueryRules 含宽度条件的媒体查询, 最多 limit 条
func MediaQueryRules(doc *goquery.Document, limit int) []models.MediaQueryRule {
	rules := []models.MediaQueryRule{}
	for _, block := range styleBlocks(doc) {
		for _, head := range mediaHeads(block) {
			if len(rules) >= limit {
				return rules
			}
			query := strings.TrimSpace(strings.TrimSuffix(head[len("@media"):], "{"))
			m := mediaWidthPattern.FindStringSubmatch(query)
			if m == nil {
				continue
			}
			value, _ := strconv.Atoi(m[2])
			rules = append(rules, models.MediaQueryRule{
				Type:      m[1],
				Value:     value,
				Unit:      m[3],
				FullQuery: query,
			})
		}
	}
	return rules
}

// FontFamilies <style> 中声明的 font-family, 最多 limit 条
func FontFamilies(doc *goquery.Document, limit int) []string {
	families := []string{}
	for _, block := range styleBlocks(doc) {
		for _, value := range declarationValues(block, "font-family") {
			if len(families) >= limit {
				return families
			}
			families = append(families, value)
		}
	}
	return families
}

// InlineFontSizes 行内样式中的 font-size, 最多 limit 条
func InlineFontSizes(doc *goquery.Document, limit int) []string {
	sizes := []string{}
	doc.Find("[style]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		style := s.AttrOr("style", "")
		if !strings.Contains(style, "font-size") {
			return true
		}
		if m := inlineFontSize.FindStringSubmatch(style); m != nil {
			sizes = append(sizes, strings.TrimSpace(m[1]))
		}
		return len(sizes) < limit
	})
	return sizes
}

var cssURL = regexp.MustCompile(`url\(\s*['"]?([^'")]+?)['"]?\s*\)`)

// BackgroundImageURLs 样式表中 background 与 background-image 引用的图片地址, 去重, 忽略 data: URI
func BackgroundImageURLs(css string) []string {
	urls := []string{}
	seen := make(map[string]bool)
	for _, property := range []string{"background-image", "background"} {
		for _, value := range declarationValues(css, property) {
			for _, m := range cssURL.FindAllStringSubmatch(value, -1) {
				ref := strings.TrimSpace(m[1])
				if ref == "" || seen[ref] || strings.HasPrefix(ref, "data:") {
					continue
				}
				seen[ref] = true
				urls = append(urls, ref)
			}
		}
	}
	return urls
}

// StyleSheets 页面内联 <style> 的文本
func StyleSheets(doc *goquery.Document) []string {
	return styleBlocks(doc)
}
