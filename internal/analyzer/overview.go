package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/RecoveryAshes/WebScope/internal/models"
)

const (
	maxContainers   = 10
	maxClassCounts  = 10
	maxRawQueries   = 10
	maxButtons      = 20
	maxForms        = 5
	maxFormInputs   = 10
	maxNavMenus     = 3
	maxNavLinks     = 10
	maxCards        = 10
	maxFontEntries  = 10
	maxHeadingShots = 3
)

var (
	cookiePattern     = regexp.MustCompile(`(?i)cookie|consent|gdpr`)
	socialPattern     = regexp.MustCompile(`(?i)share|twitter|facebook|linkedin|social`)
	newsletterPattern = regexp.MustCompile(`(?i)newsletter|subscribe|signup`)
)

// MetaTags name 或 content 非空的 <meta> 标签
func MetaTags(doc *goquery.Document) []models.MetaTag {
	tags := []models.MetaTag{}
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name, content := s.AttrOr("name", ""), s.AttrOr("content", "")
		if name != "" || content != "" {
			tags = append(tags, models.MetaTag{Name: name, Content: content})
		}
	})
	return tags
}

// Layout 基于静态HTML的布局分析
func Layout(doc *goquery.Document) *models.LayoutAnalysis {
	layout := &models.LayoutAnalysis{
		BodyAttributes:    attrMap(doc.Find("body").First()),
		ContainerElements: []models.ContainerElement{},
	}

	for _, tag := range []string{"div", "main", "section", "header", "footer", "nav", "aside"} {
		doc.Find(tag + "[class]").Each(func(_ int, s *goquery.Selection) {
			class := classString(s)
			if !containsAny(strings.ToLower(class), "container", "wrapper", "layout", "main", "content") {
				return
			}
			layout.ContainerElements = append(layout.ContainerElements, models.ContainerElement{
				Tag:           tag,
				Class:         class,
				ID:            s.AttrOr("id", ""),
				Width:         s.AttrOr("width", ""),
				ChildrenCount: s.Children().Length(),
			})
		})
	}
	if len(layout.ContainerElements) > maxContainers {
		layout.ContainerElements = layout.ContainerElements[:maxContainers]
	}

	grid, flex := newClassCounter(), newClassCounter()
	doc.Find("[class]").Each(func(_ int, s *goquery.Selection) {
		class := classString(s)
		lower := strings.ToLower(class)
		if containsAny(lower, "grid", "row", "col") {
			grid.add(class)
		}
		if containsAny(lower, "flex", "display-flex") {
			flex.add(class)
		}
	})
	layout.GridElements = grid.top(maxClassCounts)
	layout.FlexElements = flex.top(maxClassCounts)

	layout.ResponsiveElements.MediaQueries = RawMediaQueries(doc, maxRawQueries)
	if viewport := doc.Find(`meta[name="viewport"]`).First(); viewport.Length() > 0 {
		content := viewport.AttrOr("content", "")
		layout.ResponsiveElements.Viewport = &content
	}

	layout.TwoColumnLayout = twoColumnLayout(doc)
	return layout
}

// twoColumnLayout 根据侧边栏的class和相邻元素推断侧边栏位置
func twoColumnLayout(doc *goquery.Document) models.TwoColumnLayout {
	result := models.TwoColumnLayout{SidebarPosition: "none"}
	sidebars := doc.Find("aside, .sidebar, #sidebar")
	if sidebars.Length() == 0 {
		return result
	}
	result.Detected = true

	sidebars.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class := strings.ToLower(classString(s))
		if containsAny(class, "left", "start") {
			result.SidebarPosition = "left"
			return false
		}
		if containsAny(class, "right", "end") {
			result.SidebarPosition = "right"
		}

		const mainContent = "main, .content, article"
		if next := s.Next(); next.Length() > 0 && next.Find(mainContent).Length() > 0 {
			result.SidebarPosition = "left"
		} else if prev := s.Prev(); prev.Length() > 0 && prev.Find(mainContent).Length() > 0 {
			result.SidebarPosition = "right"
		}
		return true
	})
	return result
}

// Components 按钮、表单、导航、卡片与侧边栏内容
func Components(doc *goquery.Document) *models.ComponentAnalysis {
	components := &models.ComponentAnalysis{
		Buttons:         []models.Button{},
		Forms:           []models.Form{},
		Navigation:      []models.NavMenu{},
		Cards:           []models.Card{},
		SidebarElements: []models.SidebarElement{},
	}

	doc.Find("button").Each(func(_ int, s *goquery.Selection) {
		disabled := s.Is("[disabled]")
		components.Buttons = append(components.Buttons, models.Button{
			Text:     strings.TrimSpace(s.Text()),
			Class:    classString(s),
			ID:       s.AttrOr("id", ""),
			Type:     s.AttrOr("type", ""),
			Disabled: &disabled,
		})
	})
	doc.Find("a[class]").Each(func(_ int, s *goquery.Selection) {
		class := classString(s)
		if !containsAny(strings.ToLower(class), "btn", "button") {
			return
		}
		components.Buttons = append(components.Buttons, models.Button{
			Text:        strings.TrimSpace(s.Text()),
			Class:       class,
			ID:          s.AttrOr("id", ""),
			Href:        s.AttrOr("href", ""),
			ElementType: "a",
		})
	})
	if len(components.Buttons) > maxButtons {
		components.Buttons = components.Buttons[:maxButtons]
	}

	doc.Find("form").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		form := models.Form{
			Action: s.AttrOr("action", ""),
			Method: s.AttrOr("method", ""),
			Class:  classString(s),
			ID:     s.AttrOr("id", ""),
			Inputs: []models.FormInput{},
		}
		s.Find("input, select, textarea").EachWithBreak(func(_ int, in *goquery.Selection) bool {
			form.Inputs = append(form.Inputs, models.FormInput{
				Type:        in.AttrOr("type", goquery.NodeName(in)),
				Name:        in.AttrOr("name", ""),
				ID:          in.AttrOr("id", ""),
				Placeholder: in.AttrOr("placeholder", ""),
				Required:    in.Is("[required]"),
			})
			return len(form.Inputs) < maxFormInputs
		})
		components.Forms = append(components.Forms, form)
		return len(components.Forms) < maxForms
	})

	doc.Find("nav, ul, ol").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name := goquery.NodeName(s)
		class := classString(s)
		if name != "nav" && !containsAny(strings.ToLower(class), "menu", "nav", "navigation") {
			return true
		}
		menu := models.NavMenu{Type: name, Class: class, ID: s.AttrOr("id", ""), Links: []models.NavLink{}}
		s.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			menu.Links = append(menu.Links, models.NavLink{
				Text:  strings.TrimSpace(a.Text()),
				Href:  a.AttrOr("href", ""),
				Class: classString(a),
			})
			return len(menu.Links) < maxNavLinks
		})
		components.Navigation = append(components.Navigation, menu)
		return len(components.Navigation) < maxNavMenus
	})

	doc.Find("[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class := classString(s)
		if !containsAny(strings.ToLower(class), "card", "panel", "box", "tile") {
			return true
		}
		components.Cards = append(components.Cards, models.Card{
			Tag:       goquery.NodeName(s),
			Class:     class,
			ID:        s.AttrOr("id", ""),
			Heading:   strings.TrimSpace(s.Find("h1, h2, h3, h4, h5, h6").First().Text()),
			HasImage:  s.Find("img").Length() > 0,
			HasButton: s.Find("button, a").Length() > 0,
		})
		return len(components.Cards) < maxCards
	})

	components.SidebarElements = sidebarElements(doc)
	return components
}

var sidebarContentSelectors = []string{"aside", ".sidebar", "#sidebar", ".widget-area", ".right-sidebar", ".left-sidebar"}

func sidebarElements(doc *goquery.Document) []models.SidebarElement {
	elements := []models.SidebarElement{}
	for _, selector := range sidebarContentSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			el := models.SidebarElement{
				Selector: selector,
				ID:       s.AttrOr("id", ""),
				Class:    classString(s),
				Contains: []string{},
			}
			if s.Find("form input[type=search], form input[type=text]").Length() > 0 {
				el.Contains = append(el.Contains, "search")
			}
			popular := false
			s.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, h *goquery.Selection) {
				if containsAny(strings.ToLower(h.Text()), "popular", "recent", "trending", "featured") {
					popular = true
				}
			})
			if popular {
				el.Contains = append(el.Contains, "popular_content")
			}
			if s.Find("ul li a, .tag, .category").Length() > 0 {
				el.Contains = append(el.Contains, "categories_or_tags")
			}
			elements = append(elements, el)
		})
	}
	return elements
}

// Typography 字体、字号、标题与字体相关class
func Typography(doc *goquery.Document) *models.TypographyAnalysis {
	typography := &models.TypographyAnalysis{
		FontFamilies: FontFamilies(doc, maxFontEntries),
		FontSizes:    InlineFontSizes(doc, maxFontEntries),
		Headings:     make(map[string]models.HeadingStats),
	}

	for level := 1; level <= 6; level++ {
		tag := fmt.Sprintf("h%d", level)
		headings := doc.Find(tag)
		if headings.Length() == 0 {
			continue
		}
		stats := models.HeadingStats{Count: headings.Length()}
		headings.Slice(0, min(headings.Length(), maxHeadingShots)).Each(func(_ int, h *goquery.Selection) {
			stats.Samples = append(stats.Samples, models.HeadingSample{
				Text:  strings.TrimSpace(h.Text()),
				Class: classString(h),
				ID:    h.AttrOr("id", ""),
			})
		})
		typography.Headings[tag] = stats
	}

	fonts := newClassCounter()
	doc.Find("[class]").Each(func(_ int, s *goquery.Selection) {
		class := classString(s)
		if containsAny(strings.ToLower(class), "font", "text", "type") {
			fonts.add(class)
		}
	})
	typography.FontClasses = fonts.top(maxClassCounts)
	return typography
}

// DetectUXPatterns 常见交互模式
func DetectUXPatterns(doc *goquery.Document, source string) *models.UXPatterns {
	hasClass := func(term string) bool {
		found := false
		doc.Find("[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			found = strings.Contains(strings.ToLower(s.AttrOr("class", "")), term)
			return !found
		})
		return found
	}
	formMatches := func(term string) bool {
		found := false
		doc.Find("form").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			found = strings.Contains(strings.ToLower(s.AttrOr("id", "")), term) ||
				strings.Contains(strings.ToLower(s.AttrOr("class", "")), term)
			return !found
		})
		return found
	}

	return &models.UXPatterns{
		HasCookieConsent:    cookiePattern.MatchString(source),
		HasLoginForm:        formMatches("login"),
		HasSearch:           doc.Find(`input[type="search"]`).Length() > 0 || formMatches("search"),
		HasSocialSharing:    socialPattern.MatchString(source),
		HasNewsletterSignup: newsletterPattern.MatchString(source),
		HasBreadcrumbs:      hasClass("breadcrumb"),
		HasPagination:       hasClass("pagination"),
		HasDropdownMenu:     hasClass("dropdown"),
		HasAccordion:        hasClass("accordion"),
		HasTabs:             hasClass("tab") && !hasClass("table"),
	}
}

// Structure 侧边栏与搜索框位置
func Structure(doc *goquery.Document) *models.PageStructure {
	structure := &models.PageStructure{
		HasSidebar:         doc.Find("aside, .sidebar, #sidebar").Length() > 0,
		HasSearchInSidebar: doc.Find("aside form input[type=search], .sidebar form input[type=search]").Length() > 0,
		SearchPosition:     "unknown",
	}

	inHeader := false
	doc.Find("input[type=search], form input[placeholder*=search]").Each(func(_ int, s *goquery.Selection) {
		parents := s.Parents()
		if parents.FilterFunction(isSidebarNode).Length() > 0 {
			structure.SearchPosition = "sidebar"
			return
		}
		if parents.FilterFunction(isHeaderNode).Length() > 0 {
			inHeader = true
		}
	})
	if structure.SearchPosition == "unknown" && inHeader {
		structure.SearchPosition = "header"
	}
	return structure
}

func isSidebarNode(_ int, s *goquery.Selection) bool {
	if goquery.NodeName(s) == "aside" {
		return true
	}
	for _, class := range strings.Fields(s.AttrOr("class", "")) {
		if class == "sidebar" || class == "widget-area" {
			return true
		}
	}
	return false
}

func isHeaderNode(_ int, s *goquery.Selection) bool {
	return goquery.NodeName(s) == "header" || strings.Contains(s.AttrOr("class", ""), "header")
}

// classCounter 按出现次数排序, 次数相同时保持首次出现的顺序
type classCounter struct {
	order  []string
	counts map[string]int
}

func newClassCounter() *classCounter {
	return &classCounter{counts: make(map[string]int)}
}

func (c *classCounter) add(class string) {
	if _, ok := c.counts[class]; !ok {
		c.order = append(c.order, class)
	}
	c.counts[class]++
}

func (c *classCounter) top(n int) []models.ClassCount {
	result := make([]models.ClassCount, 0, len(c.order))
	for _, class := range c.order {
		result = append(result, models.ClassCount{Class: class, Count: c.counts[class]})
	}
	// 稳定排序保证同频class的先后顺序
	sortClassCounts(result)
	if len(result) > n {
		result = result[:n]
	}
	return result
}
