package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/rs/zerolog/log"

	"github.com/RecoveryAshes/WebScope/internal/analyzer"
	"github.com/RecoveryAshes/WebScope/internal/models"
	"github.com/RecoveryAshes/WebScope/internal/utils"
)

const (
	// maxComponents 组件层级结果保留的组件数
	maxComponents = 15
	// maxMediaQueries 响应式分析返回的媒体查询条数
	maxMediaQueries = 10
	// minColumnWidth 参与多栏判断的子元素最小宽度
	minColumnWidth = 200
	// sidebarRatio 最窄栏小于最宽栏的该比例时视为侧边栏布局
	sidebarRatio = 0.4
)

// LayoutCandidate 页面脚本返回的 grid/flex 元素
type LayoutCandidate struct {
	Element             string    `json:"element"`
	Display             string    `json:"display"`
	GridTemplateColumns string    `json:"gridTemplateColumns"`
	FlexDirection       string    `json:"flexDirection"`
	ChildWidths         []float64 `json:"childWidths"`
}

type layoutScan struct {
	Containers []models.ContainerInfo `json:"containers"`
	Candidates []LayoutCandidate      `json:"candidates"`
}

type componentScan struct {
	Components     []models.Component `json:"components"`
	ViewportHeight float64            `json:"viewportHeight"`
	PageHeight     float64            `json:"pageHeight"`
}

// AnalyzeLayout 结合渲染结果与HTML分析页面布局
func (s *Session) AnalyzeLayout(ctx context.Context) (*models.PageLayoutAnalysis, error) {
	var scan layoutScan
	var html string

	err := s.run(ctx, func(p *rod.Page) error {
		if err := evalJSON(p, layoutScript, &scan); err != nil {
			return err
		}
		var err error
		html, err = p.HTML()
		return err
	})
	if err != nil {
		return nil, err
	}

	multi, sidebars := ClassifyColumns(scan.Candidates)
	result := &models.PageLayoutAnalysis{
		LayoutType:         ClassifyLayout(multi, sidebars),
		Containers:         nonNil(scan.Containers),
		MultiColumnLayouts: multi,
		SidebarLayouts:     sidebars,
		ContentAreas:       []models.AreaInfo{},
		SidebarAreas:       []models.AreaInfo{},
	}

	if doc, err := analyzer.Parse(html); err == nil {
		result.ContentAreas = analyzer.ContentAreas(doc)
		result.SidebarAreas = analyzer.SidebarAreas(doc)
	} else {
		log.Warn().Err(err).Msg("解析页面源码失败, 跳过静态布局分析")
	}
	return result, nil
}

// ClassifyColumns 从候选元素中挑出多栏布局和侧边栏布局
// grid 需要多轨道模板, flex 需要横向排列, 只统计宽于200px的子元素
func ClassifyColumns(candidates []LayoutCandidate) ([]models.MultiColumnLayout, []models.SidebarLayout) {
	multi := []models.MultiColumnLayout{}
	sidebars := []models.SidebarLayout{}

	for _, c := range candidates {
		if !isColumnContainer(c) {
			continue
		}

		var widths []float64
		for _, w := range c.ChildWidths {
			if w > minColumnWidth {
				widths = append(widths, w)
			}
		}
		if len(widths) < 2 {
			continue
		}

		multi = append(multi, models.MultiColumnLayout{
			Element:      c.Element,
			Display:      c.Display,
			ColumnCount:  len(widths),
			ColumnWidths: widths,
		})

		smallest, largest := widths[0], widths[0]
		for _, w := range widths[1:] {
			if w < smallest {
				smallest = w
			}
			if w > largest {
				largest = w
			}
		}
		if smallest < largest*sidebarRatio {
			sidebars = append(sidebars, models.SidebarLayout{
				Element:          c.Element,
				Display:          c.Display,
				SidebarWidth:     smallest,
				MainContentWidth: largest,
			})
		}
	}
	return multi, sidebars
}

func isColumnContainer(c LayoutCandidate) bool {
	switch {
	case strings.HasSuffix(c.Display, "grid"):
		tracks := strings.TrimSpace(c.GridTemplateColumns)
		return tracks != "" && tracks != "none" && strings.Contains(tracks, " ")
	case strings.HasSuffix(c.Display, "flex"):
		return c.FlexDirection == "" || strings.HasPrefix(c.FlexDirection, "row")
	}
	return false
}

// ClassifyLayout 侧边栏优先于多栏, 都没有则为单栏
func ClassifyLayout(multi []models.MultiColumnLayout, sidebars []models.SidebarLayout) string {
	switch {
	case len(sidebars) > 0:
		return models.LayoutSidebar
	case len(multi) > 0:
		return models.LayoutMultiColumn
	default:
		return models.LayoutSingleColumn
	}
}

// AnalyzeComponentHierarchy 组件层级与页面分区
func (s *Session) AnalyzeComponentHierarchy(ctx context.Context) (*models.ComponentHierarchy, error) {
	var scan componentScan
	var html string

	err := s.run(ctx, func(p *rod.Page) error {
		if err := evalJSON(p, componentScript, &scan); err != nil {
			return err
		}
		var err error
		html, err = p.HTML()
		return err
	})
	if err != nil {
		return nil, err
	}

	components := nonNil(scan.Components)
	result := &models.ComponentHierarchy{
		ComponentHierarchy: components,
		PageRegions:        AssignRegions(components, scan.ViewportHeight, scan.PageHeight),
		TopLevelElements:   []models.TopLevelElement{},
		NestedPatterns:     []models.NestedPattern{},
		TotalComponents:    len(components),
	}
	if len(components) > maxComponents {
		result.ComponentHierarchy = components[:maxComponents]
	}

	if doc, err := analyzer.Parse(html); err == nil {
		result.TopLevelElements = analyzer.TopLevelElements(doc)
		result.NestedPatterns = analyzer.NestedPatterns(doc)
	} else {
		log.Warn().Err(err).Msg("解析页面源码失败, 跳过静态结构分析")
	}
	return result, nil
}

// AssignRegions 按组件顶部的绝对位置划分页头/内容/页脚
// 区间允许重叠, 一个组件可以同时出现在多个分区
func AssignRegions(components []models.Component, viewportHeight, pageHeight float64) map[string][]models.RegionElement {
	bounds := []struct {
		name       string
		start, end float64
	}{
		{"header", 0, viewportHeight * 0.3},
		{"content", viewportHeight * 0.2, viewportHeight * 0.8},
		{"footer", pageHeight - viewportHeight*0.3, pageHeight},
	}

	regions := make(map[string][]models.RegionElement, len(bounds))
	for _, b := range bounds {
		members := []models.RegionElement{}
		for _, c := range components {
			if c.Position.Top >= b.start && c.Position.Top <= b.end {
				members = append(members, models.RegionElement{Type: c.Type, ID: c.ID, Classes: c.Classes})
			}
		}
		regions[b.name] = members
	}
	return regions
}

// AnalyzeResponsive 依次切换标准视口, 记录布局与截图
func (s *Session) AnalyzeResponsive(ctx context.Context) (*models.ResponsiveAnalysis, error) {
	var layouts []models.ViewportLayout
	var html string
	shots := make(map[int][]byte)

	err := s.run(ctx, func(p *rod.Page) (err error) {
		defer func() {
			if clearErr := clearViewport(p); clearErr != nil {
				log.Warn().Err(clearErr).Msg("恢复视口失败")
			}
		}()

		for i, vp := range models.StandardViewports {
			if err := setViewport(p, vp.Width, vp.Height); err != nil {
				return fmt.Errorf("切换视口 %s 失败: %w", vp.Name, err)
			}
			if err := sleep(p.GetContext(), s.opts.SettleDelay); err != nil {
				return err
			}

			var snap models.LayoutSnapshot
			if err := evalJSON(p, layoutSnapshotScript, &snap); err != nil {
				return err
			}
			layouts = append(layouts, models.ViewportLayout{Viewport: vp, LayoutInfo: snap})

			if data, err := screenshot(p); err == nil {
				shots[i] = data
			} else {
				log.Warn().Err(err).Str("viewport", vp.Name).Msg("视口截图失败")
			}
		}

		html, err = p.HTML()
		return err
	})
	if err != nil {
		return nil, err
	}

	for i, data := range shots {
		name := utils.TimestampedName("viewport_"+layouts[i].Viewport.Name, "png")
		if path, err := saveFile(s.opts.ScreenshotDir, name, data); err == nil {
			layouts[i].Screenshot = path
		}
	}

	result := &models.ResponsiveAnalysis{
		ViewportLayouts:     layouts,
		DetectedBreakpoints: DetectBreakpoints(layouts),
		MediaQueries:        []models.MediaQueryRule{},
	}
	if doc, err := analyzer.Parse(html); err == nil {
		result.MediaQueries = analyzer.MediaQueryRules(doc, maxMediaQueries)
	}
	result.IsResponsive = len(result.DetectedBreakpoints) > 0 || len(result.MediaQueries) > 0
	return result, nil
}

// DetectBreakpoints 比较相邻视口的布局类型与菜单状态
func DetectBreakpoints(layouts []models.ViewportLayout) []models.Breakpoint {
	breakpoints := []models.Breakpoint{}
	for i := 1; i < len(layouts); i++ {
		prev, cur := layouts[i-1], layouts[i]

		var changes []models.PropertyChange
		if prev.LayoutInfo.LayoutType != cur.LayoutInfo.LayoutType {
			changes = append(changes, models.PropertyChange{
				Property: "layoutType",
				From:     prev.LayoutInfo.LayoutType,
				To:       cur.LayoutInfo.LayoutType,
			})
		}
		if prev.LayoutInfo.MenuState != cur.LayoutInfo.MenuState {
			changes = append(changes, models.PropertyChange{
				Property: "menuState",
				From:     prev.LayoutInfo.MenuState,
				To:       cur.LayoutInfo.MenuState,
			})
		}

		if len(changes) > 0 {
			breakpoints = append(breakpoints, models.Breakpoint{
				LowerWidth: prev.Viewport.Width,
				UpperWidth: cur.Viewport.Width,
				Changes:    changes,
			})
		}
	}
	return breakpoints
}

// CategorizeClickables 按类别归档可点击元素
// 每个元素只归入一个类别, 依次判断链接、按钮、输入框、菜单项;
// clickable_elements 只包含请求的类别, counts 总是给出全部四类
func CategorizeClickables(candidates []models.ClickableCandidate, types []string) *models.ClickableReport {
	if len(types) == 0 {
		types = models.DefaultClickableTypes
	}

	categories := map[string][]models.ClickableElement{
		models.ClickableLinks:     {},
		models.ClickableButtons:   {},
		models.ClickableInputs:    {},
		models.ClickableMenuItems: {},
	}

	for _, c := range candidates {
		el := models.ClickableElement{
			Text:     c.Text,
			Selector: c.Selector,
			ID:       c.ID,
			Class:    c.Class,
			Position: c.Position,
		}

		switch {
		case c.Tag == "a":
			el.Href = c.Href
			categories[models.ClickableLinks] = append(categories[models.ClickableLinks], el)
		case c.Tag == "button" || c.Role == "button":
			el.Type = c.Type
			categories[models.ClickableButtons] = append(categories[models.ClickableButtons], el)
		case c.Tag == "input":
			el.Type = c.Type
			categories[models.ClickableInputs] = append(categories[models.ClickableInputs], el)
		case isMenuItem(c.Class):
			categories[models.ClickableMenuItems] = append(categories[models.ClickableMenuItems], el)
		}
	}

	report := &models.ClickableReport{
		ClickableElements: make(map[string][]models.ClickableElement, len(types)),
		Counts:            make(map[string]int, len(categories)),
		TotalClickable:    len(candidates),
	}
	for name, items := range categories {
		report.Counts[name] = len(items)
	}
	for _, t := range types {
		if items, ok := categories[t]; ok {
			report.ClickableElements[t] = items
		}
	}
	return report
}

func isMenuItem(class string) bool {
	for _, marker := range []string{"menu-item", "nav-item", "dropdown-item"} {
		if strings.Contains(class, marker) {
			return true
		}
	}
	return false
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
