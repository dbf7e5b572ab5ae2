package models

import (
	"encoding/json"
	"fmt"
)

// KeywordMatch 关键字命中的文本节点
type KeywordMatch struct {
	Selector    string `json:"selector"`
	TextSample  string `json:"text_sample"`
	ElementType string `json:"element_type"`
}

// SelectorReport find_selectors 的返回值
type SelectorReport struct {
	CommonContainers  map[string][]SelectorCount `json:"common_containers"`
	ContentComponents map[string][]SelectorCount `json:"content_components"`
	KeywordMatches    map[string][]KeywordMatch  `json:"keyword_matches"`
}

// PageLinks parse_html 不带选择器时的返回值
type PageLinks struct {
	Title string   `json:"title"`
	Links []string `json:"links"`
}

// ParsedElement 选择器命中的元素
type ParsedElement struct {
	Text  string            `json:"text"`
	HTML  string            `json:"html"`
	Attrs map[string]string `json:"attrs"`
}

// SelectionResult parse_html 带选择器时的返回值
type SelectionResult struct {
	Count   int             `json:"count"`
	Results []ParsedElement `json:"results"`
}

// MetaTag <meta> 标签
type MetaTag struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ClassCount class 字符串及出现次数, 序列化为 [class, count]
type ClassCount struct {
	Class string
	Count int
}

// MarshalJSON 实现json.Marshaler
func (c ClassCount) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{c.Class, c.Count})
}

// UnmarshalJSON 实现json.Unmarshaler
func (c *ClassCount) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("class统计格式错误: %s", data)
	}
	if err := json.Unmarshal(pair[0], &c.Class); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &c.Count)
}

// ContainerElement 布局容器
type ContainerElement struct {
	Tag           string `json:"tag"`
	Class         string `json:"class"`
	ID            string `json:"id"`
	Width         string `json:"width"`
	ChildrenCount int    `json:"children_count"`
}

// ResponsiveElements 静态可见的响应式线索
type ResponsiveElements struct {
	MediaQueries []string `json:"media_queries"`
	Viewport     *string  `json:"viewport"`
}

// TwoColumnLayout 双栏布局检测结果
type TwoColumnLayout struct {
	Detected        bool   `json:"detected"`
	SidebarPosition string `json:"sidebar_position"`
}

// LayoutAnalysis 基于HTML的布局分析
type LayoutAnalysis struct {
	BodyAttributes     map[string]string  `json:"body_attributes"`
	ContainerElements  []ContainerElement `json:"container_elements"`
	GridElements       []ClassCount       `json:"grid_elements"`
	FlexElements       []ClassCount       `json:"flex_elements"`
	ResponsiveElements ResponsiveElements `json:"responsive_elements"`
	TwoColumnLayout    TwoColumnLayout    `json:"two_column_layout"`
}

// Button 按钮或按钮样式的链接
type Button struct {
	Text        string `json:"text"`
	Class       string `json:"class"`
	ID          string `json:"id"`
	Type        string `json:"type,omitempty"`
	Disabled    *bool  `json:"disabled,omitempty"`
	Href        string `json:"href,omitempty"`
	ElementType string `json:"element_type,omitempty"`
}

// FormInput 表单控件
type FormInput struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	ID          string `json:"id"`
	Placeholder string `json:"placeholder"`
	Required    bool   `json:"required"`
}

// Form 表单
type Form struct {
	Action string      `json:"action"`
	Method string      `json:"method"`
	Class  string      `json:"class"`
	ID     string      `json:"id"`
	Inputs []FormInput `json:"inputs"`
}

// NavLink 导航链接
type NavLink struct {
	Text  string `json:"text"`
	Href  string `json:"href"`
	Class string `json:"class"`
}

// NavMenu 导航菜单
type NavMenu struct {
	Type  string    `json:"type"`
	Class string    `json:"class"`
	ID    string    `json:"id"`
	Links []NavLink `json:"links"`
}

// Card 卡片类组件
type Card struct {
	Tag       string `json:"tag"`
	Class     string `json:"class"`
	ID        string `json:"id"`
	Heading   string `json:"heading"`
	HasImage  bool   `json:"has_image"`
	HasButton bool   `json:"has_button"`
}

// SidebarElement 侧边栏及其内容
type SidebarElement struct {
	Selector string   `json:"selector"`
	ID       string   `json:"id"`
	Class    string   `json:"class"`
	Contains []string `json:"contains"`
}

// ComponentAnalysis 组件清单
type ComponentAnalysis struct {
	Buttons         []Button         `json:"buttons"`
	Forms           []Form           `json:"forms"`
	Navigation      []NavMenu        `json:"navigation"`
	Cards           []Card           `json:"cards"`
	SidebarElements []SidebarElement `json:"sidebar_elements"`
}

// HeadingSample 标题样本
type HeadingSample struct {
	Text  string `json:"text"`
	Class string `json:"class"`
	ID    string `json:"id"`
}

// HeadingStats 某一级标题的统计
type HeadingStats struct {
	Count   int             `json:"count"`
	Samples []HeadingSample `json:"samples"`
}

// TypographyAnalysis 字体排印
type TypographyAnalysis struct {
	FontFamilies []string                `json:"font_families"`
	FontSizes    []string                `json:"font_sizes"`
	Headings     map[string]HeadingStats `json:"headings"`
	FontClasses  []ClassCount            `json:"font_classes"`
}

// UXPatterns 常见交互模式
type UXPatterns struct {
	HasCookieConsent    bool `json:"has_cookie_consent"`
	HasLoginForm        bool `json:"has_login_form"`
	HasSearch           bool `json:"has_search"`
	HasSocialSharing    bool `json:"has_social_sharing"`
	HasNewsletterSignup bool `json:"has_newsletter_signup"`
	HasBreadcrumbs      bool `json:"has_breadcrumbs"`
	HasPagination       bool `json:"has_pagination"`
	HasDropdownMenu     bool `json:"has_dropdown_menu"`
	HasAccordion        bool `json:"has_accordion"`
	HasTabs             bool `json:"has_tabs"`
}

// PageStructure 页面骨架
type PageStructure struct {
	HasSidebar         bool   `json:"has_sidebar"`
	HasSearchInSidebar bool   `json:"has_search_in_sidebar"`
	SearchPosition     string `json:"search_position"`
}

// HSL 色相(度) 饱和度/亮度(百分比)
type HSL struct {
	H int `json:"h"`
	S int `json:"s"`
	L int `json:"l"`
}

// ColorSwatch 截图中的主要颜色
type ColorSwatch struct {
	Hex       string  `json:"hex"`
	RGB       [3]int  `json:"rgb"`
	HSL       HSL     `json:"hsl"`
	Type      string  `json:"type"`
	Frequency float64 `json:"frequency"`
}

// AreaInfo 内容区或侧边栏区域
type AreaInfo struct {
	Selector      string `json:"selector"`
	TextLength    int    `json:"text_length"`
	ChildrenCount int    `json:"children_count"`
}

// TopLevelElement body 的直接子元素
type TopLevelElement struct {
	Tag           string   `json:"tag"`
	ID            string   `json:"id"`
	Classes       []string `json:"classes"`
	ChildrenCount int      `json:"children_count"`
	TextLength    int      `json:"text_length"`
}

// NestedPattern 嵌套结构模式的检测结果
type NestedPattern struct {
	Pattern string `json:"pattern"`
	Found   bool   `json:"found"`
	Sample  string `json:"sample,omitempty"`
}

// MediaQueryRule 媒体查询中的宽度条件
type MediaQueryRule struct {
	Type      string `json:"type"`
	Value     int    `json:"value"`
	Unit      string `json:"unit"`
	FullQuery string `json:"full_query"`
}

// ContainerInfo 渲染后的布局容器
type ContainerInfo struct {
	Tag      string            `json:"tag"`
	ID       string            `json:"id"`
	Classes  []string          `json:"classes"`
	Width    float64           `json:"width"`
	Height   float64           `json:"height"`
	Layout   map[string]string `json:"layout"`
	Children int               `json:"children"`
	Path     string            `json:"path"`
}

// MultiColumnLayout 多栏布局
type MultiColumnLayout struct {
	Element      string    `json:"element"`
	Display      string    `json:"display"`
	ColumnCount  int       `json:"columnCount"`
	ColumnWidths []float64 `json:"columnWidths"`
}

// SidebarLayout 侧边栏布局
type SidebarLayout struct {
	Element          string  `json:"element"`
	Display          string  `json:"display"`
	SidebarWidth     float64 `json:"sidebarWidth"`
	MainContentWidth float64 `json:"mainContentWidth"`
}

// 布局类型
const (
	LayoutSidebar      = "sidebar-layout"
	LayoutMultiColumn  = "multi-column"
	LayoutSingleColumn = "single-column"
)

// PageLayoutAnalysis analyze_page_layout 的返回值
type PageLayoutAnalysis struct {
	LayoutType         string              `json:"layout_type"`
	Containers         []ContainerInfo     `json:"containers"`
	MultiColumnLayouts []MultiColumnLayout `json:"multi_column_layouts"`
	SidebarLayouts     []SidebarLayout     `json:"sidebar_layouts"`
	ContentAreas       []AreaInfo          `json:"content_areas"`
	SidebarAreas       []AreaInfo          `json:"sidebar_areas"`
}

// Size 元素尺寸
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Position 元素在文档中的位置
type Position struct {
	Top  float64 `json:"top"`
	Left float64 `json:"left"`
}

// ComponentChild 组件的直接子元素
type ComponentChild struct {
	Type        string   `json:"type"`
	Classes     []string `json:"classes"`
	ID          string   `json:"id"`
	Size        Size     `json:"size"`
	HasChildren bool     `json:"hasChildren"`
}

// Component 页面组件
type Component struct {
	Type        string           `json:"type"`
	Classes     []string         `json:"classes"`
	ID          string           `json:"id"`
	Children    []ComponentChild `json:"children"`
	Size        Size             `json:"size"`
	Position    Position         `json:"position"`
	IsVisible   bool             `json:"isVisible"`
	TextContent string           `json:"textContent"`
}

// RegionElement 页面分区中的组件
type RegionElement struct {
	Type    string   `json:"type"`
	ID      string   `json:"id"`
	Classes []string `json:"classes"`
}

// ComponentHierarchy analyze_component_hierarchy 的返回值
type ComponentHierarchy struct {
	ComponentHierarchy []Component                `json:"component_hierarchy"`
	PageRegions        map[string][]RegionElement `json:"page_regions"`
	TopLevelElements   []TopLevelElement          `json:"top_level_elements"`
	NestedPatterns     []NestedPattern            `json:"nested_patterns"`
	TotalComponents    int                        `json:"total_components"`
}

// Viewport 响应式检测使用的视口
type Viewport struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// StandardViewports 响应式检测依次使用的视口, 宽度递增
var StandardViewports = []Viewport{
	{Name: "mobile", Width: 375, Height: 667},
	{Name: "tablet", Width: 768, Height: 1024},
	{Name: "laptop", Width: 1366, Height: 768},
	{Name: "desktop", Width: 1920, Height: 1080},
}

// LayoutSnapshot 某个视口下的布局快照
type LayoutSnapshot struct {
	WindowWidth     int    `json:"windowWidth"`
	WindowHeight    int    `json:"windowHeight"`
	ElementsVisible int    `json:"elementsVisible"`
	ElementsHidden  int    `json:"elementsHidden"`
	MenuState       string `json:"menuState"`
	LayoutType      string `json:"layoutType"`
}

// ViewportLayout 单个视口的检测结果
type ViewportLayout struct {
	Viewport   Viewport    `json:"viewport"`
	LayoutInfo LayoutSnapshot `json:"layout_info"`
	Screenshot string      `json:"screenshot,omitempty"`
}

// PropertyChange 断点两侧的属性变化
type PropertyChange struct {
	Property string `json:"property"`
	From     string `json:"from"`
	To       string `json:"to"`
}

// Breakpoint 相邻视口之间检测到的断点
type Breakpoint struct {
	LowerWidth int              `json:"lower_width"`
	UpperWidth int              `json:"upper_width"`
	Changes    []PropertyChange `json:"changes"`
}

// ResponsiveAnalysis analyze_responsive_behavior 的返回值
type ResponsiveAnalysis struct {
	ViewportLayouts     []ViewportLayout `json:"viewport_layouts"`
	DetectedBreakpoints []Breakpoint     `json:"detected_breakpoints"`
	MediaQueries        []MediaQueryRule `json:"media_queries"`
	IsResponsive        bool             `json:"is_responsive"`
}

// UIUXReport analyze_website_ui_ux 的返回值
type UIUXReport struct {
	URL                    string              `json:"url"`
	Timestamp              string              `json:"timestamp"`
	Status                 string              `json:"status"`
	Message                string              `json:"message,omitempty"`
	Screenshot             string              `json:"screenshot,omitempty"`
	Title                  string              `json:"title,omitempty"`
	MetaTags               []MetaTag           `json:"meta_tags,omitempty"`
	AdvancedLayoutAnalysis *PageLayoutAnalysis `json:"advanced_layout_analysis,omitempty"`
	ComponentHierarchy     *ComponentHierarchy `json:"component_hierarchy,omitempty"`
	ResponsiveAnalysis     *ResponsiveAnalysis `json:"responsive_analysis,omitempty"`
	LayoutAnalysis         *LayoutAnalysis     `json:"layout_analysis,omitempty"`
	ComponentAnalysis      *ComponentAnalysis  `json:"component_analysis,omitempty"`
	ColorAnalysis          interface{}         `json:"color_analysis,omitempty"`
	TypographyAnalysis     *TypographyAnalysis `json:"typography_analysis,omitempty"`
	UXPatterns             *UXPatterns         `json:"ux_patterns,omitempty"`
	PageStructure          *PageStructure      `json:"page_structure,omitempty"`
	ReportPath             string              `json:"report_path,omitempty"`
}

// PageInfo navigate_and_analyze 中的页面信息
type PageInfo struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	PreviousURL string `json:"previous_url"`
}

// NavigationSummary 点击导航的摘要
type NavigationSummary struct {
	FromURL        string       `json:"from_url"`
	ToURL          string       `json:"to_url"`
	ClickedElement *ElementInfo `json:"clicked_element"`
}

// NavigateAnalysis navigate_and_analyze 的分析部分
type NavigateAnalysis struct {
	LayoutAnalysis     *PageLayoutAnalysis `json:"layout_analysis,omitempty"`
	ComponentAnalysis  *ComponentHierarchy `json:"component_analysis,omitempty"`
	ResponsiveAnalysis *ResponsiveAnalysis `json:"responsive_analysis,omitempty"`
	PageInfo           PageInfo            `json:"page_info"`
	ClickableElements  *ClickableReport    `json:"clickable_elements,omitempty"`
}

// NavigateAndAnalyzeResult navigate_and_analyze 的返回值
type NavigateAndAnalyzeResult struct {
	Status           string             `json:"status"`
	Message          string             `json:"message,omitempty"`
	NavigationFailed bool               `json:"navigation_failed,omitempty"`
	Navigation       *NavigationSummary `json:"navigation,omitempty"`
	Analysis         *NavigateAnalysis  `json:"analysis,omitempty"`
}
