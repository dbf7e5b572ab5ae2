package crawlers

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/RecoveryAshes/WebScope/internal/analyzer"
	"github.com/RecoveryAshes/WebScope/internal/models"
	"github.com/RecoveryAshes/WebScope/internal/utils"
)

const (
	maxLogoImages   = 5
	maxMediaImages  = 30
	maxBannerImages = 10
)

var (
	// DefaultLogoSelectors 站点logo的通用选择器
	DefaultLogoSelectors = []string{
		"header img[class*='logo']", ".logo img", "img.logo", "[class*='logo'] img", "h1 a img",
	}
	// DefaultMediaSelectors 合作媒体/品牌logo的通用选择器
	DefaultMediaSelectors = []string{
		".media img", "[class*='partner'] img", "[class*='brand'] img", "[class*='client'] img",
		"[class*='subscription'] img",
	}
	// DefaultBannerSelectors 横幅图片的通用选择器
	DefaultBannerSelectors = []string{
		".banner img", "[class*='banner'] img", "[class*='hero'] img", ".carousel img", ".slider img",
	}
)

// siteCapture 一次页面加载得到的全部素材
type siteCapture struct {
	page       *models.PageSnapshot
	screenshot []byte
	sprites    []string
	errors     []string
}

// FetchSiteAssets 抓取站点的logo、图标精灵图、媒体logo、横幅和favicon
func (a *AssetFetcher) FetchSiteAssets(ctx context.Context, req models.SiteAssetsRequest) (*models.SiteAssetsResult, error) {
	req.LogoSelectors = orDefault(req.LogoSelectors, DefaultLogoSelectors)
	req.MediaSelectors = orDefault(req.MediaSelectors, DefaultMediaSelectors)
	req.BannerSelectors = orDefault(req.BannerSelectors, DefaultBannerSelectors)
	for _, group := range [][]string{req.LogoSelectors, req.MediaSelectors, req.BannerSelectors} {
		for _, selector := range group {
			if err := analyzer.ValidateSelector(selector); err != nil {
				return nil, err
			}
		}
	}

	result := &models.SiteAssetsResult{
		Status: "success",
		URL:    req.URL,
		SavedAssets: models.SavedAssets{
			Logo:       []string{},
			Icons:      []string{},
			MediaLogos: []string{},
			Banners:    []string{},
		},
		SpriteURLs: []string{},
	}

	saveDir, err := filepath.Abs(req.SaveDir)
	if err == nil {
		err = os.MkdirAll(saveDir, 0755)
	}
	if err != nil {
		result.Status = "error"
		result.Errors = append(result.Errors, fmt.Sprintf("创建保存目录失败: %v", err))
		return result, nil
	}

	capture, err := a.capture(ctx, req.URL)
	if err != nil {
		result.Status = "error"
		result.Errors = append(result.Errors, err.Error())
		return result, nil
	}
	result.Errors = append(result.Errors, capture.errors...)

	if len(capture.screenshot) > 0 {
		path := filepath.Join(saveDir, "reference.png")
		if err := os.WriteFile(path, capture.screenshot, 0644); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Error saving reference screenshot: %v", err))
		} else {
			result.ReferenceScreenshot = path
		}
	}

	logos := a.collectImages(ctx, capture.page, req.URL, filepath.Join(saveDir, "logo"), req.LogoSelectors, maxLogoImages, result)
	result.SavedAssets.Logo = logos

	result.SpriteURLs = capture.sprites
	result.SavedAssets.Icons = a.saveSprites(ctx, capture.page, saveDir, capture.sprites, result)

	media := a.collectImages(ctx, capture.page, req.URL, filepath.Join(saveDir, "media"), req.MediaSelectors, maxMediaImages, result)
	result.SavedAssets.MediaLogos = media
	copyTemplates(media, saveDir, "media", result)

	banners := a.collectImages(ctx, capture.page, req.URL, filepath.Join(saveDir, "banner"), req.BannerSelectors, maxBannerImages, result)
	result.SavedAssets.Banners = banners
	copyTemplates(banners, saveDir, "banner", result)

	if path, err := a.saveFavicon(ctx, capture.page, saveDir); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Error saving favicon: %v", err))
	} else {
		result.SavedAssets.Favicon = path
	}

	result.TotalSaved = len(result.SavedAssets.Logo) + len(result.SavedAssets.Icons) +
		len(result.SavedAssets.MediaLogos) + len(result.SavedAssets.Banners)
	if result.SavedAssets.Favicon != "" {
		result.TotalSaved++
	}

	utils.Infof("站点资源保存完成 [%s]: 共 %d 个文件", req.URL, result.TotalSaved)
	return result, nil
}

func orDefault(selectors, defaults []string) []string {
	if len(selectors) == 0 {
		return defaults
	}
	return selectors
}

// capture 渲染页面, 截图并读取样式表中的背景图
// 加载器不支持截图时退回到解析同源样式表
func (a *AssetFetcher) capture(ctx context.Context, target string) (*siteCapture, error) {
	source := a.rendered
	if source == nil {
		source = a.static
	}

	c := &siteCapture{}
	err := source.WithLoader(ctx, func(l PageLoader) error {
		page, err := l.Load(ctx, target)
		if err != nil {
			return err
		}
		c.page = page

		inspector, ok := l.(PageInspector)
		if !ok {
			c.errors = append(c.errors, errNoInspector.Error())
			return nil
		}
		if c.screenshot, err = inspector.CaptureScreenshot(ctx); err != nil {
			c.errors = append(c.errors, fmt.Sprintf("Error taking reference screenshot: %v", err))
		}
		sprites, err := inspector.BackgroundImageURLs(ctx)
		if err != nil {
			c.errors = append(c.errors, fmt.Sprintf("Error reading stylesheets: %v", err))
		}
		c.sprites = sprites
		return nil
	})
	if err != nil {
		return nil, err
	}

	if c.sprites == nil {
		c.sprites = a.stylesheetSprites(ctx, c.page)
	}
	return c, nil
}

// stylesheetSprites 从内联样式和同源外部样式表中提取背景图地址
func (a *AssetFetcher) stylesheetSprites(ctx context.Context, page *models.PageSnapshot) []string {
	sprites := []string{}
	doc, err := analyzer.Parse(page.HTML)
	if err != nil {
		return sprites
	}
	base, err := url.Parse(pageURLOf(page))
	if err != nil {
		return sprites
	}

	sheets := analyzer.StyleSheets(doc)
	doc.Find("link[rel~='stylesheet'][href]").Each(func(_ int, s *goquery.Selection) {
		ref, err := url.Parse(s.AttrOr("href", ""))
		if err != nil {
			return
		}
		sheetURL := base.ResolveReference(ref)
		if sheetURL.Host != base.Host {
			return
		}
		resp, err := a.fetcher.Download(ctx, sheetURL.String(), a.cfg.Timeout)
		if err != nil || resp.StatusCode != 200 {
			utils.Debugf("跳过样式表 [%s]", sheetURL)
			return
		}
		sheets = append(sheets, string(resp.Body))
	})

	seen := make(map[string]bool)
	for _, sheet := range sheets {
		for _, ref := range analyzer.BackgroundImageURLs(sheet) {
			if !seen[ref] {
				seen[ref] = true
				sprites = append(sprites, ref)
			}
		}
	}
	return sprites
}

func pageURLOf(page *models.PageSnapshot) string {
	if page.FinalURL != "" {
		return page.FinalURL
	}
	return page.URL
}

// collectImages 复用已加载的页面保存一组图片, 返回保存路径
func (a *AssetFetcher) collectImages(ctx context.Context, page *models.PageSnapshot, target, dir string, selectors []string, limit int, result *models.SiteAssetsResult) []string {
	images := newImageResult(target)
	err := a.saveImages(ctx, page, models.ImageFetchRequest{
		URL:       target,
		SaveDir:   dir,
		Selectors: selectors,
		MaxImages: limit,
	}, images)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
	}

	paths := make([]string, 0, len(images.SavedImages))
	for _, img := range images.SavedImages {
		paths = append(paths, img.SavedPath)
	}
	return paths
}

// spriteFilename 按文件名保留 sp_main / sprite 的命名提示
func spriteFilename(spriteURL string, index int) string {
	name := spriteURL
	if u, err := url.Parse(spriteURL); err == nil {
		name = u.Path[strings.LastIndex(u.Path, "/")+1:]
	}

	switch {
	case strings.Contains(name, "main"):
		return "sp_main.png"
	case strings.Contains(name, "sprite"):
		return "sprite_icons.png"
	default:
		return fmt.Sprintf("sprite_%d.png", index)
	}
}

func (a *AssetFetcher) saveSprites(ctx context.Context, page *models.PageSnapshot, saveDir string, sprites []string, result *models.SiteAssetsResult) []string {
	saved := []string{}
	base, _ := url.Parse(pageURLOf(page))

	for i, sprite := range sprites {
		target := sprite
		if !strings.HasPrefix(sprite, "http") {
			abs, ok := resolveImageURL(base, sprite)
			if !ok {
				continue
			}
			target = abs
		}

		resp, err := a.fetcher.Download(ctx, target, a.cfg.Timeout)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Error saving sprite %s: %v", target, err))
			continue
		}
		if resp.StatusCode != 200 {
			utils.Debugf("精灵图下载失败 [%s]: 状态码 %d", target, resp.StatusCode)
			continue
		}

		path := filepath.Join(saveDir, spriteFilename(target, i))
		if err := os.WriteFile(path, resp.Body, 0644); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Error saving sprite %s: %v", target, err))
			continue
		}
		saved = append(saved, path)
	}
	return saved
}

// copyTemplates 按顺序复制为 <prefix><n>.<ext>
func copyTemplates(paths []string, saveDir, prefix string, result *models.SiteAssetsResult) {
	for i, src := range paths {
		dst := filepath.Join(saveDir, fmt.Sprintf("%s%d%s", prefix, i+1, filepath.Ext(src)))
		if err := copyFile(src, dst); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Error copying %s: %v", src, err))
		}
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// saveFavicon 下载站点根目录的 /favicon.ico
func (a *AssetFetcher) saveFavicon(ctx context.Context, page *models.PageSnapshot, saveDir string) (string, error) {
	base, err := url.Parse(pageURLOf(page))
	if err != nil {
		return "", err
	}
	faviconURL := (&url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/favicon.ico"}).String()

	resp, err := a.fetcher.Download(ctx, faviconURL, a.cfg.Timeout)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("HTTP status code: %d", resp.StatusCode)
	}

	path := filepath.Join(saveDir, "favicon.ico")
	if err := os.WriteFile(path, resp.Body, 0644); err != nil {
		return "", err
	}
	return path, nil
}
