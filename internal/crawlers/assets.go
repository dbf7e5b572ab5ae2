package crawlers

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/net/html"

	"github.com/RecoveryAshes/WebScope/internal/analyzer"
	"github.com/RecoveryAshes/WebScope/internal/models"
	"github.com/RecoveryAshes/WebScope/internal/utils"
)

const (
	// DefaultMaxImages fetch_images_from_website 默认最多处理的图片数
	DefaultMaxImages = 50
	// lockFileName 保存目录中的锁文件
	lockFileName = ".webscope.lock"
	maxLabelLen  = 30
)

var (
	dataURIPattern   = regexp.MustCompile(`data:image/(\w+);base64,`)
	unsafeFileChars  = regexp.MustCompile(`[^\w\-.]`)
	unsafeLabelChars = regexp.MustCompile(`[^\w\-]`)
)

// AssetFetcher 图片与站点资源下载器
type AssetFetcher struct {
	fetcher  *Fetcher
	rendered LoaderSource
	static   LoaderSource
	cfg      models.AssetsConfig

	// progress 每处理完一张远程图片调用一次
	progress func()
}

// NewAssetFetcher 创建资源下载器, rendered 用于需要渲染的页面, static 用于 render=false
func NewAssetFetcher(fetcher *Fetcher, rendered, static LoaderSource, cfg models.AssetsConfig) *AssetFetcher {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &AssetFetcher{
		fetcher:  fetcher,
		rendered: rendered,
		static:   static,
		cfg:      cfg,
	}
}

// SetProgress 设置下载进度回调
func (a *AssetFetcher) SetProgress(fn func()) {
	a.progress = fn
}

// imageTask 一张待保存的图片
type imageTask struct {
	index int
	node  *goquery.Selection
	src   string

	// 远程下载结果
	resp *httpResponse
	err  error
}

// FetchImages 渲染或静态加载页面后保存其中的图片
// 选择器语法错误以 *models.ValidationError 返回
func (a *AssetFetcher) FetchImages(ctx context.Context, req models.ImageFetchRequest) (*models.ImageFetchResult, error) {
	for _, selector := range req.Selectors {
		if err := analyzer.ValidateSelector(selector); err != nil {
			return nil, err
		}
	}
	if req.MaxImages <= 0 {
		req.MaxImages = DefaultMaxImages
	}

	result := newImageResult(req.URL)
	page, err := a.loadPage(ctx, req.URL, req.Render)
	if err != nil {
		result.Status = "error"
		result.ErrorMessage = err.Error()
		return result, nil
	}

	if err := a.saveImages(ctx, page, req, result); err != nil {
		result.Status = "error"
		result.ErrorMessage = err.Error()
	}
	return result, nil
}

func newImageResult(target string) *models.ImageFetchResult {
	return &models.ImageFetchResult{
		Status:       "success",
		URL:          target,
		SavedImages:  []models.SavedImage{},
		FailedImages: []models.FailedImage{},
	}
}

// loadPage 加载页面快照, 浏览器会话在返回前关闭
func (a *AssetFetcher) loadPage(ctx context.Context, target string, render bool) (*models.PageSnapshot, error) {
	source := a.static
	if render && a.rendered != nil {
		source = a.rendered
	}

	var page *models.PageSnapshot
	err := source.WithLoader(ctx, func(l PageLoader) error {
		var err error
		page, err = l.Load(ctx, target)
		return err
	})
	return page, err
}

// saveImages 在目录锁内下载并保存页面中的图片, 结果按图片在页面中的顺序记录
func (a *AssetFetcher) saveImages(ctx context.Context, page *models.PageSnapshot, req models.ImageFetchRequest, result *models.ImageFetchResult) error {
	saveDir, err := filepath.Abs(req.SaveDir)
	if err != nil {
		return fmt.Errorf("解析保存目录失败: %w", err)
	}
	if err := os.MkdirAll(saveDir, 0755); err != nil {
		return fmt.Errorf("创建保存目录失败: %w", err)
	}

	doc, err := analyzer.Parse(page.HTML)
	if err != nil {
		return err
	}
	images := SelectImages(doc, req.Selectors)
	if len(images) > req.MaxImages {
		images = images[:req.MaxImages]
	}
	result.TotalFound = len(images)

	unlock, err := a.lockDir(ctx, saveDir)
	if err != nil {
		return err
	}
	defer unlock()

	pageURL := page.FinalURL
	if pageURL == "" {
		pageURL = req.URL
	}
	base, _ := url.Parse(pageURL)

	tasks := make([]*imageTask, len(images))
	for i, img := range images {
		tasks[i] = &imageTask{index: i, node: img, src: img.AttrOr("src", "")}
	}
	a.download(ctx, base, tasks)

	names := make(map[string]int)
	for _, task := range tasks {
		a.saveTask(task, saveDir, req.URL, names, result)
	}

	result.TotalSaved = len(result.SavedImages)
	result.TotalFailed = len(result.FailedImages)
	utils.Infof("图片保存完成 [%s]: 找到 %d, 保存 %d, 失败 %d", req.URL, result.TotalFound, result.TotalSaved, result.TotalFailed)
	return nil
}

// lockDir 持有保存目录的文件锁, 超时由 assets.lock_timeout 控制
func (a *AssetFetcher) lockDir(ctx context.Context, dir string) (func(), error) {
	lockCtx := ctx
	if a.cfg.LockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, a.cfg.LockTimeout)
		defer cancel()
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := lock.TryLockContext(lockCtx, 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("获取目录锁失败 [%s]: %w", dir, err)
	}
	if !locked {
		return nil, fmt.Errorf("获取目录锁失败 [%s]: 目录正被占用", dir)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			utils.Warnf("释放目录锁失败 [%s]: %v", dir, err)
		}
	}, nil
}

// download 并发下载所有远程图片
func (a *AssetFetcher) download(ctx context.Context, base *url.URL, tasks []*imageTask) {
	p := pool.New().WithMaxGoroutines(a.cfg.Concurrency)
	for _, task := range tasks {
		if task.src == "" || strings.HasPrefix(task.src, "data:image") {
			continue
		}
		if abs, ok := resolveImageURL(base, task.src); ok {
			task.src = abs
		}

		p.Go(func() {
			task.resp, task.err = a.fetcher.Download(ctx, task.src, a.cfg.Timeout)
			if a.progress != nil {
				a.progress()
			}
		})
	}
	p.Wait()
}

// resolveImageURL 没有主机名的地址相对页面URL补全
func resolveImageURL(base *url.URL, src string) (string, bool) {
	ref, err := url.Parse(src)
	if err != nil {
		return "", false
	}
	if ref.Host != "" && ref.Scheme != "" {
		return src, true
	}
	if base == nil {
		return "", false
	}
	return base.ResolveReference(ref).String(), true
}

func (a *AssetFetcher) saveTask(task *imageTask, saveDir, pageURL string, names map[string]int, result *models.ImageFetchResult) {
	switch {
	case task.src == "":
		result.FailedImages = append(result.FailedImages, models.FailedImage{
			Reason:  "No source attribute",
			Element: outerHTML(task.node),
		})

	case strings.HasPrefix(task.src, "data:image"):
		saved, failure := saveDataURI(task.src, task.index, saveDir)
		if failure != nil {
			result.FailedImages = append(result.FailedImages, *failure)
			return
		}
		result.SavedImages = append(result.SavedImages, *saved)

	case task.err != nil:
		result.FailedImages = append(result.FailedImages, models.FailedImage{OriginalURL: task.src, Reason: task.err.Error()})

	case task.resp.StatusCode != 200:
		result.FailedImages = append(result.FailedImages, models.FailedImage{
			OriginalURL: task.src,
			Reason:      fmt.Sprintf("HTTP status code: %d", task.resp.StatusCode),
		})

	default:
		ext := ImageExtension(task.resp.ContentType, task.src)
		name := uniqueName(names, ImageFilename(task.src, pageURL, task.node.AttrOr("alt", ""), task.node.AttrOr("title", ""), task.index, ext))
		savedPath := filepath.Join(saveDir, name)
		if err := os.WriteFile(savedPath, task.resp.Body, 0644); err != nil {
			result.FailedImages = append(result.FailedImages, models.FailedImage{OriginalURL: task.src, Reason: err.Error()})
			return
		}
		utils.Debugf("保存图片: %s (%s)", savedPath, humanize.Bytes(uint64(len(task.resp.Body))))
		result.SavedImages = append(result.SavedImages, models.SavedImage{
			OriginalURL: task.src,
			SavedPath:   savedPath,
			Type:        models.AssetRemote,
			Size:        int64(len(task.resp.Body)),
		})
	}
}

// saveDataURI 解码 data:image/<fmt>;base64, 并保存为 data_image_<i>.<fmt>
func saveDataURI(src string, index int, saveDir string) (*models.SavedImage, *models.FailedImage) {
	short := src
	if len(short) > 50 {
		short = short[:50]
	}
	short += "..."

	m := dataURIPattern.FindStringSubmatch(src)
	if m == nil {
		return nil, &models.FailedImage{OriginalURL: short, Reason: "Invalid data URI format"}
	}

	_, payload, _ := strings.Cut(src, ",")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, &models.FailedImage{OriginalURL: short, Reason: fmt.Sprintf("Error processing data URI: %v", err)}
	}

	savedPath := filepath.Join(saveDir, fmt.Sprintf("data_image_%d.%s", index, m[1]))
	if err := os.WriteFile(savedPath, data, 0644); err != nil {
		return nil, &models.FailedImage{OriginalURL: short, Reason: fmt.Sprintf("Error processing data URI: %v", err)}
	}
	return &models.SavedImage{
		OriginalURL: "data:image",
		SavedPath:   savedPath,
		Type:        models.AssetBase64,
		Size:        int64(len(data)),
	}, nil
}

// SelectImages 没有选择器时取全部 img; 否则取选择器命中的 img 以及命中元素内的 img
// 同一个元素只保留一次
func SelectImages(doc *goquery.Document, selectors []string) []*goquery.Selection {
	var images []*goquery.Selection
	if len(selectors) == 0 {
		doc.Find("img").Each(func(_ int, s *goquery.Selection) {
			images = append(images, s)
		})
		return images
	}

	seen := make(map[*html.Node]bool)
	add := func(_ int, s *goquery.Selection) {
		if n := s.Get(0); !seen[n] {
			seen[n] = true
			images = append(images, s)
		}
	}
	for _, selector := range selectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if goquery.NodeName(s) == "img" {
				add(0, s)
				return
			}
			s.Find("img").Each(add)
		})
	}
	return images
}

// ImageExtension 优先取 image/* 类型, 其次取URL路径的扩展名, 默认 jpg
func ImageExtension(contentType, src string) string {
	if ext, ok := imageExtension(contentType); ok {
		return ext
	}
	if u, err := url.Parse(src); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); ext != "" && ext != "." {
			return ext[1:]
		}
	}
	return "jpg"
}

// ImageFilename 根据URL、alt/title或域名生成文件名
func ImageFilename(src, pageURL, alt, title string, index int, ext string) string {
	name := ""
	if u, err := url.Parse(src); err == nil {
		name = u.Path[strings.LastIndex(u.Path, "/")+1:]
	}
	name = unsafeFileChars.ReplaceAllString(name, "_")

	if name != "" && name != "." {
		if strings.Contains(name, ".") {
			return name
		}
		return name + "." + ext
	}

	var base string
	switch {
	case alt != "":
		base = truncateLabel(unsafeLabelChars.ReplaceAllString(alt, "_"))
	case title != "":
		base = truncateLabel(unsafeLabelChars.ReplaceAllString(title, "_"))
	default:
		host := ""
		if u, err := url.Parse(pageURL); err == nil {
			host = u.Host
		}
		base = fmt.Sprintf("%s_image_%d", strings.Split(host, ".")[0], index)
	}
	return base + "." + ext
}

func truncateLabel(s string) string {
	if len(s) > maxLabelLen {
		return s[:maxLabelLen]
	}
	return s
}

// uniqueName 重名时在扩展名前追加 _<n>
func uniqueName(names map[string]int, name string) string {
	count, exists := names[name]
	if !exists {
		names[name] = 1
		return name
	}
	names[name] = count + 1
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), count+1, ext)
}

func outerHTML(s *goquery.Selection) string {
	out, err := goquery.OuterHtml(s)
	if err != nil {
		return ""
	}
	return out
}
