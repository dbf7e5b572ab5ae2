// Package crawlers 提供HTTP抓取、页面加载、搜索爬取和图片资源下载功能
//
// # 核心组件
//
// ## Fetcher
//
// 基于resty的HTTP抓取器, 实现 crawl_url。请求头按 默认 < 配置文件 < 命令行 < 调用参数 合并,
// 响应体按Content-Encoding解压(gzip、deflate、br), HTML响应附带标题和选择器提取结果。
//
//	fetcher := NewFetcher(cfg.Fetch, headerManager, hostFilter)
//	result, err := fetcher.Fetch(ctx, models.FetchRequest{URL: "https://example.com"})
//
// ## 页面加载器
//
// PageLoader 按URL返回页面快照, LoaderSource 为一次操作提供加载器并负责释放:
//   - BrowserSource: 每次操作启动一个临时浏览器会话, 操作结束后关闭
//   - StaticLoader: 基于Colly, 不执行JavaScript
//   - CachedSource: 在任一来源外加一层带过期时间的LRU缓存
//
// 浏览器加载器同时实现 PageInspector, 可以截图并读取样式表背景图。
//
// ## Searcher
//
// 打开搜索引擎结果页, 依次访问结果页面; 深度大于1时跟进锚文本包含查询词的链接,
// URLQueue 保证跟进链接紧随其来源页面访问, 且每个URL只访问一次。
//
//	searcher := NewSearcher(NewCachedSource(source, 128, 10*time.Minute), "google")
//	report := searcher.Search(ctx, models.SearchRequest{Query: "golang", MaxPages: 5, Depth: 2})
//	answer := searcher.Answer(ctx, "what is golang?", 8, 2)
//
// ## AssetFetcher
//
// 保存页面中的图片: data URI 直接解码, 远程图片用有界协程池并发下载,
// 整个过程持有保存目录的文件锁, 文件名按页面顺序分配。
// FetchSiteAssets 在此基础上按类别收集logo、精灵图、媒体logo、横幅和favicon。
//
// # 屏蔽主机
//
// HostFilter 以glob模式(如 "*.doubleclick.net")匹配主机名,
// 抓取器和静态加载器在发出请求前以及每次跟随重定向时检查, 命中时返回 models.ErrBlockedHost。
package crawlers
