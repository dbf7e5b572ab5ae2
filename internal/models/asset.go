package models

// AssetType 图片来源类型
type AssetType string

const (
	AssetRemote AssetType = "remote"
	AssetBase64 AssetType = "base64"
)

// ImageFetchRequest fetch_images_from_website 的参数
type ImageFetchRequest struct {
	URL       string
	SaveDir   string
	Selectors []string
	MaxImages int
	Render    bool
}

// SavedImage 成功保存的图片
type SavedImage struct {
	OriginalURL string    `json:"original_url"`
	SavedPath   string    `json:"saved_path"`
	Type        AssetType `json:"type"`
	Size        int64     `json:"size"`
}

// FailedImage 保存失败的图片
type FailedImage struct {
	OriginalURL string `json:"original_url,omitempty"`
	Reason      string `json:"reason"`
	Element     string `json:"element,omitempty"`
}

// ImageFetchResult fetch_images_from_website 的返回值
type ImageFetchResult struct {
	Status       string        `json:"status"`
	URL          string        `json:"url"`
	SavedImages  []SavedImage  `json:"saved_images"`
	FailedImages []FailedImage `json:"failed_images"`
	TotalFound   int           `json:"total_found"`
	TotalSaved   int           `json:"total_saved"`
	TotalFailed  int           `json:"total_failed"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// SiteAssetsRequest fetch_site_assets 的参数, 选择器为空时使用通用默认值
type SiteAssetsRequest struct {
	URL             string
	SaveDir         string
	LogoSelectors   []string
	MediaSelectors  []string
	BannerSelectors []string
}

// SavedAssets 按类别整理的站点资源
type SavedAssets struct {
	Logo       []string `json:"logo"`
	Icons      []string `json:"icons"`
	MediaLogos []string `json:"media_logos"`
	Banners    []string `json:"banners"`
	Favicon    string   `json:"favicon,omitempty"`
}

// SiteAssetsResult fetch_site_assets 的返回值
type SiteAssetsResult struct {
	Status              string      `json:"status"`
	URL                 string      `json:"url"`
	SavedAssets         SavedAssets `json:"saved_assets"`
	SpriteURLs          []string    `json:"sprite_urls"`
	ReferenceScreenshot string      `json:"reference_screenshot,omitempty"`
	TotalSaved          int         `json:"total_saved"`
	Errors              []string    `json:"errors,omitempty"`
}
