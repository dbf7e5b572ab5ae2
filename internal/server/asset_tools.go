package server

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/RecoveryAshes/WebScope/internal/crawlers"
	"github.com/RecoveryAshes/WebScope/internal/models"
)

func selectorsParam(name, description string) mcp.ToolOption {
	return mcp.WithArray(name,
		mcp.Description(description),
		mcp.Items(map[string]interface{}{"type": "string"}),
	)
}

func (s *Server) registerAssetTools() {
	s.addTool(mcp.NewTool("fetch_images_from_website",
		mcp.WithDescription("Download the images of a web page into a directory."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Page URL")),
		mcp.WithString("save_dir", mcp.Required(), mcp.Description("Directory to save the images in")),
		selectorsParam("selectors", "CSS selectors of img elements or of their containers; all images when empty"),
		mcp.WithNumber("max_images", mcp.DefaultNumber(crawlers.DefaultMaxImages)),
		mcp.WithBoolean("render",
			mcp.Description("Render the page in a browser before collecting images"),
			mcp.DefaultBool(true),
		),
	), s.handleFetchImages)

	s.addTool(mcp.NewTool("fetch_site_assets",
		mcp.WithDescription("Collect a site's logo, icon sprites, media logos, banners, favicon and a reference screenshot."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Site URL")),
		mcp.WithString("save_dir", mcp.Required(), mcp.Description("Directory to save the assets in")),
		selectorsParam("logo_selectors", "CSS selectors for the site logo"),
		selectorsParam("media_selectors", "CSS selectors for media or partner logos"),
		selectorsParam("banner_selectors", "CSS selectors for banner images"),
	), s.handleFetchSiteAssets)
}

func (s *Server) handleFetchImages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := requireString(request, "url")
	if err != nil {
		return failure(err)
	}
	saveDir, err := requireString(request, "save_dir")
	if err != nil {
		return failure(err)
	}

	result, err := s.tk.Assets.FetchImages(ctx, models.ImageFetchRequest{
		URL:       target,
		SaveDir:   saveDir,
		Selectors: stringSlice(request, "selectors"),
		MaxImages: request.GetInt("max_images", crawlers.DefaultMaxImages),
		Render:    request.GetBool("render", true),
	})
	if err != nil {
		return failure(err)
	}
	return jsonResult(result)
}

func (s *Server) handleFetchSiteAssets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := requireString(request, "url")
	if err != nil {
		return failure(err)
	}
	saveDir, err := requireString(request, "save_dir")
	if err != nil {
		return failure(err)
	}

	result, err := s.tk.Assets.FetchSiteAssets(ctx, models.SiteAssetsRequest{
		URL:             target,
		SaveDir:         saveDir,
		LogoSelectors:   stringSlice(request, "logo_selectors"),
		MediaSelectors:  stringSlice(request, "media_selectors"),
		BannerSelectors: stringSlice(request, "banner_selectors"),
	})
	if err != nil {
		return failure(err)
	}
	return jsonResult(result)
}
