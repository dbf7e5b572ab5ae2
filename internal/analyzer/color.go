package analyzer

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"

	"github.com/RecoveryAshes/WebScope/internal/models"
)

const (
	// paletteSampleSize 统计颜色前把截图缩放到的边长
	paletteSampleSize = 150
	// PaletteSize 返回的颜色数
	PaletteSize = 10
)

// Palette 截图中出现次数最多的颜色
// 次数相同的颜色按扫描顺序中首次出现的先后排列
func Palette(data []byte, n int) ([]models.ColorSwatch, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("解码截图失败: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, paletteSampleSize, paletteSampleSize))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	type bucket struct {
		rgb   [3]uint8
		count int
		first int
	}
	buckets := make(map[[3]uint8]*bucket)
	total := 0
	for i := 0; i+3 < len(dst.Pix); i += 4 {
		key := [3]uint8{dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2]}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{rgb: key, first: total}
			buckets[key] = b
		}
		b.count++
		total++
	}

	ranked := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		ranked = append(ranked, b)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].first < ranked[j].first
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}

	swatches := make([]models.ColorSwatch, 0, len(ranked))
	for _, b := range ranked {
		swatches = append(swatches, Swatch(b.rgb, float64(b.count)/float64(total)))
	}
	return swatches, nil
}

// Swatch 计算单个颜色的十六进制、HSL与色系
func Swatch(rgb [3]uint8, frequency float64) models.ColorSwatch {
	c := colorful.Color{R: float64(rgb[0]) / 255, G: float64(rgb[1]) / 255, B: float64(rgb[2]) / 255}
	h, s, l := c.Hsl()
	hsl := models.HSL{H: int(h), S: int(s * 100), L: int(l * 100)}

	return models.ColorSwatch{
		Hex:       c.Hex(),
		RGB:       [3]int{int(rgb[0]), int(rgb[1]), int(rgb[2])},
		HSL:       hsl,
		Type:      ColorType(hsl),
		Frequency: frequency,
	}
}

// ColorType 按饱和度、亮度和色相归类
func ColorType(hsl models.HSL) string {
	if hsl.S < 10 {
		switch {
		case hsl.L < 20:
			return "black"
		case hsl.L > 80:
			return "white"
		default:
			return "gray"
		}
	}

	switch h := hsl.H; {
	case h < 30 || h > 330:
		return "red"
	case h < 90:
		return "yellow"
	case h < 150:
		return "green"
	case h < 210:
		return "cyan"
	case h < 270:
		return "blue"
	default:
		return "magenta"
	}
}
