package renderer

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	headlessterm "github.com/duskterm/engine"
)

// Config controls font, palette, and cell metrics -- the renderer-package
// analog of headlessterm.ScreenshotConfig, trimmed to what per-row
// rasterization needs (no ShowCursor/CursorColor, since cursor overlay is
// folded into HashOverlay/drawOverlay instead of a whole-frame pass).
type Config struct {
	Font       font.Face
	CellWidth  int
	CellHeight int
	Palette    *[256]color.RGBA
	DefaultFG  *color.RGBA
	DefaultBG  *color.RGBA
}

// DefaultConfig mirrors the teacher's Screenshot() zero-config path:
// basicfont.Face7x13, DefaultPalette, DefaultForeground/Background.
func DefaultConfig() Config {
	face := basicfont.Face7x13
	adv, _ := face.GlyphAdvance('M')
	cellWidth := adv.Ceil()
	if cellWidth == 0 {
		cellWidth = 7
	}
	return Config{
		Font:       face,
		CellWidth:  cellWidth,
		CellHeight: face.Metrics().Height.Ceil(),
		Palette:    &headlessterm.DefaultPalette,
		DefaultFG:  &headlessterm.DefaultForeground,
		DefaultBG:  &headlessterm.DefaultBackground,
	}
}

// Renderer rasterizes a headlessterm GridView into pixels, one row at a
// time through a RenderCache so only rows whose content or overlay
// actually changed since the last frame do real glyph work. It is the
// direct generalization of the teacher's Terminal.ScreenshotWithConfig,
// which rasterizes every cell of every row on every call with no cache
// at all -- appropriate for a one-shot debug dump, not for a compositor
// redrawing 60 times a second.
type Renderer struct {
	config Config
	cache  *RenderCache
}

// NewRenderer constructs a Renderer with its own RenderCache.
func NewRenderer(config Config, cacheConfig CacheConfig) *Renderer {
	return &Renderer{config: config, cache: NewRenderCache(cacheConfig)}
}

// Overlay describes the per-row cursor/selection/search-match state a
// frame's RenderFrame call supplies alongside the GridView; it never
// comes from the grid itself (GridView rows have no idea about cursor
// or selection), which is why it's threaded in as a separate parameter
// rather than folded into GridRow.
type Overlay struct {
	CursorRow     int
	CursorCol     int
	CursorVisible bool

	SelectionActive bool
	// SelStartCol/SelEndCol are only meaningful when this row falls
	// within the selection's row range; RenderFrame computes that.
	SelStartRow, SelStartCol int
	SelEndRow, SelEndCol     int

	Matches []headlessterm.MatchRange
}

// RenderFrame rasterizes every visible row of snap.Grid into a single
// image, compositing cursor/selection/search-match overlays, using the
// Renderer's RenderCache so unchanged rows are blitted from cache
// instead of re-shaped. Row i of the output is at y = i*CellHeight.
func (r *Renderer) RenderFrame(snap headlessterm.TerminalStateSnapshot, overlay Overlay) *image.RGBA {
	cw, ch := r.config.CellWidth, r.config.CellHeight
	out := image.NewRGBA(image.Rect(0, 0, snap.Grid.Cols*cw, snap.Grid.Rows*ch))

	for i, row := range snap.Grid.Lines {
		absRow := i
		selStart, selEnd, selOn := rowSelectionSpan(overlay, absRow)
		matchStart, matchEnd, matchOn := rowMatchSpan(overlay.Matches, absRow)
		cursorOn := overlay.CursorVisible && overlay.CursorRow == absRow

		contentKey := HashRow(row)
		overlayKey := HashOverlay(overlay.CursorCol, cursorOn, selStart, selEnd, selOn, matchStart, matchEnd, matchOn)

		rowImg := r.cache.Get(contentKey, overlayKey,
			func() *image.RGBA {
				return r.rasterizeRow(row)
			},
			func(base *image.RGBA) *image.RGBA {
				img := cloneRGBA(base)
				if selOn {
					highlightSpan(img, cw, ch, selStart, selEnd, color.RGBA{R: 51, G: 153, B: 255, A: 90})
				}
				if matchOn {
					highlightSpan(img, cw, ch, matchStart, matchEnd, color.RGBA{R: 255, G: 215, B: 0, A: 90})
				}
				if cursorOn {
					drawCursor(img, cw, ch, overlay.CursorCol)
				}
				return img
			},
		)

		drawRowInto(out, rowImg, i*ch)
	}

	return out
}

// rasterizeRow draws one row's cells with no overlay, the cacheable L2
// entry. Grounded on the per-cell loop in the teacher's
// ScreenshotWithConfig, trimmed to a single row's worth of work.
func (r *Renderer) rasterizeRow(row headlessterm.GridRow) *image.RGBA {
	cw, ch := r.config.CellWidth, r.config.CellHeight
	img := image.NewRGBA(image.Rect(0, 0, len(row.Cells)*cw, ch))

	for x := 0; x < img.Bounds().Dx(); x++ {
		for y := 0; y < ch; y++ {
			img.Set(x, y, r.config.DefaultBG)
		}
	}

	metrics := r.config.Font.Metrics()
	baseline := metrics.Ascent.Ceil()

	for col, cell := range row.Cells {
		if cell.IsWideSpacer() {
			continue
		}
		x := col * cw

		fg := headlessterm.ResolveColor(cell.Fg, true, r.config.Palette, r.config.DefaultFG, r.config.DefaultBG)
		bg := headlessterm.ResolveColor(cell.Bg, false, r.config.Palette, r.config.DefaultFG, r.config.DefaultBG)
		if cell.HasFlag(headlessterm.CellFlagReverse) {
			fg, bg = bg, fg
		}
		if cell.HasFlag(headlessterm.CellFlagDim) {
			fg = color.RGBA{R: uint8(float64(fg.R) * 0.66), G: uint8(float64(fg.G) * 0.66), B: uint8(float64(fg.B) * 0.66), A: fg.A}
		}

		for px := 0; px < cw; px++ {
			for py := 0; py < ch; py++ {
				img.Set(x+px, py, bg)
			}
		}

		if cell.Char == 0 || cell.Char == ' ' {
			continue
		}

		d := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(fg),
			Face: r.config.Font,
			Dot:  fixed.P(x, baseline),
		}
		d.DrawString(string(cell.Char))

		if cell.HasFlag(headlessterm.CellFlagUnderline) || cell.HasFlag(headlessterm.CellFlagDoubleUnderline) ||
			cell.HasFlag(headlessterm.CellFlagCurlyUnderline) || cell.HasFlag(headlessterm.CellFlagDottedUnderline) ||
			cell.HasFlag(headlessterm.CellFlagDashedUnderline) {
			underlineColor := fg
			if cell.UnderlineColor != nil {
				underlineColor = headlessterm.ResolveColor(cell.UnderlineColor, true, r.config.Palette, r.config.DefaultFG, r.config.DefaultBG)
			}
			underlineY := baseline + 2
			if underlineY < ch {
				for px := 0; px < cw; px++ {
					img.Set(x+px, underlineY, underlineColor)
				}
			}
		}

		if cell.HasFlag(headlessterm.CellFlagStrike) {
			strikeY := ch / 2
			for px := 0; px < cw; px++ {
				img.Set(x+px, strikeY, fg)
			}
		}
	}

	return img
}

// cloneRGBA copies an L2-cached base row image before an overlay is
// painted onto it, since the base is shared with every other overlay
// variant of the same row content and must not be mutated in place.
func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}

func drawRowInto(dst *image.RGBA, row *image.RGBA, yOffset int) {
	b := row.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.Set(x, yOffset+y, row.At(x, y))
		}
	}
}

func highlightSpan(img *image.RGBA, cw, ch, startCol, endCol int, tint color.RGBA) {
	if endCol < startCol {
		return
	}
	for col := startCol; col <= endCol; col++ {
		for px := 0; px < cw; px++ {
			for py := 0; py < ch; py++ {
				x, y := col*cw+px, py
				blendOver(img, x, y, tint)
			}
		}
	}
}

func drawCursor(img *image.RGBA, cw, ch, col int) {
	x := col * cw
	for px := 0; px < cw; px++ {
		for py := 0; py < ch; py++ {
			blendOver(img, x+px, py, color.RGBA{R: 255, G: 255, B: 255, A: 128})
		}
	}
}

func blendOver(img *image.RGBA, x, y int, c color.RGBA) {
	if !(image.Point{x, y}.In(img.Bounds())) {
		return
	}
	base := img.RGBAAt(x, y)
	a := float64(c.A) / 255
	img.SetRGBA(x, y, color.RGBA{
		R: uint8(float64(base.R)*(1-a) + float64(c.R)*a),
		G: uint8(float64(base.G)*(1-a) + float64(c.G)*a),
		B: uint8(float64(base.B)*(1-a) + float64(c.B)*a),
		A: 255,
	})
}

func rowSelectionSpan(o Overlay, row int) (start, end int, active bool) {
	if !o.SelectionActive {
		return 0, 0, false
	}
	if row < o.SelStartRow || row > o.SelEndRow {
		return 0, 0, false
	}
	start = 0
	if row == o.SelStartRow {
		start = o.SelStartCol
	}
	end = 1 << 30
	if row == o.SelEndRow {
		end = o.SelEndCol
	}
	return start, end, true
}

func rowMatchSpan(matches []headlessterm.MatchRange, row int) (start, end int, active bool) {
	for _, m := range matches {
		if m.Start.Row == row {
			return m.Start.Col, m.End.Col, true
		}
	}
	return 0, 0, false
}
