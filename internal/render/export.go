// Package render implements the Export half of Save / Export / Router
// (C9): rasterizing one view's visuals to PNG or JPEG bytes at a caller
// chosen scale. Grounded on the evalgo-org-eve pack repo's
// media/images.go (ImageRescale): draw at native size with the standard
// library's image/draw, then resize with github.com/nfnt/resize's
// Lanczos3 filter exactly as that repo does for its own image pipeline.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"

	"github.com/nfnt/resize"

	"archiplane/internal/model"
)

// Format is the closed set of raster output formats spec.md §4.9 allows.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// Options parametrizes one export.
type Options struct {
	Format Format
	Scale  float64 // 0.5-4.0 per spec.md §4.9
	Margin float64 // pixels of whitespace added on every side before scaling
}

const (
	minScale = 0.5
	maxScale = 4.0
)

// Export rasterizes view (whose visuals belong to model m, consulted for
// element/relationship existence only — geometry comes entirely from the
// view) into an encoded image.
func Export(m *model.Model, v *model.View, opts Options) ([]byte, error) {
	if opts.Scale < minScale || opts.Scale > maxScale {
		return nil, fmt.Errorf("export scale must be between %.1f and %.1f, got %.2f", minScale, maxScale, opts.Scale)
	}
	if opts.Margin < 0 {
		opts.Margin = 0
	}

	minX, minY, maxX, maxY := bounds(v)
	width := maxX - minX + 2*opts.Margin
	height := maxY - minY + 2*opts.Margin
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}

	canvas := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	offsetX := opts.Margin - minX
	offsetY := opts.Margin - minY

	abs := make(map[model.VisualID]model.AbsolutePoint, len(v.Objects))
	for id, obj := range v.Objects {
		abs[id] = absolutePosition(v, obj, abs)
	}

	for id, obj := range v.Objects {
		p := abs[id]
		drawRect(canvas, p.X+offsetX, p.Y+offsetY, obj.Width, obj.Height, obj.Style)
	}
	for _, n := range v.Notes {
		drawRect(canvas, n.X+offsetX, n.Y+offsetY, n.Width, n.Height, n.Style)
	}
	for _, g := range v.Groups {
		drawRect(canvas, g.X+offsetX, g.Y+offsetY, g.Width, g.Height, g.Style)
	}
	for _, c := range v.Connections {
		src, ok1 := v.Objects[c.SourceVisualID]
		tgt, ok2 := v.Objects[c.TargetVisualID]
		if !ok1 || !ok2 {
			continue
		}
		srcAbs, tgtAbs := abs[c.SourceVisualID], abs[c.TargetVisualID]
		drawLine(canvas,
			srcAbs.X+offsetX+src.Width/2, srcAbs.Y+offsetY+src.Height/2,
			tgtAbs.X+offsetX+tgt.Width/2, tgtAbs.Y+offsetY+tgt.Height/2,
			c.Style)
	}

	var scaled image.Image = canvas
	if opts.Scale != 1.0 {
		scaled = resize.Resize(uint(width*opts.Scale), uint(height*opts.Scale), canvas, resize.Lanczos3)
	}

	var buf bytes.Buffer
	switch opts.Format {
	case FormatJPEG:
		if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: 90}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	default:
		if err := png.Encode(&buf, scaled); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// bounds computes the top-level bounding box of every visual in v.
// Nested visuals are already within their parent's Width/Height (the
// Layout Engine or manual placement keeps that invariant), so only
// top-level objects, notes, and groups contribute.
func bounds(v *model.View) (minX, minY, maxX, maxY float64) {
	first := true
	extend := func(x, y, w, h float64) {
		if first {
			minX, minY, maxX, maxY = x, y, x+w, y+h
			first = false
			return
		}
		if x < minX {
			minX = x
		}
		if y < minY {
			minY = y
		}
		if x+w > maxX {
			maxX = x + w
		}
		if y+h > maxY {
			maxY = y + h
		}
	}
	for _, obj := range v.Objects {
		if obj.IsNested() {
			continue
		}
		extend(obj.X, obj.Y, obj.Width, obj.Height)
	}
	for _, n := range v.Notes {
		extend(n.X, n.Y, n.Width, n.Height)
	}
	for _, g := range v.Groups {
		extend(g.X, g.Y, g.Width, g.Height)
	}
	if first {
		return 0, 0, 0, 0
	}
	return minX, minY, maxX, maxY
}

// absolutePosition resolves obj's position to view-root-relative
// coordinates, walking its ParentVisualID chain and converting each
// ParentRelativePoint against its parent's already-resolved AbsolutePoint.
// resolved memoizes positions already computed in this Export call. A
// cycle (which viewcompose.AddToView/NestInView's wouldCycle check refuses
// to create, but a hand-assembled view could still contain) is detected via
// seen and treats the offending object as top-level rather than recursing
// forever.
func absolutePosition(v *model.View, obj *model.VisualObject, resolved map[model.VisualID]model.AbsolutePoint) model.AbsolutePoint {
	return resolveChain(v, obj, resolved, map[model.VisualID]bool{})
}

func resolveChain(v *model.View, obj *model.VisualObject, resolved map[model.VisualID]model.AbsolutePoint, seen map[model.VisualID]bool) model.AbsolutePoint {
	if p, ok := resolved[obj.ID]; ok {
		return p
	}
	if !obj.IsNested() || seen[obj.ID] {
		p := model.AbsolutePoint{X: obj.X, Y: obj.Y}
		resolved[obj.ID] = p
		return p
	}
	seen[obj.ID] = true
	parent, ok := v.Objects[obj.ParentVisualID]
	if !ok {
		p := model.AbsolutePoint{X: obj.X, Y: obj.Y}
		resolved[obj.ID] = p
		return p
	}
	parentAbs := resolveChain(v, parent, resolved, seen)
	p := model.ParentRelativePoint{X: obj.X, Y: obj.Y}.Resolve(parentAbs)
	resolved[obj.ID] = p
	return p
}

func drawRect(canvas *image.RGBA, x, y, w, h float64, style model.Style) {
	fill := parseColor(style.FillColor, color.RGBA{R: 0xe8, G: 0xe8, B: 0xf0, A: 0xff})
	border := parseColor(style.LineColor, color.RGBA{A: 0xff})

	rect := image.Rect(int(x), int(y), int(x+w), int(y+h))
	draw.Draw(canvas, rect, image.NewUniform(fill), image.Point{}, draw.Src)
	drawBorder(canvas, rect, border)
}

func drawBorder(canvas *image.RGBA, r image.Rectangle, c color.Color) {
	for px := r.Min.X; px < r.Max.X; px++ {
		canvas.Set(px, r.Min.Y, c)
		canvas.Set(px, r.Max.Y-1, c)
	}
	for py := r.Min.Y; py < r.Max.Y; py++ {
		canvas.Set(r.Min.X, py, c)
		canvas.Set(r.Max.X-1, py, c)
	}
}

// drawLine renders a straight connection with a basic Bresenham walk;
// spec.md §4.9's routing presets (straight-with-bendpoints, manhattan)
// affect the VisualConnection's stored Bendpoints, not this rasterizer,
// which always draws point to point.
func drawLine(canvas *image.RGBA, x0, y0, x1, y1 float64, style model.Style) {
	c := parseColor(style.LineColor, color.RGBA{A: 0xff})
	ix0, iy0, ix1, iy1 := int(x0), int(y0), int(x1), int(y1)

	dx := abs(ix1 - ix0)
	dy := -abs(iy1 - iy0)
	sx, sy := 1, 1
	if ix0 >= ix1 {
		sx = -1
	}
	if iy0 >= iy1 {
		sy = -1
	}
	err := dx + dy
	x, y := ix0, iy0
	for {
		canvas.Set(x, y, c)
		if x == ix1 && y == iy1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func parseColor(hex string, fallback color.RGBA) color.RGBA {
	if len(hex) != 7 || hex[0] != '#' {
		return fallback
	}
	var r, g, b int
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return fallback
	}
	return color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 0xff}
}
