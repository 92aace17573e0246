package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"github.com/hltx/hightext/layout"
	"github.com/hltx/hightext/renderer"
)

// Format selects the output encoding of Render.
type Format string

const (
	FormatPDF Format = "pdf"
	FormatPNG Format = "png"
)

const (
	defaultMargin = 5.0  // mm around the annotation bounds
	defaultDPMM   = 10.0 // raster resolution for PNG output
)

// Renderer measures and draws layout results via github.com/tdewolff/canvas.
type Renderer struct {
	baseDir string
	format  Format
	dpmm    float64
	margin  float64

	// insetPainter, when set, is invoked for every reserved inset
	// region during Render with the context translated to the region.
	insetPainter func(*canvas.Context, layout.Inset)

	fontBlobs map[string][]byte // by family name

	fontMu         sync.Mutex
	fontFamilies   map[string]*fontFamilyEntry
	fallbackFamily *canvas.FontFamily
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Typesetter = (*Renderer)(nil)
)

type fontFamilyEntry struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
}

// Options configures the canvas renderer.
type Options struct {
	BaseDir string              // root for resolving font paths
	Fonts   map[string]Resource // font files keyed by family name
	Format  Format              // defaults to FormatPDF
	DPMM    float64             // PNG resolution, defaults to 10 dots/mm
	Margin  float64             // mm around the bounds, defaults to 5

	InsetPainter func(*canvas.Context, layout.Inset)
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer creates a canvas-based renderer with default options.
func NewRenderer() *Renderer { return NewRendererWithOptions(Options{}) }

// NewRendererWithOptions creates a renderer with injected font
// resources. Fonts given by Path are read lazily relative to BaseDir.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		baseDir:      opts.BaseDir,
		format:       opts.Format,
		dpmm:         opts.DPMM,
		margin:       opts.Margin,
		insetPainter: opts.InsetPainter,
		fontBlobs:    map[string][]byte{},
		fontFamilies: map[string]*fontFamilyEntry{},
	}
	if r.format == "" {
		r.format = FormatPDF
	}
	if r.dpmm <= 0 {
		r.dpmm = defaultDPMM
	}
	if r.margin < 0 {
		r.margin = 0
	} else if opts.Margin == 0 {
		r.margin = defaultMargin
	}
	for name, res := range opts.Fonts {
		if name == "" {
			continue
		}
		if len(res.Bytes) > 0 {
			r.fontBlobs[name] = res.Bytes
			continue
		}
		if res.Path != "" {
			path := res.Path
			if !filepath.IsAbs(path) && r.baseDir != "" {
				path = filepath.Join(r.baseDir, path)
			}
			data, _ := os.ReadFile(path) // failure surfaces when the face is requested
			if len(data) > 0 {
				r.fontBlobs[name] = data
			}
		}
	}
	return r
}

// Measure implements layout.Typesetter. The face size is in pt; the
// returned extent is in mm, matching the canvas font metrics.
func (r *Renderer) Measure(text string, face layout.Face) (layout.Extent, error) {
	f, err := r.fontFace(face, layout.DefaultTextColor)
	if err != nil {
		return layout.Extent{}, err
	}
	m := f.Metrics()
	return layout.Extent{
		Width:   f.TextWidth(text),
		Ascent:  m.Ascent,
		Descent: m.Descent,
	}, nil
}

// Render draws the result onto a fresh canvas sized to its bounds plus
// the margin and encodes it in the configured format.
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("canvasrenderer: nil layout result")
	}
	if len(result.Rows) == 0 {
		return nil, fmt.Errorf("canvasrenderer: layout result has no rows")
	}

	width := result.Bounds.Width + 2*r.margin
	height := result.Bounds.Height + 2*r.margin
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvasrenderer: degenerate bounds %+v", result.Bounds)
	}
	c := canvas.New(width, height)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // top-left origin, matching the layout

	dx := r.margin - result.Bounds.X
	dy := r.margin - result.Bounds.Y
	if err := r.draw(ctx, result, dx, dy); err != nil {
		return nil, err
	}

	switch r.format {
	case FormatPNG:
		img := rasterizer.Draw(c, canvas.DPMM(r.dpmm), canvas.DefaultColorSpace)
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("canvasrenderer: encoding PNG: %w", err)
		}
		return buf.Bytes(), nil
	case FormatPDF:
		var buf bytes.Buffer
		writer := pdf.New(&buf, width, height, nil)
		c.RenderTo(writer)
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("canvasrenderer: writing PDF: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("canvasrenderer: unknown format %q", r.format)
	}
}

// DrawTo composites the result onto an existing context in the
// result's own coordinates, for callers embedding the annotation in a
// larger canvas. The context must use a top-left origin.
func (r *Renderer) DrawTo(ctx *canvas.Context, result *layout.Result) error {
	return r.draw(ctx, result, 0, 0)
}

func (r *Renderer) draw(ctx *canvas.Context, result *layout.Result, dx, dy float64) error {
	for _, row := range result.Rows {
		for _, frag := range row.Fragments {
			if err := r.drawFragment(ctx, frag, dx, dy); err != nil {
				return err
			}
		}
	}
	if r.insetPainter != nil {
		for _, ins := range result.Insets {
			shifted := ins
			shifted.Rect.X += dx
			shifted.Rect.Y += dy
			r.RenderInset(ctx, shifted, func(c *canvas.Context) {
				r.insetPainter(c, ins)
			})
		}
	}
	return nil
}

// RenderInset translates the context view to the inset's top-left
// corner and invokes draw, so child content renders in inset-local
// coordinates.
func (r *Renderer) RenderInset(ctx *canvas.Context, ins layout.Inset, draw func(*canvas.Context)) {
	ctx.Push()
	ctx.ComposeView(canvas.Identity.Translate(ins.Rect.X, ins.Rect.Y))
	draw(ctx)
	ctx.Pop()
}

func (r *Renderer) drawFragment(ctx *canvas.Context, frag layout.Fragment, dx, dy float64) error {
	x := frag.X + dx
	y := frag.Y + dy

	pad := 0.0
	if frag.Style.Box != nil {
		pad = frag.Style.Box.Pad.ToMM()
		if err := r.drawBox(ctx, frag, x, y); err != nil {
			return err
		}
	}
	if frag.Text == "" {
		return nil
	}

	face, err := r.fontFace(frag.Style.Face(), frag.Style.TextColor())
	if err != nil {
		return err
	}
	baseline := y + frag.Ascent
	textX := x + pad

	for _, eff := range frag.Style.Effects {
		if err := r.drawEffect(ctx, frag, eff, textX, baseline); err != nil {
			return err
		}
	}

	ctx.DrawText(textX, baseline, canvas.NewTextLine(face, frag.Text, canvas.Left))
	return nil
}

// drawBox fills the padded rectangle behind a fragment. The fragment
// width already includes the horizontal padding; vertically the box
// extends beyond the glyph extent by the same pad.
func (r *Renderer) drawBox(ctx *canvas.Context, frag layout.Fragment, x, y float64) error {
	box := frag.Style.Box
	pad := box.Pad.ToMM()
	w := frag.Width
	h := frag.Height + 2*pad

	if box.Fill != "" {
		c, err := layout.ParseColor(box.Fill)
		if err != nil {
			return fmt.Errorf("canvasrenderer: box fill: %w", err)
		}
		ctx.SetFillColor(colorFromLayout(c))
	} else {
		ctx.SetFillColor(canvas.Transparent)
	}
	if box.Stroke != "" {
		c, err := layout.ParseColor(box.Stroke)
		if err != nil {
			return fmt.Errorf("canvasrenderer: box stroke: %w", err)
		}
		ctx.SetStrokeColor(colorFromLayout(c))
		sw := box.StrokeWidth.ToMM()
		if sw <= 0 {
			sw = 0.2
		}
		ctx.SetStrokeWidth(sw)
	} else {
		ctx.SetStrokeColor(canvas.Transparent)
	}

	var p *canvas.Path
	if radius := box.Radius.ToMM(); radius > 0 {
		p = canvas.RoundedRectangle(w, h, radius)
	} else {
		p = canvas.Rectangle(w, h)
	}
	ctx.DrawPath(x, y-pad, p)
	return nil
}

// drawEffect renders a path effect beneath the glyphs: shadows are a
// single offset draw, strokes are approximated by a ring of offset
// draws in the effect color.
func (r *Renderer) drawEffect(ctx *canvas.Context, frag layout.Fragment, eff layout.Effect, textX, baseline float64) error {
	col := layout.DefaultTextColor
	if eff.Color != "" {
		var err error
		if col, err = layout.ParseColor(eff.Color); err != nil {
			return fmt.Errorf("canvasrenderer: effect color: %w", err)
		}
	}
	face, err := r.fontFace(frag.Style.Face(), col)
	if err != nil {
		return err
	}
	line := func() *canvas.Text { return canvas.NewTextLine(face, frag.Text, canvas.Left) }

	switch eff.Kind {
	case layout.EffectShadow:
		ox := eff.OffsetX.ToMM()
		oy := eff.OffsetY.ToMM()
		if ox == 0 && oy == 0 {
			ox, oy = 0.7, 0.7
		}
		ctx.DrawText(textX+ox, baseline+oy, line())
	case layout.EffectStroke:
		w := eff.Width.ToMM()
		if w <= 0 {
			w = 0.35
		}
		d := w / math.Sqrt2
		for _, off := range [][2]float64{
			{w, 0}, {-w, 0}, {0, w}, {0, -w},
			{d, d}, {d, -d}, {-d, d}, {-d, -d},
		} {
			ctx.DrawText(textX+off[0], baseline+off[1], line())
		}
	default:
		return fmt.Errorf("canvasrenderer: unknown effect kind %q", eff.Kind)
	}
	return nil
}

func (r *Renderer) fontFace(face layout.Face, col layout.Color) (*canvas.FontFace, error) {
	family, style, err := r.ensureFontFamily(face)
	if err != nil {
		return nil, err
	}
	return family.Face(face.SizePt, colorFromLayout(col), style, canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily(face layout.Face) (*canvas.FontFamily, canvas.FontStyle, error) {
	key := fontCacheKey(face)
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if entry, ok := r.fontFamilies[key]; ok {
		return entry.family, entry.style, nil
	}

	style := fontStyle(face.Weight, face.Slant)
	familyName := face.Font
	if familyName == "" {
		familyName = "hightext"
	}
	family := canvas.NewFontFamily(familyName)

	if err := r.loadFontIntoFamily(family, face, style); err != nil {
		fallback, fbErr := r.fallback()
		if fbErr != nil {
			return nil, canvas.FontRegular, err
		}
		r.fontFamilies[key] = &fontFamilyEntry{family: fallback, style: canvas.FontRegular}
		return fallback, canvas.FontRegular, nil
	}

	entry := &fontFamilyEntry{family: family, style: style}
	r.fontFamilies[key] = entry
	return family, style, nil
}

func (r *Renderer) loadFontIntoFamily(family *canvas.FontFamily, face layout.Face, style canvas.FontStyle) error {
	if blob, ok := r.fontBlobs[face.Font]; ok {
		return family.LoadFont(blob, 0, style)
	}
	name := face.Font
	if name == "" {
		name = "sans-serif"
	}
	return family.LoadSystemFont(name, style)
}

func (r *Renderer) fallback() (*canvas.FontFamily, error) {
	if r.fallbackFamily != nil {
		return r.fallbackFamily, nil
	}
	family := canvas.NewFontFamily("hightext-fallback")
	if err := family.LoadSystemFont("sans-serif", canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("canvasrenderer: no usable font: %w", err)
	}
	r.fallbackFamily = family
	return family, nil
}

// fontStyle maps weight/slant strings onto canvas font styles.
func fontStyle(weight, slant string) canvas.FontStyle {
	result := canvas.FontRegular
	switch w := strings.ToLower(strings.TrimSpace(weight)); {
	case strings.Contains(w, "black"), strings.Contains(w, "heavy"):
		result = canvas.FontBlack
	case strings.Contains(w, "extrabold"):
		result = canvas.FontExtraBold
	case strings.Contains(w, "semibold"), strings.Contains(w, "demibold"):
		result = canvas.FontSemiBold
	case strings.Contains(w, "bold"):
		result = canvas.FontBold
	case strings.Contains(w, "medium"):
		result = canvas.FontMedium
	case strings.Contains(w, "light"):
		result = canvas.FontLight
	case strings.Contains(w, "thin"):
		result = canvas.FontThin
	}
	s := strings.ToLower(strings.TrimSpace(slant))
	if strings.Contains(s, "italic") || strings.Contains(s, "oblique") {
		result |= canvas.FontItalic
	}
	return result
}

func fontCacheKey(face layout.Face) string {
	return fmt.Sprintf("%s|%s|%s", face.Font, face.Weight, face.Slant)
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, float64(c.A)/255.0)
}
