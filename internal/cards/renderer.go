package cards

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/nialike/backend/internal/models"
)

const (
	// RenderScale is the raster scale applied to the design's canvas size.
	RenderScale = 3
	// DefaultQRSize is the QR edge length used when an element has no size.
	DefaultQRSize = 100
	// DefaultFontSize applies to text elements without a font size.
	DefaultFontSize = 16

	minTextBoxWidth = 100
	textPadding     = 4
	lineHeight      = 1.2
)

// Renderer composes card designs into raster images.
type Renderer struct {
	backgrounds BackgroundLoader
	fonts       *fontSet
	logger      *zap.Logger
}

// NewRenderer returns a renderer. backgrounds may be nil, in which case cards are drawn on white.
func NewRenderer(backgrounds BackgroundLoader, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{backgrounds: backgrounds, fonts: newFontSet(), logger: logger}
}

// Render draws design for guest at RenderScale. Elements are painted in list order so later
// ones sit on top. A background that cannot be loaded is skipped.
func (r *Renderer) Render(ctx context.Context, design models.CardDesign, guest models.Guest, event models.Event, attrs []models.EventAttribute) (image.Image, error) {
	if design.CanvasWidth <= 0 || design.CanvasHeight <= 0 {
		return nil, fmt.Errorf("render card: invalid canvas %dx%d", design.CanvasWidth, design.CanvasHeight)
	}
	width := design.CanvasWidth * RenderScale
	height := design.CanvasHeight * RenderScale
	canvas := imaging.New(width, height, color.White)

	if design.BackgroundImage != "" && r.backgrounds != nil {
		bg, err := r.backgrounds.Load(ctx, design.BackgroundImage)
		if err != nil {
			r.logger.Warn("card background unavailable, using blank background",
				zap.String("design_id", design.ID.String()), zap.Error(err))
		} else {
			canvas = imaging.Overlay(canvas, imaging.Fill(bg, width, height, imaging.Center, imaging.Lanczos), image.Pt(0, 0), 1.0)
		}
	}

	faces := r.fonts.faces()
	defer faces.Close()

	for i, el := range design.TextElements {
		var err error
		if el.IsQRCode() {
			canvas, err = drawQR(canvas, el, guest.ID.String())
		} else {
			err = drawText(canvas, faces, el, Resolve(el.Text, guest, event, attrs))
		}
		if err != nil {
			return nil, fmt.Errorf("render element %d (%s): %w", i, el.ID, err)
		}
	}
	return canvas, nil
}

// EncodePNG encodes a rendered card as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func scaled(v float64) int {
	return int(math.Round(v * RenderScale))
}

func drawQR(canvas *image.NRGBA, el models.TextElement, content string) (*image.NRGBA, error) {
	w, h := el.Width, el.Height
	if w <= 0 {
		w = DefaultQRSize
	}
	if h <= 0 {
		h = DefaultQRSize
	}
	pw, ph := scaled(w), scaled(h)
	code, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return canvas, fmt.Errorf("qr encode: %w", err)
	}
	code.DisableBorder = true
	// One pixel per module, then scaled to the element box so modules stay crisp.
	img := imaging.Resize(code.Image(-1), pw, ph, imaging.NearestNeighbor)
	return imaging.Overlay(canvas, img, image.Pt(scaled(el.X), scaled(el.Y)), 1.0), nil
}

func drawText(canvas *image.NRGBA, faces *faceSet, el models.TextElement, text string) error {
	size := el.FontSize
	if size <= 0 {
		size = DefaultFontSize
	}
	face, err := faces.face(fontKeyFor(el.FontFamily, el.FontWeight, el.FontStyle), size*RenderScale)
	if err != nil {
		return err
	}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	widths := make([]int, len(lines))
	boxWidth := scaled(math.Max(el.Width, minTextBoxWidth))
	for i, line := range lines {
		widths[i] = font.MeasureString(face, line).Ceil()
		if widths[i] > boxWidth {
			boxWidth = widths[i]
		}
	}

	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	step := int(math.Round(size * RenderScale * lineHeight))
	pad := textPadding * RenderScale
	left := scaled(el.X) + pad
	top := scaled(el.Y) + pad
	ink := image.NewUniform(ParseColor(el.Color))

	d := &font.Drawer{Dst: canvas, Src: ink, Face: face}
	for i, line := range lines {
		x := left
		switch strings.ToLower(el.TextAlign) {
		case "center":
			x += (boxWidth - widths[i]) / 2
		case "right":
			x += boxWidth - widths[i]
		}
		baseline := top + i*step + ascent + (step-metrics.Height.Ceil())/2
		d.Dot = fixed.P(x, baseline)
		d.DrawString(line)
		if widths[i] > 0 {
			decorate(canvas, ink, el.TextDecoration, x, baseline, widths[i], size, metrics)
		}
	}
	return nil
}

// decorate draws underline and line-through strokes for one line of text.
func decorate(canvas draw.Image, ink image.Image, decoration string, x, baseline, width int, size float64, metrics font.Metrics) {
	decoration = strings.ToLower(decoration)
	thickness := int(math.Max(1, math.Round(size*RenderScale/15)))
	if strings.Contains(decoration, "underline") {
		y := baseline + metrics.Descent.Ceil()/3
		draw.Draw(canvas, image.Rect(x, y, x+width, y+thickness), ink, image.Point{}, draw.Over)
	}
	if strings.Contains(decoration, "line-through") {
		y := baseline - metrics.Ascent.Ceil()*3/10
		draw.Draw(canvas, image.Rect(x, y, x+width, y+thickness), ink, image.Point{}, draw.Over)
	}
}
