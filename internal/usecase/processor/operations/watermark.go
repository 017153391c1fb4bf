package operations

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"image-jobs/internal/domain"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

const watermarkMargin = 20

type Watermarker struct {
	font *truetype.Font
}

func NewWatermarker() (*Watermarker, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	return &Watermarker{font: f}, nil
}

func (w *Watermarker) Apply(ctx context.Context, img image.Image, params map[string]interface{}) (image.Image, error) {
	text, _ := params[domain.ParamText].(string)
	if text == "" {
		return nil, fmt.Errorf("watermark text is required")
	}

	opacity := floatParam(params, domain.ParamOpacity, domain.DefaultWatermarkOpacity)
	if opacity <= 0 || opacity > 1 {
		opacity = domain.DefaultWatermarkOpacity
	}

	fontSize := floatParam(params, domain.ParamFontSize, domain.DefaultWatermarkSize)
	if fontSize <= 0 {
		fontSize = domain.DefaultWatermarkSize
	}

	position, _ := params[domain.ParamPosition].(string)

	bounds := img.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	c := freetype.NewContext()
	c.SetDPI(72)
	c.SetFont(w.font)
	c.SetFontSize(fontSize)
	c.SetClip(result.Bounds())
	c.SetDst(result)
	c.SetSrc(image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: uint8(255 * opacity)}))
	c.SetHinting(font.HintingFull)

	pt := w.origin(bounds, domain.WatermarkPosition(position), text, fontSize)
	if _, err := c.DrawString(text, pt); err != nil {
		return nil, fmt.Errorf("failed to draw watermark text: %w", err)
	}

	return result, nil
}

func (w *Watermarker) origin(bounds image.Rectangle, position domain.WatermarkPosition, text string, fontSize float64) fixed.Point26_6 {
	textWidth := w.measure(text, fontSize)
	textHeight := int(fontSize * 1.2)
	minX, minY := bounds.Min.X, bounds.Min.Y

	switch position {
	case domain.WatermarkTopLeft:
		return freetype.Pt(minX+watermarkMargin, minY+watermarkMargin+int(fontSize))
	case domain.WatermarkTopRight:
		return freetype.Pt(minX+bounds.Dx()-textWidth-watermarkMargin, minY+watermarkMargin+int(fontSize))
	case domain.WatermarkBottomLeft:
		return freetype.Pt(minX+watermarkMargin, minY+bounds.Dy()-watermarkMargin)
	case domain.WatermarkCenter:
		return freetype.Pt(minX+(bounds.Dx()-textWidth)/2, minY+(bounds.Dy()+textHeight)/2)
	default:
		return freetype.Pt(minX+bounds.Dx()-textWidth-watermarkMargin, minY+bounds.Dy()-watermarkMargin)
	}
}

func (w *Watermarker) measure(text string, fontSize float64) int {
	face := truetype.NewFace(w.font, &truetype.Options{Size: fontSize, DPI: 72})
	defer face.Close()
	return font.MeasureString(face, text).Ceil()
}
