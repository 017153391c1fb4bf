package operations

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"image-jobs/internal/domain"
)

type Grayscaler struct{}

func NewGrayscaler() *Grayscaler {
	return &Grayscaler{}
}

func (g *Grayscaler) Apply(ctx context.Context, img image.Image, params map[string]interface{}) (image.Image, error) {
	bounds := img.Bounds()
	dst := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			dst.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return dst, nil
}

type Inverter struct{}

func NewInverter() *Inverter {
	return &Inverter{}
}

func (i *Inverter) Apply(ctx context.Context, img image.Image, params map[string]interface{}) (image.Image, error) {
	bounds := img.Bounds()
	dst := image.NewNRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			dst.SetNRGBA(x, y, color.NRGBA{R: 255 - c.R, G: 255 - c.G, B: 255 - c.B, A: c.A})
		}
	}
	return dst, nil
}

// Blurrer applies a box blur as two separable passes.
type Blurrer struct{}

func NewBlurrer() *Blurrer {
	return &Blurrer{}
}

func (b *Blurrer) Apply(ctx context.Context, img image.Image, params map[string]interface{}) (image.Image, error) {
	radius := intParam(params, domain.ParamRadius, domain.DefaultBlurRadius)
	if radius < 0 {
		return nil, fmt.Errorf("radius must not be negative")
	}

	bounds := img.Bounds()
	src := image.NewNRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			src.Set(x, y, img.At(x, y))
		}
	}
	if radius == 0 {
		return src, nil
	}

	tmp := boxPass(src, radius, true)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return boxPass(tmp, radius, false), nil
}

func boxPass(src *image.NRGBA, radius int, horizontal bool) *image.NRGBA {
	bounds := src.Bounds()
	dst := image.NewNRGBA(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			var r, g, bl, a, n int
			for k := -radius; k <= radius; k++ {
				sx, sy := x, y
				if horizontal {
					sx += k
				} else {
					sy += k
				}
				if !(image.Point{X: sx, Y: sy}.In(bounds)) {
					continue
				}
				c := src.NRGBAAt(sx, sy)
				r += int(c.R)
				g += int(c.G)
				bl += int(c.B)
				a += int(c.A)
				n++
			}
			dst.SetNRGBA(x, y, color.NRGBA{
				R: uint8(r / n),
				G: uint8(g / n),
				B: uint8(bl / n),
				A: uint8(a / n),
			})
		}
	}

	return dst
}
