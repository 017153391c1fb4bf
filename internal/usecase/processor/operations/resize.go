package operations

import (
	"context"
	"fmt"
	"image"

	"image-jobs/internal/domain"

	xdraw "golang.org/x/image/draw"
)

type Resizer struct{}

func NewResizer() *Resizer {
	return &Resizer{}
}

// Apply shrinks img so that its longer side is at most max_dimension pixels,
// keeping the aspect ratio. Smaller images are returned unchanged.
func (r *Resizer) Apply(ctx context.Context, img image.Image, params map[string]interface{}) (image.Image, error) {
	maxDim := intParam(params, domain.ParamMaxDimension, domain.DefaultMaxDimension)
	if maxDim <= 0 {
		return nil, fmt.Errorf("max_dimension must be a positive number")
	}

	bounds := img.Bounds()
	origWidth := bounds.Dx()
	origHeight := bounds.Dy()

	if origWidth <= maxDim && origHeight <= maxDim {
		return img, nil
	}

	var newWidth, newHeight int
	if origWidth >= origHeight {
		newWidth = maxDim
		newHeight = int(float64(origHeight) * float64(maxDim) / float64(origWidth))
	} else {
		newHeight = maxDim
		newWidth = int(float64(origWidth) * float64(maxDim) / float64(origHeight))
	}
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	return resizeImage(img, newWidth, newHeight), nil
}

func resizeImage(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	return dst
}

func intParam(params map[string]interface{}, name string, def int) int {
	switch v := params[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

func floatParam(params map[string]interface{}, name string, def float64) float64 {
	switch v := params[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}
