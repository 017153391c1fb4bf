package processor

import (
	"context"
	"image"
)

type operation interface {
	Apply(ctx context.Context, img image.Image, params map[string]interface{}) (image.Image, error)
}
