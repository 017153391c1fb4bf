package processor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"image-jobs/internal/domain"
	"image-jobs/internal/usecase/processor/operations"

	"github.com/wb-go/wbf/zlog"
)

type Output struct {
	Data        []byte
	Format      domain.ImageFormat
	ContentType string
}

type ImageProcessor struct {
	operations map[domain.OperationType]operation
	logger     *zlog.Zerolog
}

func NewImageProcessor(logger *zlog.Zerolog) (*ImageProcessor, error) {
	watermarker, err := operations.NewWatermarker()
	if err != nil {
		return nil, err
	}

	return &ImageProcessor{
		operations: map[domain.OperationType]operation{
			domain.OpGrayscale: operations.NewGrayscaler(),
			domain.OpInvert:    operations.NewInverter(),
			domain.OpBlur:      operations.NewBlurrer(),
			domain.OpResize:    operations.NewResizer(),
			domain.OpWatermark: watermarker,
		},
		logger: logger,
	}, nil
}

// Process decodes the input, applies the requested operations in
// domain.OperationOrder and encodes the result in the input's format.
func (p *ImageProcessor) Process(ctx context.Context, task *domain.ProcessingTask, data []byte) (*Output, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	requested := make(map[domain.OperationType]domain.OperationParams, len(task.Operations))
	for _, op := range task.Operations {
		if _, ok := p.operations[op.Type]; !ok {
			return nil, fmt.Errorf("unsupported operation type: %s", op.Type)
		}
		requested[op.Type] = op
	}

	p.logger.Info().
		Str("job_id", task.JobID).
		Str("format", format).
		Int("operations", len(requested)).
		Msg("Starting image processing")

	for _, opType := range domain.OperationOrder {
		op, ok := requested[opType]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err = p.operations[opType].Apply(ctx, img, op.Parameters)
		if err != nil {
			return nil, fmt.Errorf("operation %s failed: %w", opType, err)
		}

		p.logger.Debug().
			Str("job_id", task.JobID).
			Str("operation", string(opType)).
			Msg("Operation applied")
	}

	return encode(img, format)
}

func encode(img image.Image, format string) (*Output, error) {
	buf := new(bytes.Buffer)
	out := &Output{}
	var err error

	switch format {
	case "jpeg":
		err = jpeg.Encode(buf, img, &jpeg.Options{Quality: domain.DefaultJPEGQuality})
		out.Format, out.ContentType = domain.FormatJPEG, "image/jpeg"
	case "gif":
		err = gif.Encode(buf, img, nil)
		out.Format, out.ContentType = domain.FormatGIF, "image/gif"
	default:
		err = png.Encode(buf, img)
		out.Format, out.ContentType = domain.FormatPNG, "image/png"
	}

	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", out.Format, err)
	}

	out.Data = buf.Bytes()
	return out, nil
}
