package processor_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"image-jobs/internal/domain"
	"image-jobs/internal/usecase/processor"

	"github.com/rs/zerolog"
)

func newProcessor(t *testing.T) *processor.ImageProcessor {
	t.Helper()
	logger := zerolog.Nop()
	p, err := processor.NewImageProcessor(&logger)
	if err != nil {
		t.Fatalf("NewImageProcessor: %v", err)
	}
	return p
}

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestProcessGrayscaleAndInvert(t *testing.T) {
	t.Parallel()

	p := newProcessor(t)
	task := &domain.ProcessingTask{
		JobID: "job-1",
		Operations: []domain.OperationParams{
			{Type: domain.OpInvert},
			{Type: domain.OpGrayscale},
		},
	}

	out, err := p.Process(context.Background(), task, solidPNG(t, 4, 4, color.RGBA{R: 255, A: 255}))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Format != domain.FormatPNG || out.ContentType != "image/png" {
		t.Fatalf("unexpected output format %s/%s", out.Format, out.ContentType)
	}

	img, err := png.Decode(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	r, g, b, _ := img.At(1, 1).RGBA()
	if r != g || g != b {
		t.Fatalf("expected a gray pixel, got %d,%d,%d", r, g, b)
	}
	// Grayscale runs before invert, so pure red becomes the inverse of its luma.
	gray := color.GrayModel.Convert(color.RGBA{R: 255, A: 255}).(color.Gray).Y
	if want := uint32(255-gray) * 0x101; r != want {
		t.Fatalf("pixel = %d, want %d", r, want)
	}
}

func TestProcessResizeFitsMaxDimension(t *testing.T) {
	t.Parallel()

	p := newProcessor(t)
	task := &domain.ProcessingTask{
		JobID: "job-2",
		Operations: []domain.OperationParams{
			{Type: domain.OpResize, Parameters: map[string]interface{}{domain.ParamMaxDimension: 50}},
		},
	}

	out, err := p.Process(context.Background(), task, solidPNG(t, 200, 100, color.White))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.Width != 50 || cfg.Height != 25 {
		t.Fatalf("size = %dx%d, want 50x25", cfg.Width, cfg.Height)
	}
}

func TestProcessBlurAndWatermark(t *testing.T) {
	t.Parallel()

	p := newProcessor(t)
	task := &domain.ProcessingTask{
		JobID: "job-3",
		Operations: []domain.OperationParams{
			{Type: domain.OpBlur},
			{Type: domain.OpWatermark, Parameters: map[string]interface{}{domain.ParamText: "hello"}},
		},
	}

	if _, err := p.Process(context.Background(), task, solidPNG(t, 120, 80, color.Black)); err != nil {
		t.Fatalf("Process: %v", err)
	}
}

func TestProcessRejectsUnknownOperation(t *testing.T) {
	t.Parallel()

	p := newProcessor(t)
	task := &domain.ProcessingTask{
		JobID:      "job-4",
		Operations: []domain.OperationParams{{Type: "sepia"}},
	}

	_, err := p.Process(context.Background(), task, solidPNG(t, 4, 4, color.White))
	if err == nil || !strings.Contains(err.Error(), "unsupported operation") {
		t.Fatalf("error = %v, want unsupported operation", err)
	}
}

func TestProcessRejectsNonImage(t *testing.T) {
	t.Parallel()

	p := newProcessor(t)
	_, err := p.Process(context.Background(), &domain.ProcessingTask{JobID: "job-5"}, []byte("plain text"))
	if err == nil || !strings.Contains(err.Error(), "decode") {
		t.Fatalf("error = %v, want decode failure", err)
	}
}
