package domain

type ProcessingTask struct {
	ID         string            `json:"id"`
	JobID      string            `json:"job_id"`
	InputKey   string            `json:"input_key"`
	FileName   string            `json:"file_name"`
	Operations []OperationParams `json:"operations"`
}

type OperationParams struct {
	Type       OperationType          `json:"type"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

type OperationType string

const (
	OpGrayscale OperationType = "grayscale"
	OpInvert    OperationType = "invert"
	OpBlur      OperationType = "blur"
	OpResize    OperationType = "resize"
	OpWatermark OperationType = "watermark"
)

// OperationOrder is the order the worker applies requested operations in,
// whatever order they were submitted in.
var OperationOrder = []OperationType{OpGrayscale, OpInvert, OpBlur, OpResize, OpWatermark}

type ImageFormat string

const (
	FormatJPEG ImageFormat = "jpeg"
	FormatPNG  ImageFormat = "png"
	FormatGIF  ImageFormat = "gif"
)

type WatermarkPosition string

const (
	WatermarkTopLeft     WatermarkPosition = "top-left"
	WatermarkTopRight    WatermarkPosition = "top-right"
	WatermarkBottomLeft  WatermarkPosition = "bottom-left"
	WatermarkBottomRight WatermarkPosition = "bottom-right"
	WatermarkCenter      WatermarkPosition = "center"
)

const (
	JobTypeImage = "image"
)

const (
	DefaultMaxDimension     = 1024
	DefaultBlurRadius       = 3
	DefaultJPEGQuality      = 85
	DefaultWatermarkOpacity = 0.5
	DefaultWatermarkSize    = 36
)

const (
	ParamMaxDimension = "max_dimension"
	ParamRadius       = "radius"
	ParamText         = "text"
	ParamPosition     = "position"
	ParamOpacity      = "opacity"
	ParamFontSize     = "font_size"
)
