package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"

	"screen-schedule/src/llm"
)

// VisionEngine recognizes text with a remote vision model. It ignores the
// detection params; maxSideLen is already applied by the adapter.
type VisionEngine struct {
	client *llm.Client
	ready  bool
}

func NewVisionEngine(client *llm.Client) *VisionEngine {
	return &VisionEngine{client: client}
}

func (e *VisionEngine) Init(assetsDir string, threads int) int {
	if e.client == nil {
		return -1
	}
	e.ready = true
	return 0
}

func (e *VisionEngine) SetParams(Params) {}

func (e *VisionEngine) Detect(ctx context.Context, in, out *image.RGBA, maxSideLen int) (Result, error) {
	if !e.ready {
		return Result{}, errors.New("vision engine not initialized")
	}
	data, err := encodePNG(in)
	if err != nil {
		return Result{}, err
	}
	text, err := e.client.QueryVision(ctx, data)
	if errors.Is(err, llm.ErrNoText) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, err
	}
	return Result{StrRes: text}, nil
}

func (e *VisionEngine) Close() error {
	e.ready = false
	return nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image as PNG: %w", err)
	}
	return buf.Bytes(), nil
}
