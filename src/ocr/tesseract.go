//go:build tesseract

package ocr

import (
	"context"
	"errors"
	"image"
	"log"
	"os"
	"strconv"

	"github.com/otiai10/gosseract"
)

// TesseractAvailable reports whether the native engine is compiled in.
const TesseractAvailable = true

// TesseractEngine wraps libtesseract through gosseract.
type TesseractEngine struct {
	language string
	client   *gosseract.Client
	params   Params
}

func NewTesseractEngine(language string) (Engine, error) {
	if language == "" {
		language = "eng"
	}
	return &TesseractEngine{language: language}, nil
}

func (e *TesseractEngine) Init(assetsDir string, threads int) int {
	if threads > 0 {
		_ = os.Setenv("OMP_THREAD_LIMIT", strconv.Itoa(threads))
	}
	c := gosseract.NewClient()
	if assetsDir != "" {
		if err := c.SetTessdataPrefix(assetsDir); err != nil {
			log.Printf("ocr: tessdata prefix %q: %v", assetsDir, err)
			_ = c.Close()
			return -1
		}
	}
	if err := c.SetLanguage(e.language); err != nil {
		log.Printf("ocr: language %q: %v", e.language, err)
		_ = c.Close()
		return -1
	}
	e.client = c
	e.applyParams()
	return 0
}

func (e *TesseractEngine) SetParams(p Params) {
	e.params = p
	e.applyParams()
}

func (e *TesseractEngine) applyParams() {
	if e.client == nil {
		return
	}
	mode := gosseract.PSM_AUTO
	if e.params.DoAngle {
		// orientation detection handles rotated text
		mode = gosseract.PSM_AUTO_OSD
	}
	if err := e.client.SetPageSegMode(mode); err != nil {
		log.Printf("ocr: page seg mode: %v", err)
	}
}

func (e *TesseractEngine) Detect(ctx context.Context, in, out *image.RGBA, maxSideLen int) (Result, error) {
	if e.client == nil {
		return Result{}, errors.New("tesseract engine not initialized")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	data, err := encodePNG(in)
	if err != nil {
		return Result{}, err
	}
	if err := e.client.SetImageFromBytes(data); err != nil {
		return Result{}, err
	}
	text, err := e.client.Text()
	if err != nil {
		return Result{}, err
	}
	return Result{StrRes: text}, nil
}

func (e *TesseractEngine) Close() error {
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}
