package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log"
	"sync"

	"github.com/nfnt/resize"
)

var ErrNotInitialized = errors.New("ocr engine not initialized")

// Options configures an Adapter.
type Options struct {
	AssetsDir  string
	Threads    int
	MaxSideLen int
	Params     Params
}

// Adapter owns one engine instance. Calls are serialized: the engines are
// not known to be safe for concurrent use.
type Adapter struct {
	newEngine func() (Engine, error)
	opts      Options

	mu          sync.Mutex
	engine      Engine
	initialized bool
	initErr     error
}

func NewAdapter(newEngine func() (Engine, error), opts Options) *Adapter {
	if opts.MaxSideLen <= 0 {
		opts.MaxSideLen = DefaultMaxSideLen
	}
	if opts.Threads <= 0 {
		opts.Threads = 4
	}
	if opts.Params == (Params{}) {
		opts.Params = DefaultParams()
	}
	return &Adapter{newEngine: newEngine, opts: opts}
}

// Init constructs and loads the engine once. Later calls are no-ops after
// success; after failure they retry.
func (a *Adapter) Init() (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.initialized {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ocr init panic: %v", r)
		}
		if err != nil {
			a.initErr = err
			log.Printf("ocr: init failed: %v", err)
		}
	}()

	if a.engine == nil {
		eng, err := a.newEngine()
		if err != nil {
			return fmt.Errorf("create engine: %w", err)
		}
		a.engine = eng
	}
	a.engine.SetParams(a.opts.Params)
	if rc := a.engine.Init(a.opts.AssetsDir, a.opts.Threads); rc < 0 {
		return fmt.Errorf("engine init returned %d", rc)
	}
	a.initialized = true
	a.initErr = nil
	log.Printf("ocr: engine ready (threads=%d, max side=%d)", a.opts.Threads, a.opts.MaxSideLen)
	return nil
}

// Initialized reports whether Init has succeeded.
func (a *Adapter) Initialized() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.initialized
}

// Recognize returns the text found in img. An empty string means no text.
// Engine errors and panics are logged and reported as empty text; only a
// missing Init is returned as an error.
func (a *Adapter) Recognize(ctx context.Context, img image.Image) (text string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.initialized {
		if a.initErr != nil {
			return "", fmt.Errorf("%w: %v", ErrNotInitialized, a.initErr)
		}
		return "", ErrNotInitialized
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("ocr: recognize panic: %v", r)
			text, err = "", nil
		}
	}()

	in := Downscale(toRGBA(img), a.opts.MaxSideLen)
	out := cloneRGBA(in)
	res, derr := a.engine.Detect(ctx, in, out, a.opts.MaxSideLen)
	if derr != nil {
		log.Printf("ocr: detect failed: %v", derr)
		return "", nil
	}
	return Normalize(res.StrRes), nil
}

// Close releases the engine. The adapter must be re-initialized to be used again.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.initialized = false
	if a.engine == nil {
		return nil
	}
	err := a.engine.Close()
	a.engine = nil
	return err
}

// Downscale shrinks img so its longest side is maxSide, preserving aspect
// ratio. Images already within bounds are returned unchanged.
func Downscale(img *image.RGBA, maxSide int) *image.RGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	long := w
	if h > long {
		long = h
	}
	if maxSide <= 0 || long <= maxSide {
		return img
	}
	nw, nh := scaledSize(w, h, maxSide)
	return toRGBA(resize.Resize(uint(nw), uint(nh), img, resize.Lanczos3))
}

func scaledSize(w, h, maxSide int) (int, int) {
	scale := float64(maxSide) / float64(max(w, h))
	nw := int(float64(w)*scale + 0.5)
	nh := int(float64(h)*scale + 0.5)
	if w >= h {
		nw = maxSide
	} else {
		nh = maxSide
	}
	return max(nw, 1), max(nh, 1)
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

func cloneRGBA(img *image.RGBA) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}
