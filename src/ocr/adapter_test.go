package ocr

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	initRC     int
	initPanic  bool
	text       string
	detectErr  error
	panicOnUse bool

	inits   int
	params  Params
	lastIn  image.Rectangle
	lastOut image.Rectangle
	lastMax int
	closed  bool
}

func (s *stubEngine) Init(assetsDir string, threads int) int {
	s.inits++
	if s.initPanic {
		panic("native library missing")
	}
	return s.initRC
}

func (s *stubEngine) SetParams(p Params) { s.params = p }

func (s *stubEngine) Detect(ctx context.Context, in, out *image.RGBA, maxSideLen int) (Result, error) {
	if s.panicOnUse {
		panic("segfault in detector")
	}
	s.lastIn, s.lastOut, s.lastMax = in.Bounds(), out.Bounds(), maxSideLen
	return Result{StrRes: s.text}, s.detectErr
}

func (s *stubEngine) Close() error {
	s.closed = true
	return nil
}

func adapterFor(eng *stubEngine) (*Adapter, *int) {
	constructed := 0
	a := NewAdapter(func() (Engine, error) {
		constructed++
		return eng, nil
	}, Options{})
	return a, &constructed
}

func TestInitIsIdempotent(t *testing.T) {
	eng := &stubEngine{}
	a, constructed := adapterFor(eng)

	require.NoError(t, a.Init())
	require.NoError(t, a.Init())
	assert.Equal(t, 1, *constructed)
	assert.Equal(t, 1, eng.inits)
	assert.Equal(t, DefaultParams(), eng.params)
	assert.True(t, a.Initialized())
}

func TestInitFailureFailsFast(t *testing.T) {
	tests := []struct {
		name string
		eng  *stubEngine
	}{
		{"negative result", &stubEngine{initRC: -1}},
		{"panic", &stubEngine{initPanic: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := adapterFor(tt.eng)
			require.Error(t, a.Init())
			assert.False(t, a.Initialized())

			_, err := a.Recognize(context.Background(), image.NewRGBA(image.Rect(0, 0, 10, 10)))
			assert.True(t, errors.Is(err, ErrNotInitialized), "got %v", err)
		})
	}
}

func TestEngineConstructionFailure(t *testing.T) {
	a := NewAdapter(func() (Engine, error) { return nil, errors.New("no lib") }, Options{})
	require.Error(t, a.Init())
	_, err := a.Recognize(context.Background(), image.NewRGBA(image.Rect(0, 0, 1, 1)))
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestRecognizeConvertsFailuresToEmpty(t *testing.T) {
	tests := []struct {
		name string
		eng  *stubEngine
	}{
		{"engine error", &stubEngine{detectErr: errors.New("boom"), text: "ignored"}},
		{"engine panic", &stubEngine{panicOnUse: true}},
		{"no text", &stubEngine{text: ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := adapterFor(tt.eng)
			require.NoError(t, a.Init())
			text, err := a.Recognize(context.Background(), image.NewRGBA(image.Rect(0, 0, 10, 10)))
			assert.NoError(t, err)
			assert.Empty(t, text)
		})
	}
}

func TestRecognizePassesBoundAndBuffers(t *testing.T) {
	eng := &stubEngine{text: "  Dentist\t\t3pm \r\n\r\n\r\n\r\nRoom 2  "}
	a, _ := adapterFor(eng)
	require.NoError(t, a.Init())

	text, err := a.Recognize(context.Background(), image.NewRGBA(image.Rect(0, 0, 3200, 800)))
	require.NoError(t, err)
	assert.Equal(t, "Dentist 3pm\n\nRoom 2", text)
	assert.Equal(t, DefaultMaxSideLen, eng.lastMax)
	assert.Equal(t, image.Rect(0, 0, 1600, 400), eng.lastIn)
	assert.Equal(t, eng.lastIn, eng.lastOut)
}

func TestDownscale(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"landscape", 3200, 1800, 1600, 900},
		{"portrait", 1080, 2400, 720, 1600},
		{"odd ratio rounds", 1601, 3, 1600, 3},
		{"exactly bound", 1600, 1200, 1600, 1200},
		{"small stays", 640, 480, 640, 480},
		{"tall sliver", 1, 5000, 1, 1600},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := image.NewRGBA(image.Rect(0, 0, tt.w, tt.h))
			got := Downscale(src, 1600)
			assert.Equal(t, tt.wantW, got.Bounds().Dx())
			assert.Equal(t, tt.wantH, got.Bounds().Dy())
			assert.LessOrEqual(t, max(got.Bounds().Dx(), got.Bounds().Dy()), max(tt.w, tt.h), "never upscale")
			if max(tt.w, tt.h) <= 1600 {
				assert.Same(t, src, got, "in-bound images pass through unchanged")
			}
		})
	}
}

func TestCloseReleasesEngine(t *testing.T) {
	eng := &stubEngine{}
	a, constructed := adapterFor(eng)
	require.NoError(t, a.Init())
	require.NoError(t, a.Close())
	assert.True(t, eng.closed)
	assert.False(t, a.Initialized())

	require.NoError(t, a.Init())
	assert.Equal(t, 2, *constructed)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "a b\n\nc", Normalize("a   b\n-----\nc"))
}
