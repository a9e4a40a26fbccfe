package ocr

import (
	"fmt"

	"screen-schedule/src/config"
	"screen-schedule/src/llm"
)

// NewFromConfig builds an adapter for the configured engine. "auto" prefers
// the native engine when it is compiled in.
func NewFromConfig(cfg *config.Config) (*Adapter, string, error) {
	engine := cfg.OCREngine
	if engine == config.EngineAuto {
		engine = config.EngineVision
		if TesseractAvailable {
			engine = config.EngineTesseract
		}
	}

	opts := Options{
		AssetsDir:  cfg.OCRAssetsDir,
		Threads:    cfg.OCRThreads,
		MaxSideLen: cfg.OCRMaxSide,
	}

	switch engine {
	case config.EngineTesseract:
		lang := cfg.OCRLanguage
		return NewAdapter(func() (Engine, error) { return NewTesseractEngine(lang) }, opts), engine, nil
	case config.EngineVision:
		client := llm.NewClient(llm.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			Providers: cfg.Providers,
			Timeout:   cfg.RemoteTimeout,
		})
		if cfg.APIKey == "" || cfg.Model == "" {
			return nil, engine, fmt.Errorf("vision engine needs OPENROUTER_API_KEY and MODEL")
		}
		return NewAdapter(func() (Engine, error) { return NewVisionEngine(client), nil }, opts), engine, nil
	default:
		return nil, engine, fmt.Errorf("unknown OCR engine %q", engine)
	}
}
