package runtimeinit

import (
	"fmt"
	"log"

	"screen-schedule/src/clipboard"
	"screen-schedule/src/config"
	"screen-schedule/src/history"
	"screen-schedule/src/notification"
	"screen-schedule/src/ocr"
)

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(bool)
	// ShowBlockingOCRError shows a dialog when the recognizer cannot start.
	ShowBlockingOCRError bool
	// SkipHistory leaves Deps.History nil even when HISTORY_DB is set.
	SkipHistory bool
}

// Deps are the process-wide resources shared by every capture flow.
type Deps struct {
	Config  *config.Config
	OCR     *ocr.Adapter
	Engine  string
	History *history.Store
}

// Close releases the recognizer and the history store.
func (d *Deps) Close() {
	if d == nil {
		return
	}
	if d.OCR != nil {
		_ = d.OCR.Close()
	}
	if d.History != nil {
		if err := d.History.Close(); err != nil {
			log.Printf("history close: %v", err)
		}
	}
}

// Bootstrap loads configuration, sets up logging and initializes the
// recognizer. A recognizer that fails to start is fatal; clipboard and
// history failures are logged and tolerated.
func Bootstrap(opts Options) (*Deps, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}

	adapter, engine, err := ocr.NewFromConfig(cfg)
	if err == nil {
		err = adapter.Init()
	}
	if err != nil {
		if opts.ShowBlockingOCRError {
			notification.ShowBlockingError("Text recognition unavailable", fmt.Sprintf("Startup check failed: %v\n\nPlease verify the OCR engine settings.", err))
		}
		return nil, fmt.Errorf("ocr engine %q: %w", engine, err)
	}
	log.Printf("OCR engine %s ready", engine)

	if err := clipboard.Init(); err != nil {
		log.Printf("clipboard unavailable: %v", err)
	}

	deps := &Deps{Config: cfg, OCR: adapter, Engine: engine}
	if cfg.HistoryDB != "" && !opts.SkipHistory {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			log.Printf("history disabled: %v", err)
		} else {
			deps.History = store
		}
	}
	return deps, nil
}
