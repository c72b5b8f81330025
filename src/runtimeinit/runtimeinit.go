package runtimeinit

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"quick-ocr/src/clipboard"
	"quick-ocr/src/config"
	"quick-ocr/src/notification"
	"quick-ocr/src/ocr"
	"quick-ocr/src/preprocess"
)

const engineCheckTimeout = 10 * time.Second

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(bool)
	// ShowBlockingEngineError pops a modal dialog when the engine check fails.
	ShowBlockingEngineError bool
	InitClipboard           bool
}

// Runtime holds what every entry point needs after startup.
type Runtime struct {
	Config   *config.Config
	Engine   ocr.Engine
	Pipeline *ocr.Pipeline
}

func (r *Runtime) Deadline() time.Duration {
	return time.Duration(r.Config.OCRDeadlineSec) * time.Second
}

func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}

	pipeline, err := NewPipeline(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), engineCheckTimeout)
	defer cancel()
	if err := pipeline.Engine.Check(ctx); err != nil {
		if opts.ShowBlockingEngineError {
			notification.ShowBlockingError("Tesseract unavailable", fmt.Sprintf("Startup check failed: %v\n\nInstall Tesseract with the %s languages or set TESSERACT_CMD.", err, cfg.Languages))
		}
		return nil, fmt.Errorf("startup check failed: %w", err)
	}
	log.Printf("OCR engine %s ready (languages=%s psm=%d)", pipeline.Engine.Name(), cfg.Languages, cfg.PSM)

	if opts.InitClipboard {
		if err := clipboard.Init(); err != nil {
			return nil, fmt.Errorf("failed to initialize clipboard: %w", err)
		}
	}

	return &Runtime{Config: cfg, Engine: pipeline.Engine, Pipeline: pipeline}, nil
}

// NewPipeline builds the recognition pipeline described by cfg.
func NewPipeline(cfg *config.Config) (*ocr.Pipeline, error) {
	engine, err := ocr.NewEngine(ocr.Config{
		Engine:         cfg.Engine,
		TesseractPath:  cfg.TesseractPath,
		TessdataPrefix: cfg.TessdataPrefix,
		Languages:      cfg.Languages,
		PSM:            cfg.PSM,
	})
	if err != nil {
		return nil, err
	}
	p := ocr.NewPipeline(engine, preprocess.Options{Scale: cfg.Scale, Threshold: cfg.Threshold})
	if cfg.DebugSaveImages {
		p.DebugDir = os.TempDir()
	}
	return p, nil
}
