package ocr

import (
	"context"
	"fmt"
	"image"
	"log"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"

	"quick-ocr/src/logutil"
	"quick-ocr/src/preprocess"
)

// Pipeline preprocesses a captured region and hands it to an Engine.
type Pipeline struct {
	Engine     Engine
	Preprocess preprocess.Options
	// DebugDir, when set, receives a PNG of every preprocessed image.
	DebugDir string
}

// NewPipeline wraps engine with the given preprocessing options.
func NewPipeline(engine Engine, opts preprocess.Options) *Pipeline {
	return &Pipeline{Engine: engine, Preprocess: opts}
}

// ExtractText runs preprocessing and a single recognition pass. A
// whitespace-only result is returned as-is; check it with IsEmptyResult.
func (p *Pipeline) ExtractText(ctx context.Context, img image.Image) (string, error) {
	if p.Engine == nil {
		return "", fmt.Errorf("%w: no engine configured", ErrEngineUnavailable)
	}

	prepared, err := p.Prepare(img)
	if err != nil {
		return "", err
	}

	text, err := p.Engine.Recognize(ctx, prepared)
	if err != nil {
		return "", err
	}
	log.Printf("OCR: %s returned %d chars: %s", p.Engine.Name(), len(text), logutil.SanitizeForLog(text))
	return text, nil
}

// Prepare runs only the preprocessing half of the pipeline.
func (p *Pipeline) Prepare(img image.Image) (*image.Gray, error) {
	prepared, err := preprocess.Preprocess(img, p.Preprocess)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	if p.DebugDir != "" {
		p.saveDebugImage(prepared)
	}
	return prepared, nil
}

func (p *Pipeline) saveDebugImage(img *image.Gray) {
	b := img.Bounds()
	name := fmt.Sprintf("quickocr_preprocessed_%s_%dx%d.png", time.Now().Format("20060102_150405.000"), b.Dx(), b.Dy())
	path := filepath.Join(p.DebugDir, name)
	if err := imaging.Save(img, path); err != nil {
		log.Printf("Warning: Could not save debug image: %v", err)
		return
	}
	log.Printf("DEBUG: Saved preprocessed image to %s", path)
}
