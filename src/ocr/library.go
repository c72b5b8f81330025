//go:build gosseract

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/otiai10/gosseract/v2"
	"golang.org/x/image/tiff"
)

// LibraryEngine calls libtesseract in-process. A recognition that outlives its
// deadline is abandoned; the cgo call keeps running until Tesseract returns.
type LibraryEngine struct {
	tessdataPrefix string
	languages      []string
	psm            gosseract.PageSegMode
}

func newLibraryEngine(cfg Config) (Engine, error) {
	langs := splitLanguages(cfg.Languages)
	if len(langs) == 0 {
		return nil, fmt.Errorf("no OCR languages configured")
	}
	return &LibraryEngine{
		tessdataPrefix: cfg.TessdataPrefix,
		languages:      langs,
		psm:            gosseract.PageSegMode(cfg.PSM),
	}, nil
}

func (e *LibraryEngine) Name() string { return "libtesseract" }

func (e *LibraryEngine) Recognize(ctx context.Context, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, &tiff.Options{}); err != nil {
		return "", fmt.Errorf("failed to encode image for OCR: %w", err)
	}

	resCh := make(chan struct {
		text string
		err  error
	}, 1)

	started := time.Now()
	go func() {
		text, err := e.recognize(buf.Bytes())
		resCh <- struct {
			text string
			err  error
		}{text, err}
	}()

	select {
	case r := <-resCh:
		log.Printf("OCR: libtesseract finished in %s (err=%v)", time.Since(started).Round(time.Millisecond), r.err)
		if r.err != nil {
			return "", &RecognitionError{Engine: e.Name(), Err: r.err}
		}
		return normalizeText(r.text), nil
	case <-ctx.Done():
		return "", &RecognitionError{Engine: e.Name(), Err: ctx.Err()}
	}
}

func (e *LibraryEngine) recognize(data []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if e.tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(e.tessdataPrefix); err != nil {
			return "", fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	if err := client.SetLanguage(e.languages...); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(e.psm); err != nil {
		return "", fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	return client.Text()
}

func (e *LibraryEngine) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	have, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	if missing := missingLanguages(e.languages, have); len(missing) > 0 {
		return fmt.Errorf("%w: no trained data for %v", ErrEngineUnavailable, missing)
	}
	log.Printf("OCR: using libtesseract %s", gosseract.Version())
	return nil
}
