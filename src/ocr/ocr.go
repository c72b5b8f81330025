// Package ocr turns preprocessed images into text with Tesseract.
//
// Two engines implement Engine: the tesseract executable (default) and
// libtesseract through gosseract, which needs cgo and the gosseract build tag.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
)

const (
	EngineCLI     = "cli"
	EngineLibrary = "library"

	DefaultLanguages = "eng+fra"
	// DefaultPSM is Tesseract page segmentation mode 6: a single uniform block of text.
	DefaultPSM = 6
)

// ErrEngineUnavailable is returned when the OCR engine cannot be located or started.
var ErrEngineUnavailable = errors.New("OCR engine unavailable")

// RecognitionError reports an engine that started but failed: a non-zero
// exit, an engine-reported error, or an expired deadline.
type RecognitionError struct {
	Engine string
	Stderr string
	Err    error
}

func (e *RecognitionError) Error() string {
	msg := fmt.Sprintf("%s recognition failed: %v", e.Engine, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + firstLine(s)
	}
	return msg
}

func (e *RecognitionError) Unwrap() error { return e.Err }

// Engine recognises text in an already preprocessed image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image) (string, error)
	// Check verifies that the engine can run with the configured languages.
	Check(ctx context.Context) error
}

// Config selects and configures an engine.
type Config struct {
	Engine         string
	TesseractPath  string
	TessdataPrefix string
	Languages      string
	PSM            int
}

func (c Config) withDefaults() Config {
	if c.Engine == "" {
		c.Engine = EngineCLI
	}
	if c.TesseractPath == "" {
		c.TesseractPath = "tesseract"
	}
	if c.Languages == "" {
		c.Languages = DefaultLanguages
	}
	if c.PSM <= 0 {
		c.PSM = DefaultPSM
	}
	return c
}

// NewEngine builds the engine named by cfg.Engine.
func NewEngine(cfg Config) (Engine, error) {
	cfg = cfg.withDefaults()
	switch cfg.Engine {
	case EngineCLI:
		return NewCLIEngine(cfg), nil
	case EngineLibrary:
		return newLibraryEngine(cfg)
	default:
		return nil, fmt.Errorf("unknown OCR engine %q", cfg.Engine)
	}
}

// IsEmptyResult reports whether recognised text carries no characters besides whitespace.
func IsEmptyResult(text string) bool {
	return strings.TrimSpace(text) == ""
}

// normalizeText converts engine output to the text handed to the user:
// CRLF becomes LF and the trailing page separator and blank lines go away.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(s)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

func splitLanguages(langs string) []string {
	var out []string
	for _, l := range strings.Split(langs, "+") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func missingLanguages(want, have []string) []string {
	available := make(map[string]bool, len(have))
	for _, l := range have {
		available[strings.TrimSpace(l)] = true
	}
	var missing []string
	for _, l := range want {
		if !available[l] {
			missing = append(missing, l)
		}
	}
	return missing
}
