//go:build !gosseract

package ocr

import "fmt"

func newLibraryEngine(Config) (Engine, error) {
	return nil, fmt.Errorf("%w: built without libtesseract support (rebuild with -tags gosseract)", ErrEngineUnavailable)
}
