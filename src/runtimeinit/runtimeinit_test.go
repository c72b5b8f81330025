package runtimeinit

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"quick-ocr/src/config"
	"quick-ocr/src/ocr"
)

func fakeTesseract(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tesseract scripts need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "tesseract")
	script := `#!/bin/sh
case "$1" in
--version) echo "tesseract 5.3.0" ;;
--list-langs) printf 'List of available languages (2):\neng\nfra\n' ;;
*) cat > /dev/null; echo text ;;
esac
`
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func isolate(t *testing.T) {
	for _, key := range []string{"OCR_ENGINE", "TESSERACT_CMD", "TESSDATA_PREFIX", "OCR_LANGUAGES", "OCR_PSM", "OCR_SCALE", "OCR_THRESHOLD", "OCR_DEADLINE_SEC", "OCR_DEBUG_SAVE_IMAGES", "ENABLE_FILE_LOGGING"} {
		t.Setenv(key, "")
	}
	t.Setenv(config.EnvPathVar, filepath.Join(t.TempDir(), "missing.env"))
}

func TestBootstrap(t *testing.T) {
	isolate(t)
	path := fakeTesseract(t)
	t.Setenv("OCR_DEADLINE_SEC", "7")

	var logging *bool
	rt, err := Bootstrap(Options{
		LoadOptions:  config.LoadOptions{TesseractPathOverride: path},
		SetupLogging: func(enabled bool) { logging = &enabled },
	})
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if logging == nil || *logging {
		t.Errorf("Expected logging set up with file logging disabled")
	}
	if rt.Engine.Name() != "tesseract" {
		t.Errorf("Expected CLI engine, got %s", rt.Engine.Name())
	}
	if rt.Deadline() != 7*time.Second {
		t.Errorf("Expected 7s deadline, got %s", rt.Deadline())
	}
}

func TestBootstrapEngineUnavailable(t *testing.T) {
	isolate(t)
	_, err := Bootstrap(Options{
		LoadOptions: config.LoadOptions{TesseractPathOverride: filepath.Join(t.TempDir(), "no-tesseract")},
	})
	if !errors.Is(err, ocr.ErrEngineUnavailable) {
		t.Errorf("Expected ErrEngineUnavailable, got %v", err)
	}
}

func TestNewPipeline(t *testing.T) {
	cfg := &config.Config{
		Engine:          config.EngineCLI,
		TesseractPath:   "/opt/tesseract",
		Languages:       "eng",
		PSM:             7,
		Scale:           2,
		Threshold:       128,
		DebugSaveImages: true,
	}
	p, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	if p.Preprocess.Scale != 2 || p.Preprocess.Threshold != 128 {
		t.Errorf("Unexpected preprocess options %+v", p.Preprocess)
	}
	if p.DebugDir == "" {
		t.Error("Expected debug directory when debug images are enabled")
	}
	cli, ok := p.Engine.(*ocr.CLIEngine)
	if !ok {
		t.Fatalf("Expected *ocr.CLIEngine, got %T", p.Engine)
	}
	if cli.Path != "/opt/tesseract" || cli.Languages != "eng" || cli.PSM != 7 {
		t.Errorf("Unexpected engine config %+v", cli)
	}
}
