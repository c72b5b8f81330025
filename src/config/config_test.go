package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

var configKeys = []string{
	"ENABLE_FILE_LOGGING", "HOTKEY", "OCR_DEADLINE_SEC", "OCR_ENGINE", "TESSERACT_CMD",
	"TESSDATA_PREFIX", "OCR_LANGUAGES", "OCR_PSM", "OCR_SCALE", "OCR_THRESHOLD",
	"MIN_SELECTION_SPAN", "OCR_DEBUG_SAVE_IMAGES", "QUICKOCR_PORT", EnvPathVar,
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENABLE_FILE_LOGGING", "true")
	t.Setenv("HOTKEY", "Ctrl+Shift+T")
	t.Setenv("OCR_ENGINE", "library")
	t.Setenv("TESSERACT_CMD", "/opt/tesseract/bin/tesseract")
	t.Setenv("OCR_LANGUAGES", "deu")
	t.Setenv("OCR_THRESHOLD", "128")
	t.Setenv("OCR_DEBUG_SAVE_IMAGES", "TRUE")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if !cfg.EnableFileLogging {
		t.Errorf("Expected EnableFileLogging to be true, got %v", cfg.EnableFileLogging)
	}
	if cfg.Hotkey != "Ctrl+Shift+T" {
		t.Errorf("Expected Hotkey to be 'Ctrl+Shift+T', got '%s'", cfg.Hotkey)
	}
	if cfg.Engine != EngineLibrary {
		t.Errorf("Expected Engine to be '%s', got '%s'", EngineLibrary, cfg.Engine)
	}
	if cfg.TesseractPath != "/opt/tesseract/bin/tesseract" {
		t.Errorf("Expected TesseractPath from TESSERACT_CMD, got '%s'", cfg.TesseractPath)
	}
	if cfg.Languages != "deu" {
		t.Errorf("Expected Languages to be 'deu', got '%s'", cfg.Languages)
	}
	if cfg.Threshold != 128 {
		t.Errorf("Expected Threshold 128, got %d", cfg.Threshold)
	}
	if !cfg.DebugSaveImages {
		t.Error("Expected DebugSaveImages to be true")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Hotkey != DefaultHotkey {
		t.Errorf("Expected default hotkey, got '%s'", cfg.Hotkey)
	}
	if cfg.OCRDeadlineSec != 20 {
		t.Errorf("Expected OCRDeadlineSec 20, got %d", cfg.OCRDeadlineSec)
	}
	if cfg.Engine != EngineCLI {
		t.Errorf("Expected CLI engine by default, got '%s'", cfg.Engine)
	}
	if cfg.Languages != "eng+fra" {
		t.Errorf("Expected 'eng+fra', got '%s'", cfg.Languages)
	}
	if cfg.PSM != 6 || cfg.Scale != 3 || cfg.Threshold != 140 || cfg.MinSelectionSpan != 5 {
		t.Errorf("Unexpected pipeline defaults: psm=%d scale=%d threshold=%d span=%d",
			cfg.PSM, cfg.Scale, cfg.Threshold, cfg.MinSelectionSpan)
	}
	if cfg.EnableFileLogging || cfg.DebugSaveImages {
		t.Error("Expected logging and debug images to be off by default")
	}
	if cfg.ResidentPort != DefaultResidentPort {
		t.Errorf("Expected resident port %d, got %d", DefaultResidentPort, cfg.ResidentPort)
	}
}

func TestInvalidNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("OCR_DEADLINE_SEC", "soon")
	t.Setenv("OCR_SCALE", "-2")
	t.Setenv("OCR_THRESHOLD", "300")
	t.Setenv("MIN_SELECTION_SPAN", "0")
	t.Setenv("QUICKOCR_PORT", "80")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.OCRDeadlineSec != DefaultOCRDeadlineSec {
		t.Errorf("Expected default deadline, got %d", cfg.OCRDeadlineSec)
	}
	if cfg.Scale != DefaultScale {
		t.Errorf("Expected default scale, got %d", cfg.Scale)
	}
	if cfg.Threshold != DefaultThreshold {
		t.Errorf("Expected default threshold, got %d", cfg.Threshold)
	}
	if cfg.MinSelectionSpan != DefaultMinSpan {
		t.Errorf("Expected default min span, got %d", cfg.MinSelectionSpan)
	}
	if cfg.ResidentPort != DefaultResidentPort {
		t.Errorf("Expected privileged port to be rejected, got %d", cfg.ResidentPort)
	}
}

func TestLoadOptionsOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("OCR_ENGINE", "library")
	t.Setenv("TESSERACT_CMD", "/usr/bin/tesseract")

	cfg, err := LoadWithOptions(LoadOptions{EngineOverride: "cli", TesseractPathOverride: "/tmp/tess"})
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Engine != EngineCLI {
		t.Errorf("Expected flag to select cli engine, got '%s'", cfg.Engine)
	}
	if cfg.TesseractPath != "/tmp/tess" {
		t.Errorf("Expected flag path to win, got '%s'", cfg.TesseractPath)
	}
}

func TestEnvFileFromVariable(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), "quickocr.env")
	if err := os.WriteFile(envFile, []byte("OCR_PSM=7\nOCR_LANGUAGES=fra\n"), 0600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv(EnvPathVar, envFile)
	// godotenv only fills variables that are not set at all.
	os.Unsetenv("OCR_PSM")
	os.Unsetenv("OCR_LANGUAGES")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.PSM != 7 {
		t.Errorf("Expected PSM 7 from env file, got %d", cfg.PSM)
	}
	if cfg.Languages != "fra" {
		t.Errorf("Expected languages 'fra' from env file, got '%s'", cfg.Languages)
	}
	os.Unsetenv("OCR_PSM")
	os.Unsetenv("OCR_LANGUAGES")
}

func TestNormalizeEngine(t *testing.T) {
	tests := map[string]string{
		"":          EngineCLI,
		"cli":       EngineCLI,
		" CLI ":     EngineCLI,
		"library":   EngineLibrary,
		"gosseract": EngineLibrary,
		"bogus":     EngineCLI,
	}
	for in, want := range tests {
		if got := NormalizeEngine(in); got != want {
			t.Errorf("NormalizeEngine(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBundledTesseractPath(t *testing.T) {
	dir := t.TempDir()
	if got := BundledTesseractPath(dir); got != "" {
		t.Errorf("Expected no bundled engine, got %q", got)
	}

	name := "tesseract"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	bin := filepath.Join(dir, "Tesseract-OCR", name)
	if err := os.MkdirAll(filepath.Dir(bin), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bin, []byte{}, 0755); err != nil {
		t.Fatal(err)
	}
	if got := BundledTesseractPath(dir); got != bin {
		t.Errorf("Expected %q, got %q", bin, got)
	}
}
