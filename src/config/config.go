package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvPathVar = "QUICKOCR_ENV"

	EngineCLI     = "cli"
	EngineLibrary = "library"

	DefaultHotkey         = "Ctrl+Alt+Q"
	DefaultOCRDeadlineSec = 20
	DefaultTesseractCmd   = "tesseract"
	DefaultLanguages      = "eng+fra"
	DefaultPSM            = 6
	DefaultScale          = 3
	DefaultThreshold      = 140
	DefaultMinSpan        = 5
	DefaultResidentPort   = 49500

	bundledTesseractDir = "Tesseract-OCR"
)

type LoadOptions struct {
	EngineOverride        string
	TesseractPathOverride string
}

type Config struct {
	EnableFileLogging bool
	Hotkey            string
	OCRDeadlineSec    int
	Engine            string
	TesseractPath     string
	TessdataPrefix    string
	Languages         string
	PSM               int
	Scale             int
	Threshold         uint8
	MinSelectionSpan  int
	DebugSaveImages   bool
	// ResidentPort is the loopback port the resident listens on for run-once delegation.
	ResidentPort      int
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Load configuration from sources in priority order:
	// 1) .env in the application (executable) directory
	// 2) If not found, use QUICKOCR_ENV env var as a path to a config file
	// Variables already present in the process environment are never overwritten.
	if envPath := resolveEnvPath(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	threshold := getEnvInt("OCR_THRESHOLD", DefaultThreshold)
	if threshold < 0 || threshold > 255 {
		threshold = DefaultThreshold
	}

	cfg := &Config{
		EnableFileLogging: getEnvBool("ENABLE_FILE_LOGGING"),
		Hotkey:            getEnvWithDefault("HOTKEY", DefaultHotkey),
		OCRDeadlineSec:    getEnvInt("OCR_DEADLINE_SEC", DefaultOCRDeadlineSec),
		Engine:            resolveEngine(opts),
		TesseractPath:     resolveTesseractPath(opts),
		TessdataPrefix:    strings.TrimSpace(os.Getenv("TESSDATA_PREFIX")),
		Languages:         getEnvWithDefault("OCR_LANGUAGES", DefaultLanguages),
		PSM:               getEnvInt("OCR_PSM", DefaultPSM),
		Scale:             getEnvInt("OCR_SCALE", DefaultScale),
		Threshold:         uint8(threshold),
		MinSelectionSpan:  getEnvInt("MIN_SELECTION_SPAN", DefaultMinSpan),
		DebugSaveImages:   getEnvBool("OCR_DEBUG_SAVE_IMAGES"),
		ResidentPort:      getEnvInt("QUICKOCR_PORT", DefaultResidentPort),
	}
	if cfg.ResidentPort < 1024 || cfg.ResidentPort > 65535 {
		cfg.ResidentPort = DefaultResidentPort
	}

	return cfg, nil
}

func resolveEnvPath() string {
	if execDir := executableDir(); execDir != "" {
		exeEnv := filepath.Join(execDir, ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(EnvPathVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func executableDir() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(execPath)
}

func resolveEngine(opts LoadOptions) string {
	value := os.Getenv("OCR_ENGINE")
	if override := strings.TrimSpace(opts.EngineOverride); override != "" {
		value = override
	}
	return NormalizeEngine(value)
}

// NormalizeEngine maps user input to EngineCLI or EngineLibrary. Unknown values select the CLI engine.
func NormalizeEngine(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case EngineLibrary, "lib", "gosseract":
		return EngineLibrary
	default:
		return EngineCLI
	}
}

// resolveTesseractPath prefers, in order: the CLI override, TESSERACT_CMD, a
// Tesseract-OCR directory shipped next to the executable, and finally the
// bare command name looked up on PATH.
func resolveTesseractPath(opts LoadOptions) string {
	if override := strings.TrimSpace(opts.TesseractPathOverride); override != "" {
		return override
	}
	if cmd := strings.TrimSpace(os.Getenv("TESSERACT_CMD")); cmd != "" {
		return cmd
	}
	if bundled := BundledTesseractPath(executableDir()); bundled != "" {
		return bundled
	}
	return DefaultTesseractCmd
}

// BundledTesseractPath returns dir/Tesseract-OCR/tesseract(.exe) when that file exists.
func BundledTesseractPath(dir string) string {
	if dir == "" {
		return ""
	}
	name := "tesseract"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	candidate := filepath.Join(dir, bundledTesseractDir, name)
	if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
		return candidate
	}
	return ""
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns a positive integer from key, or defaultValue when unset or invalid.
func getEnvInt(key string, defaultValue int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string) bool {
	return strings.ToLower(strings.TrimSpace(os.Getenv(key))) == "true"
}
