package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// killGrace bounds how long Wait blocks on I/O after the process was killed.
const killGrace = 2 * time.Second

// CLIEngine runs the tesseract executable, feeding a PNG on stdin and reading
// the text from stdout.
type CLIEngine struct {
	Path           string
	TessdataPrefix string
	Languages      string
	PSM            int
}

// NewCLIEngine returns an engine for cfg; empty fields take their defaults.
func NewCLIEngine(cfg Config) *CLIEngine {
	cfg = cfg.withDefaults()
	return &CLIEngine{
		Path:           cfg.TesseractPath,
		TessdataPrefix: cfg.TessdataPrefix,
		Languages:      cfg.Languages,
		PSM:            cfg.PSM,
	}
}

func (e *CLIEngine) Name() string { return "tesseract" }

// Args returns the command-line arguments passed to tesseract for one recognition.
func (e *CLIEngine) Args() []string {
	return []string{"stdin", "stdout", "-l", e.Languages, "--psm", strconv.Itoa(e.PSM)}
}

func (e *CLIEngine) Recognize(ctx context.Context, img image.Image) (string, error) {
	path, err := e.lookPath()
	if err != nil {
		return "", err
	}

	var input bytes.Buffer
	if err := imaging.Encode(&input, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("failed to encode image for OCR: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := e.command(ctx, path, e.Args()...)
	cmd.Stdin = &input
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err = cmd.Run()
	log.Printf("OCR: tesseract finished in %s (stdout=%d bytes, err=%v)", time.Since(started).Round(time.Millisecond), stdout.Len(), err)
	if err != nil {
		return "", e.classify(ctx, err, stderr.String())
	}
	return normalizeText(stdout.String()), nil
}

// Check runs tesseract --version and --list-langs and verifies that every
// configured language has trained data installed.
func (e *CLIEngine) Check(ctx context.Context) error {
	path, err := e.lookPath()
	if err != nil {
		return err
	}

	out, err := e.command(ctx, path, "--version").CombinedOutput()
	if err != nil {
		return e.classify(ctx, err, string(out))
	}
	log.Printf("OCR: using %s (%s)", path, firstLine(strings.TrimSpace(string(out))))

	var stdout, stderr bytes.Buffer
	cmd := e.command(ctx, path, "--list-langs")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return e.classify(ctx, err, stderr.String())
	}
	// Tesseract 3 printed the list on stderr.
	listing := stdout.String() + "\n" + stderr.String()
	if missing := missingLanguages(splitLanguages(e.Languages), parseLanguageList(listing)); len(missing) > 0 {
		return fmt.Errorf("%w: no trained data for %s", ErrEngineUnavailable, strings.Join(missing, ", "))
	}
	return nil
}

func (e *CLIEngine) lookPath() (string, error) {
	path, err := exec.LookPath(e.Path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	return path, nil
}

func (e *CLIEngine) command(ctx context.Context, path string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.WaitDelay = killGrace
	if e.TessdataPrefix != "" {
		cmd.Env = append(os.Environ(), "TESSDATA_PREFIX="+e.TessdataPrefix)
	}
	hideWindow(cmd)
	return cmd
}

func (e *CLIEngine) classify(ctx context.Context, err error, stderr string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &RecognitionError{Engine: e.Name(), Stderr: stderr, Err: ctxErr}
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	return &RecognitionError{Engine: e.Name(), Stderr: stderr, Err: err}
}

// parseLanguageList extracts language codes from tesseract --list-langs output.
func parseLanguageList(out string) []string {
	var langs []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, " ") || strings.HasSuffix(line, ":") {
			continue
		}
		langs = append(langs, line)
	}
	return langs
}
