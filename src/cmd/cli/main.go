package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"quick-ocr/src/config"
	"quick-ocr/src/logutil"
	"quick-ocr/src/notification"
	"quick-ocr/src/ocr"
	"quick-ocr/src/runtimeinit"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

var errEmptyInput = errors.New("input file is empty")

type cliOptions struct {
	filePath         string
	jsonOutput       bool
	verbose          bool
	savePreprocessed string
	engine           string
	tesseractPath    string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args))
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"ocr-tool"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ocr-tool",
		Short:         "Run the screen OCR pipeline on an image file",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(cmd, *opts)
		},
	}

	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to an image file (use '-' for stdin)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.Flags().StringVar(&opts.savePreprocessed, "save-preprocessed", "", "Also write the preprocessed image to this path")
	cmd.Flags().StringVar(&opts.engine, "engine", "", "OCR engine: cli or library (overrides OCR_ENGINE)")
	cmd.Flags().StringVar(&opts.tesseractPath, "tesseract-path", "", "Path to the tesseract executable (overrides TESSERACT_CMD)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runWithOptions(cmd *cobra.Command, opts cliOptions) error {
	stderr := cmd.ErrOrStderr()
	// Configure logging BEFORE any other operations.
	if !opts.verbose {
		log.SetOutput(io.Discard)
	} else {
		log.SetOutput(stderr)
		fmt.Fprintf(stderr, "[verbose] Starting OCR tool\n")
	}

	cfg, err := config.LoadWithOptions(config.LoadOptions{
		EngineOverride:        opts.engine,
		TesseractPathOverride: opts.tesseractPath,
	})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.verbose {
		fmt.Fprintf(stderr, "[verbose] Config loaded: engine=%s path=%s languages=%s psm=%d\n", cfg.Engine, cfg.TesseractPath, cfg.Languages, cfg.PSM)
	}

	pipeline, err := runtimeinit.NewPipeline(cfg)
	if err != nil {
		return err
	}

	data, err := readInput(opts.filePath, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if opts.verbose {
		fmt.Fprintf(stderr, "[verbose] Read %d bytes\n", len(data))
	}

	deadline := time.Duration(cfg.OCRDeadlineSec) * time.Second
	ctx, cancel := context.WithTimeout(cmd.Context(), deadline)
	defer cancel()

	res, err := processImage(ctx, pipeline, data, opts)
	if err != nil {
		return err
	}
	if opts.verbose {
		fmt.Fprintf(stderr, "[verbose] OCR completed in %v: %s\n", res.elapsed, logutil.SanitizeForLog(res.text))
	}
	return outputResult(cmd.OutOrStdout(), stderr, res, opts.jsonOutput)
}

func readInput(filePath string, stdin io.Reader) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if filePath == "-" {
		data, err = io.ReadAll(io.LimitReader(stdin, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
		}
	}

	if len(data) == 0 {
		return nil, errEmptyInput
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	return data, nil
}

type ocrRun struct {
	text    string
	source  string
	engine  string
	elapsed time.Duration
}

func processImage(ctx context.Context, pipeline *ocr.Pipeline, data []byte, opts cliOptions) (ocrRun, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return ocrRun{}, fmt.Errorf("input is not a supported image: %w", err)
	}

	if opts.savePreprocessed != "" {
		prepared, err := pipeline.Prepare(img)
		if err != nil {
			return ocrRun{}, err
		}
		if err := imaging.Save(prepared, opts.savePreprocessed); err != nil {
			return ocrRun{}, fmt.Errorf("failed to save preprocessed image: %w", err)
		}
	}

	start := time.Now()
	text, err := pipeline.ExtractText(ctx, img)
	if err != nil {
		return ocrRun{}, fmt.Errorf("OCR failed: %w", err)
	}
	return ocrRun{text: text, source: opts.filePath, engine: pipeline.Engine.Name(), elapsed: time.Since(start)}, nil
}

type OCRResult struct {
	Text      string  `json:"text"`
	Empty     bool    `json:"empty"`
	Source    string  `json:"source"`
	Engine    string  `json:"engine"`
	Timestamp string  `json:"timestamp"`
	Duration  float64 `json:"duration_seconds"`
	CharCount int     `json:"character_count"`
}

func outputResult(stdout, stderr io.Writer, res ocrRun, jsonOutput bool) error {
	empty := ocr.IsEmptyResult(res.text)
	if jsonOutput {
		result := OCRResult{
			Text:      res.text,
			Empty:     empty,
			Source:    res.source,
			Engine:    res.engine,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Duration:  res.elapsed.Seconds(),
			CharCount: len([]rune(res.text)),
		}

		encoder := json.NewEncoder(stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			return fmt.Errorf("failed to encode JSON output: %w", err)
		}
		return nil
	}

	if empty {
		fmt.Fprintln(stderr, notification.NoTextBody)
		return nil
	}
	fmt.Fprintln(stdout, res.text)
	return nil
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"file", "json", "verbose", "save-preprocessed", "engine", "tesseract-path"} {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}

	return normalized
}
