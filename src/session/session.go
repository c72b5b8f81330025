// Package session runs one capture from selection to delivered text.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"time"

	"quick-ocr/src/clipboard"
	"quick-ocr/src/logutil"
	"quick-ocr/src/notification"
	"quick-ocr/src/ocr"
	"quick-ocr/src/region"
)

const DefaultDeadline = 20 * time.Second

// Outcome classifies a finished session.
type Outcome int

const (
	OutcomeCopied Outcome = iota
	OutcomeEmpty
	OutcomeCancelled
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCopied:
		return "copied"
	case OutcomeEmpty:
		return "empty"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type RegionSelectorFunc func(ctx context.Context) (region.CaptureBox, bool, error)

type CaptureFunc func(box region.CaptureBox) (image.Image, error)

type ExtractFunc func(ctx context.Context, img image.Image) (string, error)

// ResultTarget presents the result of a session. Cancellation never reaches a target.
type ResultTarget interface {
	OnSuccess(text string) error
	OnEmpty() error
	OnFailure(err error) error
}

type Options struct {
	Deadline     time.Duration
	SelectRegion RegionSelectorFunc
	Capture      CaptureFunc
	Extract      ExtractFunc
	Target       ResultTarget
}

type Result struct {
	Outcome Outcome
	Box     region.CaptureBox
	Text    string
}

// Execute selects a region, captures it, recognises its text and delivers the
// result to opts.Target. A cancelled selection is not an error: it yields
// OutcomeCancelled, nothing is captured and the engine is not invoked.
func Execute(ctx context.Context, opts Options) (Result, error) {
	if err := validate(opts); err != nil {
		return Result{}, err
	}

	box, cancelled, err := opts.SelectRegion(ctx)
	if err != nil {
		err = fmt.Errorf("region selection failed: %w", err)
		_ = opts.Target.OnFailure(err)
		return Result{Outcome: OutcomeFailed}, err
	}
	if cancelled {
		log.Printf("Session: selection cancelled")
		return Result{Outcome: OutcomeCancelled}, nil
	}

	img, err := opts.Capture(box)
	if err != nil {
		err = fmt.Errorf("screen capture failed: %w", err)
		_ = opts.Target.OnFailure(err)
		return Result{Outcome: OutcomeFailed, Box: box}, err
	}

	return Recognize(ctx, opts, box, img)
}

// Recognize runs the recognition half of a session on an already captured
// image and delivers the result. The resident event loop calls it from a
// worker after selecting and capturing on its own goroutine.
func Recognize(ctx context.Context, opts Options, box region.CaptureBox, img image.Image) (Result, error) {
	if opts.Extract == nil || opts.Target == nil {
		return Result{}, errors.New("Extract and Target are required")
	}

	deadline := opts.Deadline
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	jobCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	started := time.Now()
	text, err := opts.Extract(jobCtx, img)
	log.Printf("Session: recognition of %s took %s", box, time.Since(started).Round(time.Millisecond))
	return Deliver(opts.Target, box, text, err)
}

// Deliver routes a recognition result to target and classifies it. The
// returned error is the recognition error or, for recognised text, the
// error from handing it to target.
func Deliver(target ResultTarget, box region.CaptureBox, text string, err error) (Result, error) {
	res := Result{Box: box}
	switch {
	case err != nil:
		log.Printf("Session: recognition failed: %v", err)
		res.Outcome = OutcomeFailed
		_ = target.OnFailure(err)
	case ocr.IsEmptyResult(text):
		log.Printf("Session: no text found in %s", box)
		res.Outcome = OutcomeEmpty
		_ = target.OnEmpty()
	default:
		res.Text = text
		res.Outcome = OutcomeCopied
		if err = target.OnSuccess(text); err != nil {
			log.Printf("Session: delivering text failed: %v", err)
			res.Outcome = OutcomeFailed
		}
	}
	return res, err
}

func validate(opts Options) error {
	switch {
	case opts.SelectRegion == nil:
		return errors.New("SelectRegion is required")
	case opts.Capture == nil:
		return errors.New("Capture is required")
	case opts.Extract == nil:
		return errors.New("Extract is required")
	case opts.Target == nil:
		return errors.New("Target is required")
	}
	return nil
}

// Swapped out in tests; the real clipboard and popups need a desktop.
var (
	writeClipboard       = clipboard.Write
	showResult           = notification.ShowResult
	showClipboardFailure = notification.ShowClipboardFailure
)

// ClipboardTarget copies text to the clipboard and shows the result popup.
type ClipboardTarget struct{}

func (ClipboardTarget) OnSuccess(text string) error {
	log.Printf("Session: copying %s", logutil.SanitizeForLog(text))
	if err := writeClipboard(text); err != nil {
		// The text stays readable in the warning popup.
		showClipboardFailure(text)
		return fmt.Errorf("clipboard error: %w", err)
	}
	showResult(text)
	return nil
}

func (ClipboardTarget) OnEmpty() error {
	notification.ShowNoText()
	return nil
}

func (ClipboardTarget) OnFailure(err error) error {
	notification.ShowError(Describe(err))
	return nil
}

// StdoutTarget prints recognised text, used by --run-once --stdout.
type StdoutTarget struct {
	Writer    io.Writer
	ErrWriter io.Writer
}

func (t StdoutTarget) OnSuccess(text string) error {
	_, err := fmt.Fprintln(t.out(), text)
	return err
}

func (t StdoutTarget) OnEmpty() error {
	_, err := fmt.Fprintln(t.errOut(), notification.NoTextBody)
	return err
}

func (t StdoutTarget) OnFailure(err error) error {
	_, werr := fmt.Fprintln(t.errOut(), Describe(err))
	return werr
}

func (t StdoutTarget) out() io.Writer {
	if t.Writer == nil {
		return os.Stdout
	}
	return t.Writer
}

func (t StdoutTarget) errOut() io.Writer {
	if t.ErrWriter == nil {
		return os.Stderr
	}
	return t.ErrWriter
}

// Describe turns pipeline errors into a message for the user.
func Describe(err error) string {
	var recErr *ocr.RecognitionError
	switch {
	case err == nil:
		return "Unknown error"
	case errors.Is(err, ocr.ErrEngineUnavailable):
		return fmt.Sprintf("Tesseract OCR is not available.\n\n%v\n\nInstall Tesseract or set TESSERACT_CMD.", err)
	case errors.Is(err, context.DeadlineExceeded):
		return "Text recognition took too long and was stopped."
	case errors.As(err, &recErr):
		return fmt.Sprintf("Text recognition failed.\n\n%v", err)
	default:
		return err.Error()
	}
}
