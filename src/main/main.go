package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"quick-ocr/src/config"
	"quick-ocr/src/eventloop"
	"quick-ocr/src/logutil"
	"quick-ocr/src/notification"
	"quick-ocr/src/overlay"
	"quick-ocr/src/region"
	"quick-ocr/src/runtimeinit"
	"quick-ocr/src/screenshot"
	"quick-ocr/src/session"
	"quick-ocr/src/singleinstance"
	"quick-ocr/src/tray"
)

// popupWait bounds how long run-once keeps the process alive for the result popup.
const popupWait = time.Minute

type mainOptions struct {
	runOnce       bool
	stdout        bool
	engine        string
	tesseractPath string
}

func main() {
	// Ensure DPI awareness before creating any windows or querying metrics
	enableDPIAwareness()

	if err := runWithArgs(normalizeLegacyArgs(os.Args)); err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// reportedError is a failure the result target already showed to the user.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

func reportError(w io.Writer, err error) {
	var reported reportedError
	if errors.As(err, &reported) {
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"quick-ocr"}
	}
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "quick-ocr",
		Short:         "Select a screen region and copy its text",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.stdout && !opts.runOnce {
				return fmt.Errorf("--stdout requires --run-once")
			}
			if opts.runOnce {
				return runOnce(cmd.Context(), *opts)
			}
			return runResident(*opts)
		},
	}

	cmd.Flags().BoolVar(&opts.runOnce, "run-once", false, "Capture one region, copy its text and exit")
	cmd.Flags().BoolVar(&opts.stdout, "stdout", false, "With --run-once, print the text instead of copying it")
	cmd.Flags().StringVar(&opts.engine, "engine", "", "OCR engine: cli or library (overrides OCR_ENGINE)")
	cmd.Flags().StringVar(&opts.tesseractPath, "tesseract-path", "", "Path to the tesseract executable (overrides TESSERACT_CMD)")
	return cmd
}

// normalizeLegacyArgs maps single-dash long flags to their double-dash form
// and expands the old --run-once-std spelling.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	normalized := make([]string, 0, len(args)+1)
	normalized = append(normalized, args[0])
	for _, arg := range args[1:] {
		switch {
		case arg == "-run-once-std" || arg == "--run-once-std":
			normalized = append(normalized, "--run-once", "--stdout")
			continue
		case strings.HasPrefix(arg, "--"):
		case hasLongFlag(arg, "-run-once"), hasLongFlag(arg, "-stdout"),
			hasLongFlag(arg, "-engine"), hasLongFlag(arg, "-tesseract-path"):
			arg = "-" + arg
		}
		normalized = append(normalized, arg)
	}
	return normalized
}

func hasLongFlag(arg, flag string) bool {
	return arg == flag || strings.HasPrefix(arg, flag+"=")
}

func loadOptions(opts mainOptions) config.LoadOptions {
	return config.LoadOptions{EngineOverride: opts.engine, TesseractPathOverride: opts.tesseractPath}
}

func captureBox(box region.CaptureBox) (image.Image, error) {
	img, err := screenshot.CaptureBox(box)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func runResident(opts mainOptions) error {
	// Keep the main goroutine on one OS thread; the overlay and its message
	// loop are created from the event loop running here.
	runtime.LockOSThread()

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:             loadOptions(opts),
		SetupLogging:            logutil.Setup,
		ShowBlockingEngineError: true,
		InitClipboard:           true,
	})
	if err != nil {
		return err
	}
	cfg := rt.Config
	logMonitorConfiguration()
	log.Printf("Quick OCR initialized: engine=%s hotkey=%s deadline=%s", rt.Engine.Name(), cfg.Hotkey, rt.Deadline())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := singleinstance.Listen(ctx, cfg.ResidentPort)
	switch {
	case errors.Is(err, singleinstance.ErrAlreadyRunning):
		notification.ShowBlockingError(tray.Title, fmt.Sprintf("%s is already running.\n\nUse %s or the tray icon to capture.", tray.Title, cfg.Hotkey))
		return err
	case err != nil:
		log.Printf("Run-once delegation disabled: %v", err)
		srv = nil
	default:
		defer srv.Close()
	}

	var trayIcon *tray.Tray
	loop, err := eventloop.New(eventloop.Options{
		Selector:   overlay.NewSelector(cfg.MinSelectionSpan),
		Capture:    captureBox,
		Extract:    rt.Pipeline.ExtractText,
		Target:     session.ClipboardTarget{},
		Deadline:   rt.Deadline(),
		EngineName: rt.Engine.Name(),
		Server:     srv,
		OnBusyChange: func(busy bool) {
			trayIcon.UpdateTooltip(busy)
		},
	})
	if err != nil {
		return err
	}

	trayIcon = tray.New(tray.Config{
		Hotkey:    cfg.Hotkey,
		OnCapture: loop.Trigger,
		OnExit:    cancel,
	})
	go trayIcon.Run()
	defer trayIcon.Quit()

	if err := loop.StartHotkey(ctx, cfg.Hotkey); err != nil {
		log.Printf("Hotkey unavailable: %v", err)
		notification.ShowError(fmt.Sprintf("The hotkey %s could not be registered: %v\n\nUse the tray menu to capture.", cfg.Hotkey, err))
	}

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("event loop stopped: %w", err)
	}
	log.Printf("Quick OCR exiting")
	return nil
}

func runOnce(ctx context.Context, opts mainOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadWithOptions(loadOptions(opts))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logutil.Setup(cfg.EnableFileLogging)

	delegated, reply, err := singleinstance.Delegate(ctx, cfg.ResidentPort, singleinstance.Request{OutputToStdout: opts.stdout})
	switch {
	case err != nil:
		log.Printf("Delegation error: %v; falling back to standalone", err)
	case delegated:
		log.Printf("Delegated to resident: %s", reply)
		return handleReply(reply, opts.stdout, os.Stdout, os.Stderr)
	default:
		log.Printf("No resident detected, running standalone")
	}
	return runStandalone(ctx, opts)
}

// handleReply prints what a resident answered to a delegated run-once.
func handleReply(reply singleinstance.Reply, stdout bool, out, errOut io.Writer) error {
	switch reply.Status {
	case singleinstance.StatusCopied:
		if stdout {
			_, err := fmt.Fprintln(out, reply.Payload)
			return err
		}
		return nil
	case singleinstance.StatusEmpty:
		if stdout {
			_, err := fmt.Fprintln(errOut, notification.NoTextBody)
			return err
		}
		return nil
	case singleinstance.StatusCancelled:
		return nil
	case singleinstance.StatusBusy:
		return fmt.Errorf("%s is busy with another capture, please retry", tray.Title)
	default:
		return errors.New(reply.Payload)
	}
}

func runStandalone(ctx context.Context, opts mainOptions) error {
	runtime.LockOSThread()

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:   loadOptions(opts),
		InitClipboard: !opts.stdout,
	})
	if err != nil {
		return err
	}

	var target session.ResultTarget = session.ClipboardTarget{}
	if opts.stdout {
		target = session.StdoutTarget{}
	}

	log.Printf("Running OCR once with deadline %s", rt.Deadline())
	res, err := session.Execute(ctx, session.Options{
		Deadline:     rt.Deadline(),
		SelectRegion: overlay.NewSelector(rt.Config.MinSelectionSpan).Select,
		Capture:      captureBox,
		Extract:      rt.Pipeline.ExtractText,
		Target:       target,
	})
	log.Printf("Run-once finished: outcome=%s", res.Outcome)

	if !opts.stdout && !notification.Wait(popupWait) {
		log.Printf("Result popup still open, exiting anyway")
	}
	return standaloneError(res, err)
}

// standaloneError marks failures the target has already reported. Text is
// only set when recognition succeeded and handing it over failed, which the
// stdout target does not report.
func standaloneError(res session.Result, err error) error {
	if err != nil && res.Outcome == session.OutcomeFailed && res.Text == "" {
		return reportedError{err: err}
	}
	return err
}
