package eventloop

import (
	"context"
	"errors"
	"image"
	"log"
	"time"

	"quick-ocr/src/hotkey"
	"quick-ocr/src/ocr"
	"quick-ocr/src/overlay"
	"quick-ocr/src/region"
	"quick-ocr/src/session"
	"quick-ocr/src/singleinstance"
	"quick-ocr/src/worker"
)

// ErrBusy is reported when a capture is triggered while another one is running.
var ErrBusy = errors.New("busy, please retry")

// Options wires the loop to its collaborators. Selector, Capture, Extract and
// Target are required.
type Options struct {
	Selector overlay.Selector
	Capture  session.CaptureFunc
	Extract  worker.ExtractFunc
	Target   session.ResultTarget
	Deadline time.Duration
	// EngineName labels recognition errors raised when the deadline expires.
	EngineName string
	// Server, when set, feeds delegated run-once requests into the loop.
	Server *singleinstance.Server
	// OnBusyChange is called on the loop goroutine whenever a capture starts or ends.
	OnBusyChange func(busy bool)
	// OnResult observes every finished capture, after the target has been notified.
	OnResult func(res session.Result, err error)
}

// Loop is the single-threaded coordinator for hotkey, tray and run-once captures.
// Selection and capture run on the loop goroutine; recognition runs on the pool.
type Loop struct {
	opts     Options
	pool     *worker.Pool
	busy     bool
	results  chan result
	triggers chan struct{}
	deadline time.Duration
}

// request is one capture and where its result goes.
type request struct {
	target session.ResultTarget
	// reply, if set, receives the final result. Delegated requests answer their client here.
	reply func(res session.Result, err error)
}

type result struct {
	req    request
	box    region.CaptureBox
	text   string
	err    error
	cancel context.CancelFunc
}

func New(opts Options) (*Loop, error) {
	switch {
	case opts.Selector == nil:
		return nil, errors.New("eventloop: Selector is required")
	case opts.Capture == nil:
		return nil, errors.New("eventloop: Capture is required")
	case opts.Extract == nil:
		return nil, errors.New("eventloop: Extract is required")
	case opts.Target == nil:
		return nil, errors.New("eventloop: Target is required")
	}
	deadline := opts.Deadline
	if deadline <= 0 {
		deadline = session.DefaultDeadline
	}
	return &Loop{
		opts:     opts,
		pool:     worker.New(1, opts.Extract),
		results:  make(chan result, 1),
		triggers: make(chan struct{}, 1),
		deadline: deadline,
	}, nil
}

// StartHotkey registers the global hotkey; each press triggers a capture.
func (l *Loop) StartHotkey(ctx context.Context, combo string) error {
	return hotkey.Listen(ctx, combo, l.Trigger)
}

// Trigger requests a capture. It never blocks; triggers arriving while one
// is already queued are coalesced.
func (l *Loop) Trigger() {
	select {
	case l.triggers <- struct{}{}:
	default:
		log.Printf("Trigger ignored: previous trigger not yet handled")
	}
}

// Run processes triggers, delegated requests and results until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer l.pool.Close()

	var delegated <-chan *singleinstance.Conn
	if l.opts.Server != nil {
		delegated = l.opts.Server.Requests()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.triggers:
			l.handle(ctx, request{target: l.opts.Target})
		case conn, ok := <-delegated:
			if !ok {
				delegated = nil
				continue
			}
			l.handle(ctx, l.delegatedRequest(conn))
		case r := <-l.results:
			l.handleResult(r)
		}
	}
}

func (l *Loop) Deadline() time.Duration { return l.deadline }

func (l *Loop) handle(ctx context.Context, req request) {
	if l.busy {
		log.Printf("Capture refused: OCR still running")
		l.fail(req, session.Result{Outcome: session.OutcomeFailed}, ErrBusy)
		return
	}

	box, cancelled, err := l.opts.Selector.Select(ctx)
	if err != nil {
		log.Printf("Region selection failed: %v", err)
		l.fail(req, session.Result{Outcome: session.OutcomeFailed}, err)
		return
	}
	if cancelled {
		log.Printf("Region selection cancelled")
		l.finish(req, session.Result{Outcome: session.OutcomeCancelled}, nil)
		return
	}

	img, err := l.opts.Capture(box)
	if err != nil {
		log.Printf("Screen capture of %s failed: %v", box, err)
		l.fail(req, session.Result{Outcome: session.OutcomeFailed, Box: box}, err)
		return
	}

	l.submit(ctx, req, box, img)
}

func (l *Loop) submit(ctx context.Context, req request, box region.CaptureBox, img image.Image) {
	jobCtx, cancel := context.WithTimeout(ctx, l.deadline)
	l.setBusy(true)
	ok := l.pool.Submit(jobCtx, img, func(text string, err error) {
		err = l.timeoutError(jobCtx, err)
		select {
		case l.results <- result{req: req, box: box, text: text, err: err, cancel: cancel}:
		case <-ctx.Done():
			cancel()
		}
	})
	if !ok {
		cancel()
		l.setBusy(false)
		l.fail(req, session.Result{Outcome: session.OutcomeFailed, Box: box}, ErrBusy)
	}
}

// timeoutError reports an abandoned recognition as a *ocr.RecognitionError,
// the same way an engine that honours its deadline does.
func (l *Loop) timeoutError(jobCtx context.Context, err error) error {
	var recErr *ocr.RecognitionError
	if err == nil || jobCtx.Err() == nil || !errors.Is(err, jobCtx.Err()) || errors.As(err, &recErr) {
		return err
	}
	name := l.opts.EngineName
	if name == "" {
		name = "ocr"
	}
	return &ocr.RecognitionError{Engine: name, Err: err}
}

func (l *Loop) handleResult(r result) {
	r.cancel()
	l.setBusy(false)
	res, err := session.Deliver(r.req.target, r.box, r.text, r.err)
	l.finish(r.req, res, err)
}

// fail reports a failure that never reached the recognizer.
func (l *Loop) fail(req request, res session.Result, err error) {
	_ = req.target.OnFailure(err)
	l.finish(req, res, err)
}

func (l *Loop) finish(req request, res session.Result, err error) {
	log.Printf("Capture finished: outcome=%s box=%s err=%v", res.Outcome, res.Box, err)
	if req.reply != nil {
		req.reply(res, err)
	}
	if l.opts.OnResult != nil {
		l.opts.OnResult(res, err)
	}
}

func (l *Loop) setBusy(b bool) {
	l.busy = b
	if l.opts.OnBusyChange != nil {
		l.opts.OnBusyChange(b)
	}
}
