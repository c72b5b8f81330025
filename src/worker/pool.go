package worker

import (
	"context"
	"image"
	"log"
	"runtime"
	"sync"
)

// ExtractFunc recognises the text in a captured image.
type ExtractFunc func(ctx context.Context, img image.Image) (string, error)

// ResultCallback is invoked on OCR completion (from a worker goroutine).
// The event loop should pass a closure that posts back into the event loop safely.
type ResultCallback func(text string, err error)

// Pool is a fixed-size OCR worker pool with a 1-slot input queue (strict back-pressure).
type Pool struct {
	jobs    chan job
	wg      sync.WaitGroup
	extract ExtractFunc
}

type job struct {
	ctx context.Context
	img image.Image
	cb  ResultCallback
}

// New creates a worker pool running extract. Size defaults to NumCPU when size<=0. Queue is 1 slot.
func New(size int, extract ExtractFunc) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &Pool{jobs: make(chan job, 1), extract: extract}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				b := j.img.Bounds()
				log.Printf("Worker: Starting OCR for image %dx%d", b.Dx(), b.Dy())
				text, err := p.extractWithContext(j.ctx, j.img)
				log.Printf("Worker: OCR completed, text length=%d, err=%v", len(text), err)
				j.cb(text, err)
			}
		}()
	}
}

// Submit enqueues an OCR job if the single-slot queue is free. Returns false if dropped.
func (p *Pool) Submit(ctx context.Context, img image.Image, cb ResultCallback) bool {
	select {
	case p.jobs <- job{ctx: ctx, img: img, cb: cb}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}

// extractWithContext returns at ctx expiry even if extract does not honour ctx;
// the abandoned call finishes in the background.
func (p *Pool) extractWithContext(ctx context.Context, img image.Image) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		return p.extract(ctx, img)
	}
	resCh := make(chan struct {
		text string
		err  error
	}, 1)
	go func() {
		text, err := p.extract(ctx, img)
		resCh <- struct {
			text string
			err  error
		}{text, err}
	}()
	select {
	case r := <-resCh:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
