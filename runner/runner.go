// Package runner drives an emulated system on a single goroutine with
// cooperative cancellation and a pause rendezvous at frame boundaries.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrNotRunning is returned by RequestPause when the loop has exited.
var ErrNotRunning = errors.New("runner not running")

// System is stepped by the runner. Tick advances one VDP slot and
// reports the end of a frame.
type System interface {
	Tick() bool
	DMAActive() bool
}

// Options configures a Runner.
type Options struct {
	// MaxFrames stops the loop after that many frames. Zero runs until
	// cancelled or stopped.
	MaxFrames uint64
	// FPS paces the loop to real time. Zero runs unthrottled.
	FPS int
	// OnFrame is called on the loop goroutine after every frame.
	OnFrame func(frame uint64)
	Logger  *slog.Logger
}

// Control coordinates pause, resume and stop between controlling
// goroutines and the loop.
type Control struct {
	mu       sync.Mutex
	pauseReq bool
	paused   bool
	// parked is closed when the loop parks for the current request.
	parked   chan struct{}
	waiters  int
	resumeCh chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func newControl() *Control {
	return &Control{
		resumeCh: make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// RequestPause asks the loop to park and blocks until it has, ctx ends,
// or the loop exits. Concurrent callers share one request and all return
// once the loop is parked.
func (c *Control) RequestPause(ctx context.Context) error {
	select {
	case <-c.done:
		return ErrNotRunning
	default:
	}

	c.mu.Lock()
	if c.paused {
		c.mu.Unlock()
		return nil
	}
	if !c.pauseReq {
		c.pauseReq = true
		c.parked = make(chan struct{})
	}
	parked := c.parked
	c.waiters++
	c.mu.Unlock()

	var err error
	select {
	case <-parked:
	case <-c.done:
		err = ErrNotRunning
	case <-ctx.Done():
		err = ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.waiters--
	if err != nil && !c.paused && c.waiters == 0 && c.parked == parked {
		// Nobody is left waiting for this request.
		c.pauseReq = false
	}
	return err
}

// Resume releases a parked loop. It does nothing if the loop has not
// parked.
func (c *Control) Resume() {
	c.mu.Lock()
	wasPaused := c.paused
	c.mu.Unlock()

	if wasPaused {
		select {
		case c.resumeCh <- struct{}{}:
		default:
		}
	}
}

// Stop asks the loop to exit at the next frame boundary.
func (c *Control) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// IsPaused reports whether the loop is parked.
func (c *Control) IsPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *Control) stopped() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

// park blocks while a pause is requested. Returns false if the loop
// should exit. The request is consumed on every way out.
func (c *Control) park(ctx context.Context) bool {
	c.mu.Lock()
	if !c.pauseReq {
		c.mu.Unlock()
		return true
	}
	// Drop a resume left over from an earlier park that ended on stop.
	select {
	case <-c.resumeCh:
	default:
	}
	c.paused = true
	close(c.parked)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.paused = false
		c.pauseReq = false
		c.mu.Unlock()
	}()
	select {
	case <-c.resumeCh:
		return true
	case <-c.stopCh:
		return false
	case <-ctx.Done():
		return false
	}
}

// Runner owns the goroutine that steps a System.
type Runner struct {
	sys    System
	opts   Options
	ctl    *Control
	log    *slog.Logger
	frames atomic.Uint64

	errMu sync.Mutex
	err   error
}

// New creates a runner for sys.
func New(sys System, opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		sys:  sys,
		opts: opts,
		ctl:  newControl(),
		log:  logger.With("component", "runner"),
	}
}

// Control returns the pause/stop handle.
func (r *Runner) Control() *Control { return r.ctl }

// Frames returns the number of frames completed. Safe from any goroutine.
func (r *Runner) Frames() uint64 { return r.frames.Load() }

// Start runs the loop on a new goroutine. Use Wait for the result.
func (r *Runner) Start(ctx context.Context) {
	go func() { _ = r.Run(ctx) }()
}

// Wait blocks until the loop exits and returns its error.
func (r *Runner) Wait() error {
	<-r.ctl.done
	r.errMu.Lock()
	defer r.errMu.Unlock()
	return r.err
}

// Run steps the system on the calling goroutine until ctx is cancelled,
// Stop is called or MaxFrames is reached. Cancellation returns ctx.Err().
func (r *Runner) Run(ctx context.Context) error {
	err := r.loop(ctx)
	r.errMu.Lock()
	r.err = err
	r.errMu.Unlock()
	close(r.ctl.done)
	return err
}

func (r *Runner) loop(ctx context.Context) error {
	var frameTime time.Duration
	if r.opts.FPS > 0 {
		frameTime = time.Second / time.Duration(r.opts.FPS)
	}
	lastFrame := time.Now()

	r.log.Info("run start", "maxFrames", r.opts.MaxFrames, "fps", r.opts.FPS)
	for {
		if err := ctx.Err(); err != nil {
			r.log.Info("run cancelled", "frames", r.Frames())
			return err
		}
		if r.ctl.stopped() {
			r.log.Info("run stopped", "frames", r.Frames())
			return nil
		}
		// Park only between transfers so DMA and FIFO state stay whole.
		if !r.sys.DMAActive() && !r.ctl.park(ctx) {
			if err := ctx.Err(); err != nil {
				return err
			}
			return nil
		}

		for !r.sys.Tick() {
		}
		n := r.frames.Add(1)
		if r.opts.OnFrame != nil {
			r.opts.OnFrame(n)
		}
		if r.opts.MaxFrames > 0 && n >= r.opts.MaxFrames {
			r.log.Info("run complete", "frames", n)
			return nil
		}

		if frameTime > 0 {
			if sleep := frameTime - time.Since(lastFrame); sleep > time.Millisecond {
				t := time.NewTimer(sleep)
				select {
				case <-t.C:
				case <-ctx.Done():
					t.Stop()
				}
			}
			lastFrame = time.Now()
		}
	}
}
