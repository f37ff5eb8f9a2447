package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/1broseidon/nestcomp/internal/compositor"
	"github.com/1broseidon/nestcomp/internal/surface"
)

// Executor runs a function on the compositor's event loop.
type Executor interface {
	Call(ctx context.Context, fn func() error) error
}

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler periodically audits the compositor state on the event loop and
// reports drift between the stacking order, mapped flags and focus.
type Reconciler struct {
	interval time.Duration
	loop     Executor
	comp     *compositor.Compositor
	logger   *slog.Logger

	lastFrames uint64
}

// NewReconciler creates a reconciler for comp.
func NewReconciler(cfg ReconcilerConfig, loop Executor, comp *compositor.Compositor) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		interval: interval,
		loop:     loop,
		comp:     comp,
		logger:   logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			if err := r.loop.Call(ctx, func() error {
				r.reconcile()
				return nil
			}); err != nil && ctx.Err() == nil {
				r.logger.Warn("reconciler: loop call failed", "error", err)
			}
		}
	}
}

// ReconcileNow runs one pass. It must be called on the event loop.
func (r *Reconciler) ReconcileNow() int {
	return r.reconcile()
}

// reconcile checks registry invariants and returns how many failed.
func (r *Reconciler) reconcile() int {
	reg := r.comp.Registry()
	iv := reg.Invariants()
	failed := 0
	check := func(cond bool, msg string, args ...any) {
		if !iv.Check(cond, msg, args...) {
			failed++
		}
	}

	stack := reg.Stack()
	inStack := make(map[*surface.Surface]bool, len(stack))
	for _, s := range stack {
		check(!inStack[s], "surface stacked twice", "surface", s.ID())
		inStack[s] = true
		check(s.Mapped() && !s.Destroyed(), "stacked surface not mapped", "surface", s.ID())
		check(s.IsCursor() || s.DrawableView() != nil, "stacked surface has no view", "surface", s.ID())
	}
	for _, s := range reg.Surfaces() {
		if s.Mapped() {
			check(inStack[s], "mapped surface missing from stack", "surface", s.ID())
		}
	}

	focus := reg.KeyboardFocus()
	if focus != nil {
		check(focus.Mapped(), "keyboard focus on unmapped surface", "surface", focus.ID())
	} else {
		check(!hasFocusable(stack), "mapped surfaces but no keyboard focus", "mapped", len(stack))
	}

	stats := r.comp.Scheduler().Stats()
	r.logger.Debug("reconciled",
		"surfaces", len(reg.Surfaces()),
		"mapped", len(stack),
		"frames", stats.Frames,
		"frames_since_last", stats.Frames-r.lastFrames,
		"violations", failed)
	r.lastFrames = stats.Frames
	return failed
}

func hasFocusable(stack []*surface.Surface) bool {
	for _, s := range stack {
		if !s.IsCursor() {
			return true
		}
	}
	return false
}
