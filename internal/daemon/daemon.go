// Package daemon runs the nested compositor: it opens the host window,
// drives the event loop and serves the control socket.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/1broseidon/nestcomp/internal/compositor"
	"github.com/1broseidon/nestcomp/internal/config"
	"github.com/1broseidon/nestcomp/internal/cursor"
	"github.com/1broseidon/nestcomp/internal/hotkeys"
	"github.com/1broseidon/nestcomp/internal/input"
	"github.com/1broseidon/nestcomp/internal/ipc"
	"github.com/1broseidon/nestcomp/internal/platform"
	"github.com/1broseidon/nestcomp/internal/reactor"
	"github.com/1broseidon/nestcomp/internal/render"
	"github.com/1broseidon/nestcomp/internal/render/soft"
	"github.com/1broseidon/nestcomp/internal/runtimepath"
	"github.com/1broseidon/nestcomp/internal/tiling"
	"github.com/1broseidon/nestcomp/internal/x11"
)

// Options controls a daemon run.
type Options struct {
	// ConfigPath defaults to config.DefaultConfigPath.
	ConfigPath string
	// StickyTopLeft forces top-left placement regardless of config.
	StickyTopLeft bool
	// LogOutput defaults to stderr.
	LogOutput io.Writer
}

// fallbackOutput is used when neither config nor RandR gives a size.
var fallbackOutput = platform.Size{Width: 1024, Height: 768}

type daemon struct {
	opts   Options
	path   string
	level  *slog.LevelVar
	logger *slog.Logger

	conn    *x11.Connection
	loop    *reactor.Loop
	comp    *compositor.Compositor
	hotkeys *hotkeys.Handler

	mu  sync.RWMutex
	cfg *config.Config
}

// Run starts the compositor and blocks until ctx is cancelled, a terminating
// signal arrives or the host window is closed.
func Run(ctx context.Context, opts Options) error {
	path := opts.ConfigPath
	if path == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.StickyTopLeft {
		res.ForceStickyTopLeft()
	}
	cfg := res.Config

	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	level := new(slog.LevelVar)
	level.Set(ParseLevel(cfg.Log.Level))
	logger := NewLogger(out, cfg.Log.Format, level, isTerminal(out))

	d := &daemon{opts: opts, path: path, level: level, logger: logger, cfg: cfg}
	return d.run(ctx)
}

func (d *daemon) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn, err := x11.NewConnection()
	if err != nil {
		return err
	}
	defer conn.Close()
	d.conn = conn

	cfg := d.config()
	size := outputSize(cfg.Output, conn, d.logger)
	host, err := x11.NewHostWindow(conn, x11.HostOptions{
		Title:  cfg.Output.Title,
		Size:   size,
		Logger: d.logger.With("component", "x11"),
	})
	if err != nil {
		return err
	}
	defer host.Close()

	var sink cursor.Sink = nopCursorSink{}
	if cs, err := x11.NewCursorSink(host, d.logger.With("component", "x11-cursor")); err != nil {
		d.logger.Warn("host cursor unavailable, client cursors will not be shown", "error", err)
	} else {
		sink = cs
	}

	d.loop = reactor.New(d.logger.With("component", "reactor"))
	d.comp = compositor.New(compositor.Options{
		Logger:         d.logger,
		Bounds:         host.Bounds,
		Device:         soft.New(),
		Presenter:      host,
		Poster:         d.loop,
		CursorSink:     sink,
		QueryModifiers: host.QueryModifiers,
		Policy:         d.policy(cfg),
	})
	defer d.comp.Close()
	d.applyBackground(cfg)

	pumpDone := host.Pump(x11.PumpHandler{
		Input: func(ev input.Event) {
			_ = d.loop.Post(func() { d.comp.HandleInput(ev) })
		},
		Close: func() {
			d.logger.Info("host window closed")
			cancel()
		},
	})

	d.hotkeys = hotkeys.NewHandler(conn, d.logger.With("component", "hotkeys"))
	d.registerHotkeys(cfg)
	defer d.hotkeys.UnregisterAll()

	server, err := ipc.NewServer(ipc.ServerOptions{
		Compositor: d.comp,
		Loop:       d.loop,
		Reload:     func() error { return d.reload(ctx) },
		Layout:     d.layout,
		Logger:     d.logger.With("component", "ipc"),
	})
	if err != nil {
		return err
	}
	if err := server.Start(); err != nil {
		return err
	}
	defer server.Stop()

	pidPath, err := writePIDFile()
	if err != nil {
		d.logger.Warn("failed to write pid file", "error", err)
	} else {
		defer os.Remove(pidPath)
	}

	reconciler := NewReconciler(ReconcilerConfig{
		Interval: 10 * time.Second,
		Logger:   d.logger.With("component", "reconciler"),
	}, d.loop, d.comp)
	go reconciler.Run(ctx)

	go d.handleSignals(ctx, cancel)

	_ = d.loop.Post(d.comp.RequestRedraw)
	d.logger.Info("nestcomp started",
		"output", size,
		"socket", server.SocketPath(),
		"render", conn.HasRender())

	err = d.loop.Run(ctx)
	d.logger.Info("shutting down")
	host.Close()
	select {
	case <-pumpDone:
	case <-time.After(time.Second):
		d.logger.Warn("event pump did not stop")
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (d *daemon) handleSignals(ctx context.Context, cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				d.logger.Info("received SIGHUP, reloading config")
				if err := d.reload(ctx); err != nil {
					d.logger.Error("config reload failed", "error", err)
				}
			default:
				d.logger.Info("received signal", "signal", sig.String())
				cancel()
				return
			}
		}
	}
}

// reload re-reads the config file and applies the policy and background on
// the loop. Output size and title are fixed for the life of the window.
func (d *daemon) reload(ctx context.Context) error {
	res, err := config.LoadFromPath(d.path)
	if err != nil {
		return err
	}
	if d.opts.StickyTopLeft {
		res.ForceStickyTopLeft()
	}
	cfg := res.Config
	policy := d.policy(cfg)

	if err := d.loop.Call(ctx, func() error {
		d.comp.ApplyPolicy(policy)
		d.applyBackground(cfg)
		return nil
	}); err != nil {
		return err
	}

	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()
	if d.hotkeys != nil {
		d.registerHotkeys(cfg)
	}
	d.level.Set(ParseLevel(cfg.Log.Level))
	d.logger.Info("config reloaded", "path", d.path)
	return nil
}

// registerHotkeys replaces the global grabs with the ones cfg names.
func (d *daemon) registerHotkeys(cfg *config.Config) {
	d.hotkeys.UnregisterAll()
	onLoop := func(fn func()) func() {
		return func() { _ = d.loop.Post(fn) }
	}
	tile := onLoop(func() {
		if _, err := d.comp.Tile(d.layout()); err != nil {
			d.logger.Warn("hotkey tile failed", "error", err)
		}
	})
	cycle := onLoop(func() {
		if id := d.comp.Cycle(); id != 0 {
			d.logger.Debug("cycled focus", "surface", id)
		}
	})
	if err := d.hotkeys.RegisterFunc("tile", cfg.Hotkeys.Tile, tile); err != nil {
		d.logger.Warn("failed to register hotkey", "error", err)
	}
	if err := d.hotkeys.RegisterFunc("cycle", cfg.Hotkeys.Cycle, cycle); err != nil {
		d.logger.Warn("failed to register hotkey", "error", err)
	}
}

func (d *daemon) config() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

func (d *daemon) layout() tiling.Layout {
	l, err := d.config().Layout()
	if err != nil {
		return tiling.DefaultLayout()
	}
	return l
}

func (d *daemon) policy(cfg *config.Config) compositor.Policy {
	keys := d.conn.KeycodesFor(cfg.Input.DragKey)
	if len(keys) == 0 {
		d.logger.Warn("drag key has no key codes", "key", cfg.Input.DragKey)
	}
	return PolicyFromConfig(cfg, keys)
}

// applyBackground must run on the loop.
func (d *daemon) applyBackground(cfg *config.Config) {
	fill, err := render.ParseColor(cfg.Background.Color)
	if err != nil {
		d.logger.Warn("invalid background colour", "color", cfg.Background.Color, "error", err)
	}
	var img image.Image
	if cfg.Background.Image != "" {
		img, err = render.LoadBackground(cfg.Background.Image)
		if err != nil {
			d.logger.Warn("background image unavailable, using colour", "error", err)
			img = nil
		}
	}
	d.comp.SetBackground(img, fill, cfg.Background.Tile)
}

// PolicyFromConfig converts config switches into a compositor policy.
// dragKeys are the host key codes of the configured drag key.
func PolicyFromConfig(cfg *config.Config, dragKeys []uint32) compositor.Policy {
	return compositor.Policy{
		StickyTopLeft: cfg.Placement.StickyTopLeft,
		Seed:          cfg.Placement.Seed,
		DragKeys:      dragKeys,
		StuckModifier: input.StuckModifierPolicy{
			Enabled:  cfg.Input.StuckModifier.Enabled,
			Modifier: cfg.StuckModifier(),
			Scancode: cfg.Input.StuckModifier.Scancode,
		},
		AutomaticFrameCallbacks: cfg.FrameCallbacks.Automatic,
		DebugAssertions:         cfg.DebugAssertions,
	}
}

// MonitorSource reports the monitor the output should fit on.
type MonitorSource interface {
	ActiveMonitor() (platform.Display, error)
}

// outputSize picks the configured size, or three quarters of the active
// monitor when the config leaves it unset.
func outputSize(cfg config.OutputConfig, monitors MonitorSource, logger *slog.Logger) platform.Size {
	if cfg.Width > 0 && cfg.Height > 0 {
		return platform.Size{Width: cfg.Width, Height: cfg.Height}
	}
	mon, err := monitors.ActiveMonitor()
	if err != nil {
		logger.Warn("no monitor information, using fallback output size", "error", err, "size", fallbackOutput)
		return fallbackOutput
	}
	size := platform.Size{Width: mon.Bounds.Width * 3 / 4, Height: mon.Bounds.Height * 3 / 4}
	if size.Empty() {
		return fallbackOutput
	}
	return size
}

func writePIDFile() (string, error) {
	path, err := runtimepath.PIDPath()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write pid file: %w", err)
	}
	return path, nil
}

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the daemon logger. Format "auto" picks text for a
// terminal and JSON otherwise.
func NewLogger(w io.Writer, format string, level slog.Leveler, tty bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts))
	case "text":
		return slog.New(slog.NewTextHandler(w, opts))
	}
	if tty {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type nopCursorSink struct{}

func (nopCursorSink) SetCursor(cursor.Image) error    { return nil }
func (nopCursorSink) ChangeCursor(cursor.Image) error { return nil }
