package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/1broseidon/nestcomp/internal/platform"
	"github.com/1broseidon/nestcomp/internal/render"
	"github.com/1broseidon/nestcomp/internal/tiling"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// ValidationError points at the offending YAML path and, when known, the
// file position that set it.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() []error { return []error{ErrInvalid, e.Err} }

func invalid(path, format string, args ...any) error {
	return &ValidationError{Path: path, Err: fmt.Errorf(format, args...)}
}

// OutputConfig sizes the host window. Zero dimensions are derived from the
// active monitor.
type OutputConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

// PlacementConfig controls where newly mapped surfaces appear.
type PlacementConfig struct {
	StickyTopLeft bool `yaml:"sticky_top_left"`
	// Seed fixes the placement generator; 0 picks a random seed.
	Seed uint64 `yaml:"seed"`
}

// StuckModifierConfig configures the synthetic release sent when the host
// reports a modifier change the compositor never saw.
type StuckModifierConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Modifier string `yaml:"modifier"`
	Scancode uint32 `yaml:"scancode"`
}

type InputConfig struct {
	// DragKey is the keysym name that turns a click into a window drag.
	DragKey       string              `yaml:"drag_key"`
	StuckModifier StuckModifierConfig `yaml:"stuck_modifier"`
}

type BackgroundConfig struct {
	Image string `yaml:"image"`
	Color string `yaml:"color"`
	Tile  bool   `yaml:"tile"`
}

type FrameCallbacksConfig struct {
	Automatic bool `yaml:"automatic"`
}

// TilingConfig is the arrangement TILE_SURFACES uses when the request does
// not name one.
type TilingConfig struct {
	Mode               string `yaml:"mode"`
	Gap                int    `yaml:"gap"`
	MasterWidthPercent int    `yaml:"master_width_percent"`
}

// HotkeysConfig holds global key sequences (xgbutil syntax, e.g.
// "Mod4-Shift-t") grabbed on the host root window. Empty disables one.
type HotkeysConfig struct {
	Tile  string `yaml:"tile"`
	Cycle string `yaml:"cycle"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the effective daemon configuration.
type Config struct {
	Output          OutputConfig         `yaml:"output"`
	Placement       PlacementConfig      `yaml:"placement"`
	Input           InputConfig          `yaml:"input"`
	Background      BackgroundConfig     `yaml:"background"`
	FrameCallbacks  FrameCallbacksConfig `yaml:"frame_callbacks"`
	Tiling          TilingConfig         `yaml:"tiling"`
	Hotkeys         HotkeysConfig        `yaml:"hotkeys"`
	DebugAssertions bool                 `yaml:"debug_assertions"`
	Log             LogConfig            `yaml:"log"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	layout := tiling.DefaultLayout()
	return &Config{
		Output: OutputConfig{Title: "nestcomp"},
		Input: InputConfig{
			DragKey: "Super_L",
			StuckModifier: StuckModifierConfig{
				Enabled:  true,
				Modifier: "alt",
				Scancode: 64,
			},
		},
		Background: BackgroundConfig{
			Color: "#202830",
			Tile:  true,
		},
		FrameCallbacks: FrameCallbacksConfig{Automatic: true},
		Tiling: TilingConfig{
			Mode:               string(layout.Mode),
			Gap:                layout.Gap,
			MasterWidthPercent: layout.MasterWidthPercent,
		},
		Hotkeys: HotkeysConfig{Tile: "Mod4-Shift-t"},
		Log: LogConfig{Level: "info", Format: "auto"},
	}
}

// Validate checks the configuration for values the daemon cannot use.
func (c *Config) Validate() error {
	if c.Output.Width < 0 || c.Output.Height < 0 {
		return invalid("output", "width and height must be >= 0")
	}
	if (c.Output.Width == 0) != (c.Output.Height == 0) {
		return invalid("output", "width and height must both be set or both be 0")
	}
	if c.Output.Width > 0xffff || c.Output.Height > 0xffff {
		return invalid("output", "width and height must be <= 65535")
	}
	if strings.TrimSpace(c.Input.DragKey) == "" {
		return invalid("input.drag_key", "drag_key is required")
	}
	if _, ok := platform.ParseModifier(c.Input.StuckModifier.Modifier); !ok && (c.Input.StuckModifier.Enabled || c.Input.StuckModifier.Modifier != "") {
		return invalid("input.stuck_modifier.modifier", "unknown modifier %q (want shift, control, alt or super)", c.Input.StuckModifier.Modifier)
	}
	if c.Input.StuckModifier.Enabled && c.Input.StuckModifier.Scancode == 0 {
		return invalid("input.stuck_modifier.scancode", "scancode must be set when enabled")
	}
	if c.Background.Color != "" {
		if _, err := render.ParseColor(c.Background.Color); err != nil {
			return invalid("background.color", "%v", err)
		}
	}
	if _, err := c.Layout(); err != nil {
		return invalid("tiling", "%v", err)
	}
	if c.Hotkeys.Tile != "" && c.Hotkeys.Tile == c.Hotkeys.Cycle {
		return invalid("hotkeys.cycle", "cycle and tile hotkeys must differ")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level", "level must be one of: debug, info, warn, error")
	}
	switch c.Log.Format {
	case "auto", "text", "json":
	default:
		return invalid("log.format", "format must be one of: auto, text, json")
	}
	return nil
}

// Layout returns the configured tiling arrangement.
func (c *Config) Layout() (tiling.Layout, error) {
	mode, err := tiling.ParseMode(c.Tiling.Mode)
	if err != nil {
		return tiling.Layout{}, err
	}
	if c.Tiling.Gap < 0 {
		return tiling.Layout{}, fmt.Errorf("gap must be >= 0")
	}
	if mode == tiling.ModeMasterStack && (c.Tiling.MasterWidthPercent < 10 || c.Tiling.MasterWidthPercent > 90) {
		return tiling.Layout{}, fmt.Errorf("master_width_percent must be between 10 and 90")
	}
	return tiling.Layout{
		Mode:               mode,
		Gap:                c.Tiling.Gap,
		MasterWidthPercent: c.Tiling.MasterWidthPercent,
	}, nil
}

// StuckModifier returns the parsed stuck-modifier modifier.
func (c *Config) StuckModifier() platform.Modifiers {
	m, _ := platform.ParseModifier(c.Input.StuckModifier.Modifier)
	return m
}
