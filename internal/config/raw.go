package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

// The Raw types mirror Config with pointer fields so a file only overrides
// the keys it sets.

type RawOutput struct {
	Width  *int    `yaml:"width"`
	Height *int    `yaml:"height"`
	Title  *string `yaml:"title"`
}

type RawPlacement struct {
	StickyTopLeft *bool   `yaml:"sticky_top_left"`
	Seed          *uint64 `yaml:"seed"`
}

type RawStuckModifier struct {
	Enabled  *bool   `yaml:"enabled"`
	Modifier *string `yaml:"modifier"`
	Scancode *uint32 `yaml:"scancode"`
}

type RawInput struct {
	DragKey       *string           `yaml:"drag_key"`
	StuckModifier *RawStuckModifier `yaml:"stuck_modifier"`
}

type RawBackground struct {
	Image *string `yaml:"image"`
	Color *string `yaml:"color"`
	Tile  *bool   `yaml:"tile"`
}

type RawFrameCallbacks struct {
	Automatic *bool `yaml:"automatic"`
}

type RawTiling struct {
	Mode               *string `yaml:"mode"`
	Gap                *int    `yaml:"gap"`
	MasterWidthPercent *int    `yaml:"master_width_percent"`
}

type RawHotkeys struct {
	Tile  *string `yaml:"tile"`
	Cycle *string `yaml:"cycle"`
}

type RawLog struct {
	Level  *string `yaml:"level"`
	Format *string `yaml:"format"`
}

type RawConfig struct {
	Include IncludeList `yaml:"include"`

	Output          *RawOutput         `yaml:"output"`
	Placement       *RawPlacement      `yaml:"placement"`
	Input           *RawInput          `yaml:"input"`
	Background      *RawBackground     `yaml:"background"`
	FrameCallbacks  *RawFrameCallbacks `yaml:"frame_callbacks"`
	Tiling          *RawTiling         `yaml:"tiling"`
	Hotkeys         *RawHotkeys        `yaml:"hotkeys"`
	DebugAssertions *bool              `yaml:"debug_assertions"`
	Log             *RawLog            `yaml:"log"`
}

func set[T any](dst **T, src *T) {
	if src != nil {
		*dst = src
	}
}

// merge returns r with every key set in o taking precedence.
func (r RawConfig) merge(o RawConfig) RawConfig {
	out := r
	if o.Output != nil {
		m := RawOutput{}
		if out.Output != nil {
			m = *out.Output
		}
		set(&m.Width, o.Output.Width)
		set(&m.Height, o.Output.Height)
		set(&m.Title, o.Output.Title)
		out.Output = &m
	}
	if o.Placement != nil {
		m := RawPlacement{}
		if out.Placement != nil {
			m = *out.Placement
		}
		set(&m.StickyTopLeft, o.Placement.StickyTopLeft)
		set(&m.Seed, o.Placement.Seed)
		out.Placement = &m
	}
	if o.Input != nil {
		m := RawInput{}
		if out.Input != nil {
			m = *out.Input
		}
		set(&m.DragKey, o.Input.DragKey)
		if o.Input.StuckModifier != nil {
			sm := RawStuckModifier{}
			if m.StuckModifier != nil {
				sm = *m.StuckModifier
			}
			set(&sm.Enabled, o.Input.StuckModifier.Enabled)
			set(&sm.Modifier, o.Input.StuckModifier.Modifier)
			set(&sm.Scancode, o.Input.StuckModifier.Scancode)
			m.StuckModifier = &sm
		}
		out.Input = &m
	}
	if o.Background != nil {
		m := RawBackground{}
		if out.Background != nil {
			m = *out.Background
		}
		set(&m.Image, o.Background.Image)
		set(&m.Color, o.Background.Color)
		set(&m.Tile, o.Background.Tile)
		out.Background = &m
	}
	if o.FrameCallbacks != nil {
		m := RawFrameCallbacks{}
		if out.FrameCallbacks != nil {
			m = *out.FrameCallbacks
		}
		set(&m.Automatic, o.FrameCallbacks.Automatic)
		out.FrameCallbacks = &m
	}
	if o.Tiling != nil {
		m := RawTiling{}
		if out.Tiling != nil {
			m = *out.Tiling
		}
		set(&m.Mode, o.Tiling.Mode)
		set(&m.Gap, o.Tiling.Gap)
		set(&m.MasterWidthPercent, o.Tiling.MasterWidthPercent)
		out.Tiling = &m
	}
	if o.Hotkeys != nil {
		m := RawHotkeys{}
		if out.Hotkeys != nil {
			m = *out.Hotkeys
		}
		set(&m.Tile, o.Hotkeys.Tile)
		set(&m.Cycle, o.Hotkeys.Cycle)
		out.Hotkeys = &m
	}
	set(&out.DebugAssertions, o.DebugAssertions)
	if o.Log != nil {
		m := RawLog{}
		if out.Log != nil {
			m = *out.Log
		}
		set(&m.Level, o.Log.Level)
		set(&m.Format, o.Log.Format)
		out.Log = &m
	}
	out.Include = nil
	return out
}

func assign[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// apply overlays the raw values onto cfg.
func (r RawConfig) apply(cfg *Config) {
	if o := r.Output; o != nil {
		assign(&cfg.Output.Width, o.Width)
		assign(&cfg.Output.Height, o.Height)
		assign(&cfg.Output.Title, o.Title)
	}
	if p := r.Placement; p != nil {
		assign(&cfg.Placement.StickyTopLeft, p.StickyTopLeft)
		assign(&cfg.Placement.Seed, p.Seed)
	}
	if in := r.Input; in != nil {
		assign(&cfg.Input.DragKey, in.DragKey)
		if sm := in.StuckModifier; sm != nil {
			assign(&cfg.Input.StuckModifier.Enabled, sm.Enabled)
			assign(&cfg.Input.StuckModifier.Modifier, sm.Modifier)
			assign(&cfg.Input.StuckModifier.Scancode, sm.Scancode)
		}
	}
	if b := r.Background; b != nil {
		assign(&cfg.Background.Image, b.Image)
		assign(&cfg.Background.Color, b.Color)
		assign(&cfg.Background.Tile, b.Tile)
	}
	if f := r.FrameCallbacks; f != nil {
		assign(&cfg.FrameCallbacks.Automatic, f.Automatic)
	}
	if t := r.Tiling; t != nil {
		assign(&cfg.Tiling.Mode, t.Mode)
		assign(&cfg.Tiling.Gap, t.Gap)
		assign(&cfg.Tiling.MasterWidthPercent, t.MasterWidthPercent)
	}
	if h := r.Hotkeys; h != nil {
		assign(&cfg.Hotkeys.Tile, h.Tile)
		assign(&cfg.Hotkeys.Cycle, h.Cycle)
	}
	assign(&cfg.DebugAssertions, r.DebugAssertions)
	if l := r.Log; l != nil {
		assign(&cfg.Log.Level, l.Level)
		assign(&cfg.Log.Format, l.Format)
	}
}
