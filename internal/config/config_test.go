package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/1broseidon/nestcomp/internal/platform"
	"github.com/1broseidon/nestcomp/internal/tiling"
)

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefaultConfig_Validates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.Input.DragKey != "Super_L" {
		t.Fatalf("drag key = %q", cfg.Input.DragKey)
	}
	if cfg.StuckModifier() != platform.ModAlt {
		t.Fatalf("stuck modifier = %v", cfg.StuckModifier())
	}
	if !cfg.FrameCallbacks.Automatic {
		t.Fatalf("frame callbacks should default to automatic")
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), res.Config); diff != "" {
		t.Fatalf("config differs from defaults (-want +got):\n%s", diff)
	}
	if len(res.Files) != 0 {
		t.Fatalf("files = %v", res.Files)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "# empty\n")
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Output.Title != "nestcomp" {
		t.Fatalf("title = %q", res.Config.Output.Title)
	}
}

func TestLoadFromPath_OverlaysOnlySetKeys(t *testing.T) {
	data := strings.Join([]string{
		"output:",
		"  width: 1024",
		"  height: 768",
		"placement:",
		"  sticky_top_left: true",
		"  seed: 42",
		"input:",
		"  stuck_modifier:",
		"    scancode: 108",
		"frame_callbacks:",
		"  automatic: false",
		"",
	}, "\n")
	path := writeFile(t, t.TempDir(), "config.yaml", data)

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.Output.Width != 1024 || cfg.Output.Height != 768 || cfg.Output.Title != "nestcomp" {
		t.Fatalf("output = %+v", cfg.Output)
	}
	if !cfg.Placement.StickyTopLeft || cfg.Placement.Seed != 42 {
		t.Fatalf("placement = %+v", cfg.Placement)
	}
	want := StuckModifierConfig{Enabled: true, Modifier: "alt", Scancode: 108}
	if diff := cmp.Diff(want, cfg.Input.StuckModifier); diff != "" {
		t.Fatalf("stuck modifier (-want +got):\n%s", diff)
	}
	if cfg.FrameCallbacks.Automatic {
		t.Fatalf("expected automatic frame callbacks off")
	}
}

func TestLoadFromPath_UnknownKeyNamesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "placement:\n  stickytopleft: true\n")
	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "config.yaml") || !strings.Contains(err.Error(), "stickytopleft") {
		t.Fatalf("error should name file and key, got %v", err)
	}
}

func TestLoadFromPath_ValidationErrorHasPosition(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "log:\n  level: verbose\n")
	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Path != "log.level" || verr.Source.Line != 2 {
		t.Fatalf("path/source = %q %+v", verr.Path, verr.Source)
	}
}

func TestLoadFromPath_Includes(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "conf.d"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, dir, "conf.d/10-output.yaml", "output:\n  width: 640\n  height: 480\n")
	writeFile(t, dir, "conf.d/20-title.yml", "output:\n  title: from-include\n")
	writeFile(t, dir, "conf.d/README", "ignored")
	path := writeFile(t, dir, "config.yaml", "include: conf.d\noutput:\n  title: main\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Output.Width != 640 || res.Config.Output.Title != "main" {
		t.Fatalf("output = %+v", res.Config.Output)
	}
	if len(res.Files) != 3 {
		t.Fatalf("files = %v", res.Files)
	}
	if src := res.Sources["output.width"]; !strings.HasSuffix(src.File, "10-output.yaml") {
		t.Fatalf("output.width source = %+v", src)
	}
}

func TestLoadFromPath_IncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.yaml", "include: a.yaml\n")
	path := writeFile(t, dir, "a.yaml", "include: b.yaml\n")
	_, err := LoadFromPath(path)
	if err == nil || !strings.Contains(err.Error(), "include cycle") {
		t.Fatalf("expected include cycle error, got %v", err)
	}
}

func TestLoadFromPath_BackgroundRelativeToFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "background:\n  image: wall.png\n")
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	canonDir, _ := canonicalPath(dir)
	if want := filepath.Join(canonDir, "wall.png"); res.Config.Background.Image != want {
		t.Fatalf("image = %q, want %q", res.Config.Background.Image, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"half output", func(c *Config) { c.Output.Width = 100 }, "output"},
		{"negative output", func(c *Config) { c.Output.Width, c.Output.Height = -1, -1 }, "output"},
		{"empty drag key", func(c *Config) { c.Input.DragKey = " " }, "input.drag_key"},
		{"bad modifier", func(c *Config) { c.Input.StuckModifier.Modifier = "hyper" }, "input.stuck_modifier.modifier"},
		{"zero scancode", func(c *Config) { c.Input.StuckModifier.Scancode = 0 }, "input.stuck_modifier.scancode"},
		{"bad color", func(c *Config) { c.Background.Color = "#12" }, "background.color"},
		{"bad mode", func(c *Config) { c.Tiling.Mode = "spiral" }, "tiling"},
		{"negative gap", func(c *Config) { c.Tiling.Gap = -1 }, "tiling"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Path != tt.path {
				t.Fatalf("path = %q, want %q", verr.Path, tt.path)
			}
		})
	}
}

func TestValidate_DisabledStuckModifierNeedsNoModifier(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Input.StuckModifier = StuckModifierConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLayout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tiling = TilingConfig{Mode: "master-stack", Gap: 4, MasterWidthPercent: 70}
	layout, err := cfg.Layout()
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	want := tiling.Layout{Mode: tiling.ModeMasterStack, Gap: 4, MasterWidthPercent: 70}
	if diff := cmp.Diff(want, layout); diff != "" {
		t.Fatalf("layout (-want +got):\n%s", diff)
	}
	cfg.Tiling.MasterWidthPercent = 95
	if _, err := cfg.Layout(); err == nil {
		t.Fatalf("expected out-of-range master width to fail")
	}
}

func TestExplain(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "placement:\n  seed: 7\n")
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	val, src, err := Explain(res, "placement.seed")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != uint64(7) || src.Kind != SourceFile || src.Line != 2 {
		t.Fatalf("placement.seed = %v from %+v", val, src)
	}

	val, src, err = Explain(res, "input.stuck_modifier.scancode")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != uint32(64) || src.Kind != SourceDefault {
		t.Fatalf("scancode = %v from %+v", val, src)
	}

	if _, _, err := Explain(res, "input.nope"); err == nil {
		t.Fatalf("expected unknown path error")
	}
}

func TestPaths(t *testing.T) {
	paths := Paths()
	for _, want := range []string{"output.width", "input.stuck_modifier.enabled", "debug_assertions", "log.format"} {
		if !slices.Contains(paths, want) {
			t.Fatalf("Paths() missing %q: %v", want, paths)
		}
	}
}

func TestForceStickyTopLeft(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "placement:\n  sticky_top_left: false\n")
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	res.ForceStickyTopLeft()

	val, src, err := Explain(res, "placement.sticky_top_left")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != true || src.Kind != SourceFlag {
		t.Fatalf("sticky_top_left = %v from %+v", val, src)
	}
}

func TestLoadFromPath_Hotkeys(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "hotkeys:\n  cycle: Mod4-Tab\n")
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := HotkeysConfig{Tile: "Mod4-Shift-t", Cycle: "Mod4-Tab"}
	if res.Config.Hotkeys != want {
		t.Fatalf("hotkeys = %+v, want %+v", res.Config.Hotkeys, want)
	}

	path = writeFile(t, t.TempDir(), "config.yaml", "hotkeys:\n  cycle: Mod4-Shift-t\n")
	if _, err := LoadFromPath(path); !errors.Is(err, ErrInvalid) {
		t.Fatalf("duplicate hotkeys: err = %v, want ErrInvalid", err)
	}
}
