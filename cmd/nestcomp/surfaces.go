package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/1broseidon/nestcomp/internal/compositor"
	"github.com/1broseidon/nestcomp/internal/ipc"
	"github.com/1broseidon/nestcomp/internal/protocol"
)

func printJSON(v any) int {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(string(data))
	return 0
}

func parseSurfaceID(s string) (protocol.SurfaceID, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid surface id %q", s)
	}
	return protocol.SurfaceID(n), nil
}

func runSurfaces(args []string) int {
	fs := flag.NewFlagSet("surfaces", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	asJSON := fs.Bool("json", false, "Print raw JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: nestcomp surfaces [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List mapped surfaces bottom to top, then unmapped ones.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	surfaces, err := ipc.NewClient().ListSurfaces()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *asJSON {
		if surfaces == nil {
			surfaces = []compositor.SurfaceInfo{}
		}
		return printJSON(surfaces)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCLIENT\tROLE\tPOS\tSIZE\tSTACK\tSTATE")
	for _, s := range surfaces {
		state := "unmapped"
		if s.Mapped {
			state = "mapped"
			if !s.OnScreen {
				state += ",off-screen"
			}
		}
		if s.Focused {
			state += ",focused"
		}
		name := s.ClientName
		if name == "" {
			name = strconv.FormatUint(uint64(s.Client), 10)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%.0f,%.0f\t%dx%d\t%d\t%s\n",
			s.ID, name, s.Role, s.X, s.Y, s.Width, s.Height, s.StackIndex, state)
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func bufferFlags(fs *flag.FlagSet, req *compositor.BufferRequest) {
	fs.IntVar(&req.Width, "width", 200, "Buffer width in pixels")
	fs.IntVar(&req.Height, "height", 150, "Buffer height in pixels")
	fs.StringVar(&req.Pattern, "pattern", "", "solid, checker or border (default: solid)")
	fs.StringVar(&req.Color, "color", "", "Fill colour as #rrggbb (default: from palette)")
	fs.StringVar(&req.Accent, "accent", "", "Second colour for checker and border patterns")
	fs.StringVar(&req.Origin, "origin", "", "Row order: top-left (default) or bottom-left")
}

func runSpawn(args []string) int {
	fs := flag.NewFlagSet("spawn", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var buf compositor.BufferRequest
	bufferFlags(fs, &buf)
	client := fs.Uint("client", 0, "Existing client id (default: new client)")
	name := fs.String("name", "", "Name for a new client")
	role := fs.String("role", "toplevel", "toplevel, popup or cursor")
	parent := fs.Uint("parent", 0, "Parent surface id (popup)")
	offX := fs.Float64("offset-x", 0, "Popup offset from parent")
	offY := fs.Float64("offset-y", 0, "Popup offset from parent")
	hotX := fs.Int("hotspot-x", 0, "Cursor hotspot")
	hotY := fs.Int("hotspot-y", 0, "Cursor hotspot")
	extended := fs.Bool("extended", false, "Attach the extended surface (visibility reports)")
	doMap := fs.Bool("map", true, "Map the surface after the first commit")
	asJSON := fs.Bool("json", false, "Print raw JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: nestcomp spawn [options]")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	info, err := ipc.NewClient().Spawn(compositor.SpawnRequest{
		Client:     protocol.ClientID(*client),
		ClientName: *name,
		Role:       *role,
		Parent:     protocol.SurfaceID(*parent),
		OffsetX:    *offX,
		OffsetY:    *offY,
		Width:      buf.Width,
		Height:     buf.Height,
		Pattern:    buf.Pattern,
		Color:      buf.Color,
		Accent:     buf.Accent,
		Origin:     buf.Origin,
		HotspotX:   *hotX,
		HotspotY:   *hotY,
		Extended:   *extended,
		Map:        *doMap,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *asJSON {
		return printJSON(info)
	}
	fmt.Printf("surface %d (client %d, %s) %dx%d at %.0f,%.0f\n",
		info.ID, info.Client, info.Role, info.Width, info.Height, info.X, info.Y)
	return 0
}

func runCommit(args []string) int {
	fs := flag.NewFlagSet("commit", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var buf compositor.BufferRequest
	bufferFlags(fs, &buf)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: nestcomp commit [options] <surface-id>")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	id, err := parseSurfaceID(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := ipc.NewClient().Commit(id, buf); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runSurfaceAction(action string, args []string) int {
	fs := flag.NewFlagSet(action, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: nestcomp %s <surface-id>\n", action)
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	id, err := parseSurfaceID(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	client := ipc.NewClient()
	switch action {
	case "map":
		err = client.Map(id)
	case "unmap":
		err = client.Unmap(id)
	case "destroy":
		err = client.Destroy(id)
	case "raise":
		var raised bool
		raised, err = client.Raise(id)
		if err == nil && !raised {
			fmt.Printf("surface %d is already on top\n", id)
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runMove(args []string) int {
	fs := flag.NewFlagSet("move", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: nestcomp move <surface-id> <x> <y>")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 3 {
		fs.Usage()
		return 2
	}
	id, err := parseSurfaceID(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	x, errX := strconv.ParseFloat(fs.Arg(1), 64)
	y, errY := strconv.ParseFloat(fs.Arg(2), 64)
	if errX != nil || errY != nil {
		fmt.Fprintln(os.Stderr, "x and y must be numbers")
		return 2
	}
	if err := ipc.NewClient().Move(id, x, y); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runCursor(args []string) int {
	fs := flag.NewFlagSet("cursor", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	hotX := fs.Int("hotspot-x", 0, "Hotspot x in surface pixels")
	hotY := fs.Int("hotspot-y", 0, "Hotspot y in surface pixels")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: nestcomp cursor [--hotspot-x N] [--hotspot-y N] <surface-id>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Use a surface's buffer as the pointer image. Surface id 0 clears it.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	n, err := strconv.ParseUint(fs.Arg(0), 10, 32)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid surface id %q\n", fs.Arg(0))
		return 2
	}
	if err := ipc.NewClient().SetCursor(protocol.SurfaceID(n), *hotX, *hotY); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runTile(args []string) int {
	fs := flag.NewFlagSet("tile", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	mode := fs.String("mode", "", "grid, vertical, horizontal or master-stack (default: from config)")
	gap := fs.Int("gap", -1, "Gap in pixels (default: from config)")
	master := fs.Int("master-width", 0, "Master column width percent (master-stack)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: nestcomp tile [--mode MODE] [--gap N] [--master-width PCT]")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	p := ipc.TilePayload{Mode: *mode, MasterWidthPercent: *master}
	if *gap >= 0 {
		p.Gap = gap
	}
	n, err := ipc.NewClient().Tile(p)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("tiled %d surfaces\n", n)
	return 0
}

func runClient(args []string) int {
	if len(args) < 2 || args[0] != "destroy" {
		fmt.Fprintln(os.Stderr, "Usage: nestcomp client destroy <client-id>")
		return 2
	}
	n, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil || n == 0 {
		fmt.Fprintf(os.Stderr, "invalid client id %q\n", args[1])
		return 2
	}
	destroyed, err := ipc.NewClient().DestroyClient(protocol.ClientID(n))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("destroyed %d surfaces\n", destroyed)
	return 0
}
