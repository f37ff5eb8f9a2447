package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/1broseidon/nestcomp/internal/daemon"
	"github.com/1broseidon/nestcomp/internal/ipc"
	"github.com/1broseidon/nestcomp/internal/tui"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "surfaces":
		os.Exit(runSurfaces(os.Args[2:]))
	case "spawn":
		os.Exit(runSpawn(os.Args[2:]))
	case "commit":
		os.Exit(runCommit(os.Args[2:]))
	case "map", "unmap", "raise", "destroy":
		os.Exit(runSurfaceAction(os.Args[1], os.Args[2:]))
	case "move":
		os.Exit(runMove(os.Args[2:]))
	case "cursor":
		os.Exit(runCursor(os.Args[2:]))
	case "tile":
		os.Exit(runTile(os.Args[2:]))
	case "client":
		os.Exit(runClient(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "tui":
		os.Exit(runTUI(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: nestcomp <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the compositor (foreground)")
	fmt.Fprintln(w, "  status              Show compositor status")
	fmt.Fprintln(w, "  reload              Reload the configuration file")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  surfaces            List surfaces in stacking order")
	fmt.Fprintln(w, "  spawn               Create a test client surface")
	fmt.Fprintln(w, "  commit              Attach a new generated buffer to a surface")
	fmt.Fprintln(w, "  map | unmap         Show or hide a surface")
	fmt.Fprintln(w, "  raise               Raise a surface to the top")
	fmt.Fprintln(w, "  move                Move a surface")
	fmt.Fprintln(w, "  destroy             Destroy a surface")
	fmt.Fprintln(w, "  cursor              Use a surface as the pointer image")
	fmt.Fprintln(w, "  tile                Arrange mapped surfaces")
	fmt.Fprintln(w, "  client destroy      Destroy every surface of a client")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  tui                 Open the interactive surface monitor")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'nestcomp <command> --help' for command-specific options.")
}

// parseFlags parses args, returning an exit code when the caller should stop.
func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0, false
		}
		return 2, false
	}
	return 0, true
}

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("config", "", "Config file path (default: ~/.config/nestcomp/config.yaml)")
	sticky := fs.Bool("sticky-top-left", false, "Place every new surface at the top-left corner")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: nestcomp daemon [-config PATH] [-sticky-top-left]")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	if err := daemon.Run(context.Background(), daemon.Options{
		ConfigPath:    *path,
		StickyTopLeft: *sticky,
	}); err != nil {
		log.Fatalf("nestcomp daemon: %v", err)
	}
	return 0
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	asJSON := fs.Bool("json", false, "Print raw JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: nestcomp status [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show compositor status via IPC.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *asJSON {
		return printJSON(status)
	}
	fmt.Printf("uptime:          %s\n", status.Uptime)
	fmt.Printf("output:          %s\n", status.Output)
	fmt.Printf("clients:         %d\n", status.Clients)
	fmt.Printf("surfaces:        %d (%d mapped)\n", status.Surfaces, status.Mapped)
	fmt.Printf("keyboard_focus:  %d\n", status.KeyboardFocus)
	fmt.Printf("pointer_focus:   %d\n", status.PointerFocus)
	fmt.Printf("cursor_surface:  %d (hotspot %d,%d)\n", status.CursorSurface, status.CursorHotspot[0], status.CursorHotspot[1])
	fmt.Printf("modifiers:       %s\n", status.Modifiers)
	fmt.Printf("render:          %s\n", status.SchedulerState)
	fmt.Printf("frames:          %d\n", status.Render.Frames)
	fmt.Printf("uploads:         %d\n", status.Render.Uploads)
	fmt.Printf("frame_callbacks: %d\n", status.FrameCallbacks)
	return 0
}

func runReload(args []string) int {
	fs := flag.NewFlagSet("reload", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: nestcomp reload")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if err := ipc.NewClient().Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("config reloaded")
	return 0
}

func runTUI(args []string) int {
	if len(args) > 0 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help") {
		fmt.Fprintln(os.Stderr, "Usage: nestcomp tui")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Live view of compositor surfaces, refreshed every second.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Keybindings:")
		fmt.Fprintln(os.Stderr, "  j/k, ↑/↓  Select surface")
		fmt.Fprintln(os.Stderr, "  Enter     Raise selected surface")
		fmt.Fprintln(os.Stderr, "  m         Map or unmap selected surface")
		fmt.Fprintln(os.Stderr, "  d         Destroy selected surface")
		fmt.Fprintln(os.Stderr, "  t         Tile mapped surfaces")
		fmt.Fprintln(os.Stderr, "  tab       Switch between surfaces and status")
		fmt.Fprintln(os.Stderr, "  q, Ctrl+C Quit")
		return 0
	}
	if len(args) != 0 {
		fmt.Fprintln(os.Stderr, "tui takes no arguments")
		return 2
	}

	if err := tui.Run(ipc.NewClient()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
