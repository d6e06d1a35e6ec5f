// rttool is a headless CLI for inspecting and rendering ray tracing scenes.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/Faultbox/rtview/internal/config"
	"github.com/Faultbox/rtview/internal/engine/backend"
	_ "github.com/Faultbox/rtview/internal/engine/backend/cpu"
	"github.com/Faultbox/rtview/internal/engine/debug"
	"github.com/Faultbox/rtview/internal/engine/geometry"
	"github.com/Faultbox/rtview/internal/logger"
	"github.com/Faultbox/rtview/internal/scene"
	"github.com/Faultbox/rtview/internal/session"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "pack":
		cmdPack(args)
	case "render":
		cmdRender(args)
	case "backends":
		cmdBackends()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`rttool - ray tracing scene utility

Usage:
  rttool <command> [options]

Commands:
  info <scene.obj>                    Show surfaces, materials and bounds
  pack <scene.obj>                    Show packed buffer statistics
  render [flags] <scene.obj> <out.png> Render one frame to a PNG file
  backends                            List available backends

Render flags:
  -w, -h       image size (default from config)
  -fov         vertical field of view in degrees
  -backend     backend name
  -gamma       output gamma

Examples:
  rttool info scenes/cornell.obj
  rttool render -w 1280 -h 720 scenes/cornell.obj cornell.png`)
}

func loadScene(name string) *scene.Scene {
	sc, err := scene.NewLoader(nil).Load(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return sc
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rttool info <scene.obj>")
		os.Exit(1)
	}

	sc := loadScene(args[0])
	st := sc.Stats()

	fmt.Printf("Scene: %s\n", sc.Path)
	fmt.Printf("Surfaces = %d / Materials = %d\n", st.Surfaces, st.Materials)
	fmt.Printf("Triangles: %d\n", st.Triangles)
	if min, max, ok := sc.Bounds(); ok {
		fmt.Printf("Bounds: %v - %v\n", min, max)
	}

	fmt.Println("\nSurfaces:")
	for _, s := range sc.Surfaces {
		material := "-"
		if s.Material != nil {
			material = fmt.Sprintf("%s (shader %d)", s.Material.Name, s.Material.Shader)
		}
		fmt.Printf("  %-24s %8d tris  %s\n", s.Name, s.TriangleCount(), material)
	}

	if len(sc.Warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range sc.Warnings {
			fmt.Printf("  %s\n", w)
		}
	}
}

func cmdPack(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rttool pack <scene.obj>")
		os.Exit(1)
	}

	packed := geometry.PackScene(loadScene(args[0]))

	fmt.Printf("Triangles:        %d\n", packed.TriangleCount)
	fmt.Printf("Vertices:         %d\n", len(packed.Vertices))
	fmt.Printf("Normals:          %d\n", len(packed.Normals))
	fmt.Printf("Material indices: %d\n", len(packed.MaterialIndices))
	fmt.Printf("Total size:       %.1f KB\n", float64(packed.ByteSize())/1024)

	hist := packed.ShaderHistogram()
	ids := make([]int, 0, len(hist))
	for id := range hist {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)

	fmt.Println("\nTriangles by shader:")
	for _, id := range ids {
		fmt.Printf("  shader %-3d %8d\n", id, hist[uint8(id)])
	}
}

func cmdRender(args []string) {
	cfg := config.Default()

	fs := flag.NewFlagSet("render", flag.ExitOnError)
	width := fs.Int("w", cfg.Graphics.Width, "image width")
	height := fs.Int("h", cfg.Graphics.Height, "image height")
	fov := fs.Float64("fov", float64(cfg.Camera.FovY), "vertical field of view in degrees")
	backendName := fs.String("backend", cfg.Render.Backend, "backend name")
	gamma := fs.Float64("gamma", float64(cfg.Render.Gamma), "output gamma")
	unify := fs.Bool("unify-normals", false, "flip normals toward the viewer")
	debugLog := fs.Bool("debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: rttool render [flags] <scene.obj> <out.png>")
		os.Exit(1)
	}

	level := "warn"
	if *debugLog {
		level = "debug"
	}
	if err := logger.Init(level, ""); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg.Graphics.Width = *width
	cfg.Graphics.Height = *height
	cfg.Camera.FovY = float32(*fov)
	cfg.Render.Backend = *backendName
	cfg.Render.Gamma = float32(*gamma)
	cfg.Scene.UnifyNormals = *unify
	cfg.Scene.Watch = false
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	s, err := session.Open(cfg)
	backend.Check("init", err)
	defer s.Close()

	if err := s.Load(fs.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	frame, err := s.Render()
	backend.Check("render", err)

	img, err := debug.ToImage(frame, cfg.Graphics.Width, cfg.Graphics.Height, debug.TopLeft)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := debug.WritePNG(fs.Arg(1), img); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	st := s.Tracer().Stats()
	fmt.Printf("Rendered %s (%dx%d, %d triangles) in %v\n",
		fs.Arg(1), cfg.Graphics.Width, cfg.Graphics.Height, st.Triangles, s.LastRenderTime())
}

func cmdBackends() {
	for _, name := range backend.Names() {
		fmt.Println(name)
	}
}
