package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file (.yaml or .toml)")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagScene      = flag.String("scene", "", "Scene file to load (.obj)")
	flagBackend    = flag.String("backend", "", "Ray tracing backend")
	flagWindowed   = flag.Bool("windowed", false, "Run in windowed mode")
	flagFullscreen = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth      = flag.Int("width", 0, "Image width")
	flagHeight     = flag.Int("height", 0, "Image height")
	flagFov        = flag.Float64("fov", 0, "Vertical field of view in degrees")
	flagWorkers    = flag.Int("workers", -1, "Render workers (0 = one per CPU)")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagScene != "" {
		cfg.Scene.Path = *flagScene
	} else if flag.NArg() > 0 {
		cfg.Scene.Path = flag.Arg(0)
	}
	if *flagBackend != "" {
		cfg.Render.Backend = *flagBackend
	}
	if *flagWindowed {
		cfg.Graphics.Fullscreen = false
	}
	if *flagFullscreen {
		cfg.Graphics.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Graphics.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Graphics.Height = *flagHeight
	}
	if *flagFov > 0 {
		cfg.Camera.FovY = float32(*flagFov)
	}
	if *flagWorkers >= 0 {
		cfg.Render.Workers = *flagWorkers
	}
}
