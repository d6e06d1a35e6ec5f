// rtgui is a Dear ImGui front end for the ray tracer with a parameter panel.
package main

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/sqweek/dialog"
	"go.uber.org/zap"

	"github.com/Faultbox/rtview/internal/config"
	"github.com/Faultbox/rtview/internal/engine/backend"
	_ "github.com/Faultbox/rtview/internal/engine/backend/cpu"
	"github.com/Faultbox/rtview/internal/engine/controls"
	"github.com/Faultbox/rtview/internal/engine/debug"
	"github.com/Faultbox/rtview/internal/engine/ui"
	"github.com/Faultbox/rtview/internal/logger"
	"github.com/Faultbox/rtview/internal/session"
)

const (
	title      = "rtgui"
	panelWidth = float32(280)
	// frame cap applied when "Limit FPS" is ticked and the config sets none
	defaultFPSLimit = 60
)

// keymap binds ImGui keys to navigation actions.
var keymap = map[imgui.Key]controls.Action{
	imgui.KeyW:          controls.Forward,
	imgui.KeyS:          controls.Back,
	imgui.KeyD:          controls.Right,
	imgui.KeyA:          controls.Left,
	imgui.KeyRightArrow: controls.TurnRight,
	imgui.KeyLeftArrow:  controls.TurnLeft,
	imgui.KeyUpArrow:    controls.TurnUp,
	imgui.KeyDownArrow:  controls.TurnDown,
	imgui.KeyE:          controls.RollRight,
	imgui.KeyQ:          controls.RollLeft,
}

func main() {
	runtime.LockOSThread()

	config.ParseFlags()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	app, err := NewApp(cfg)
	backend.Check("init", err)
	defer app.Close()

	if cfg.Scene.Path != "" {
		app.openScene(cfg.Scene.Path)
	}

	app.Run()
}

// App holds the viewer state shared across ImGui frames.
type App struct {
	cfg     *config.Config
	backend *ui.Backend
	session *session.Session
	frame   ui.FrameTexture
	shots   *debug.ScreenshotCapture
	log     *zap.Logger

	// panel state
	unifyNormals bool
	limitFPS     bool
	gamma        float32
	fov          float32
	status       string

	lastFrame time.Time

	// File dialog results arrive off the main thread
	pendingMu   sync.Mutex
	pendingPath string
}

// NewApp creates the window and the ray tracing session.
func NewApp(cfg *config.Config) (*App, error) {
	app := &App{
		cfg:          cfg,
		shots:        debug.NewScreenshotCapture(cfg.Screenshot.Dir, cfg.Screenshot.Prefix),
		log:          logger.Named("rtgui"),
		unifyNormals: cfg.Scene.UnifyNormals,
		limitFPS:     cfg.Graphics.VSync || cfg.Graphics.FPSLimit > 0,
		gamma:        cfg.Render.Gamma,
		fov:          cfg.Camera.FovY,
	}

	var err error
	app.backend, err = ui.NewBackend(title,
		int32(cfg.Graphics.Width)+int32(panelWidth), int32(cfg.Graphics.Height))
	if err != nil {
		return nil, err
	}

	app.session, err = session.Open(cfg)
	if err != nil {
		return nil, err
	}
	return app, nil
}

// Run starts the ImGui loop.
func (app *App) Run() {
	app.lastFrame = time.Now()
	app.backend.Run(app.render)
}

// Close releases the frame texture and the session.
func (app *App) Close() {
	app.frame.Delete()
	if err := app.session.Close(); err != nil {
		app.log.Warn("shutdown", zap.Error(err))
	}
}

func (app *App) render() {
	now := time.Now()
	dt := float32(now.Sub(app.lastFrame).Seconds())
	app.lastFrame = now

	app.processPending()
	app.handleKeys(dt)

	if reloaded, err := app.session.PollReload(); err != nil {
		app.status = fmt.Sprintf("Reload failed: %v", err)
	} else if reloaded {
		app.status = "Scene reloaded"
	}

	rgba, err := app.session.Render()
	backend.Check("render", err)
	width, height := app.session.Tracer().Size()
	app.frame.Update(rgba, width, height)

	app.drawMenu()
	app.drawPanel()
	app.drawFrame(float32(width), float32(height))

	if app.limitFPS {
		app.throttle(now)
	}
}

func (app *App) throttle(frameStart time.Time) {
	limit := app.cfg.Graphics.FPSLimit
	if limit <= 0 {
		limit = defaultFPSLimit
	}
	budget := time.Second / time.Duration(limit)
	if spent := time.Since(frameStart); spent < budget {
		time.Sleep(budget - spent)
	}
}

func (app *App) held(a controls.Action) bool {
	for key, action := range keymap {
		if action == a && ui.IsKeyDown(key) {
			return true
		}
	}
	return false
}

func (app *App) handleKeys(dt float32) {
	if imgui.CurrentIO().WantTextInput() {
		return
	}
	app.session.Move(app.held, dt)

	if ui.IsKeyPressed(imgui.KeyEqual) || ui.IsKeyPressed(imgui.KeyKeypadAdd) {
		app.session.WidenFov()
		app.fov = app.session.Fov()
	}
	if ui.IsKeyPressed(imgui.KeyMinus) || ui.IsKeyPressed(imgui.KeyKeypadSubtract) {
		app.session.NarrowFov()
		app.fov = app.session.Fov()
	}
	if ui.IsKeyPressed(imgui.KeyN) {
		app.setUnifyNormals(!app.unifyNormals)
	}
	if ui.IsKeyPressed(imgui.KeyF12) {
		app.screenshot()
	}
	if ui.IsKeyPressed(imgui.KeyEscape) {
		os.Exit(0)
	}
}

func (app *App) drawMenu() {
	if imgui.BeginMainMenuBar() {
		if imgui.BeginMenu("File") {
			if imgui.MenuItemBool("Open scene...") {
				app.openFileDialog()
			}
			if imgui.MenuItemBool("Reload") {
				app.reload()
			}
			if imgui.MenuItemBool("Screenshot") {
				app.screenshot()
			}
			imgui.Separator()
			if imgui.MenuItemBool("Exit") {
				os.Exit(0)
			}
			imgui.EndMenu()
		}
		imgui.EndMainMenuBar()
	}
}

func (app *App) drawPanel() {
	x, y, _, h := app.backend.GetViewport()
	flags := imgui.WindowFlagsNoMove | imgui.WindowFlagsNoResize | imgui.WindowFlagsNoCollapse

	imgui.SetNextWindowPos(imgui.NewVec2(x, y))
	imgui.SetNextWindowSize(imgui.NewVec2(panelWidth, h))
	if imgui.BeginV("Ray Tracer Params", nil, flags) {
		st := app.session.Tracer().Stats()
		imgui.Text(fmt.Sprintf("Surfaces = %d", st.Surfaces))
		imgui.Text(fmt.Sprintf("Materials = %d", st.Materials))
		imgui.Text(fmt.Sprintf("Triangles = %d", st.Triangles))
		imgui.Separator()

		imgui.Checkbox("Limit FPS", &app.limitFPS)
		unify := app.unifyNormals
		if imgui.Checkbox("Unify normals", &unify) {
			app.setUnifyNormals(unify)
		}

		imgui.Spacing()
		if imgui.SliderFloatV("Gamma", &app.gamma, 0.5, 3.0, "%.2f", imgui.SliderFlagsNone) {
			if err := app.session.Tracer().SetGamma(app.gamma); err != nil {
				backend.Check("set gamma", err)
			}
		}
		if imgui.SliderFloatV("FOV", &app.fov, session.MinFov, session.MaxFov, "%.0f deg", imgui.SliderFlagsNone) {
			app.session.SetFov(app.fov)
		}

		imgui.Separator()
		framerate := imgui.CurrentIO().Framerate()
		imgui.Text(fmt.Sprintf("%.3f ms/frame (%.1f FPS)", 1000/framerate, framerate))
		imgui.Text(fmt.Sprintf("Trace: %.2f ms", float64(app.session.LastRenderTime().Microseconds())/1000))
		imgui.Text(fmt.Sprintf("Backend: %s", app.session.Tracer().Backend()))

		cam := app.session.Tracer().Camera()
		imgui.Spacing()
		imgui.TextColored(imgui.NewVec4(0.7, 0.7, 0.7, 1), fmt.Sprintf("From %v", cam.Position()))
		imgui.TextColored(imgui.NewVec4(0.7, 0.7, 0.7, 1), fmt.Sprintf("At   %v", cam.Target()))

		if app.status != "" {
			imgui.Separator()
			imgui.TextWrapped(app.status)
		}
	}
	imgui.End()
}

func (app *App) drawFrame(width, height float32) {
	x, y, w, h := app.backend.GetViewport()
	flags := imgui.WindowFlagsNoMove | imgui.WindowFlagsNoResize | imgui.WindowFlagsNoCollapse |
		imgui.WindowFlagsNoTitleBar | imgui.WindowFlagsNoScrollbar

	imgui.SetNextWindowPos(imgui.NewVec2(x+panelWidth, y))
	imgui.SetNextWindowSize(imgui.NewVec2(w-panelWidth, h))
	if imgui.BeginV("##Frame", nil, flags) {
		// Fit the frame into the window, keeping its aspect
		avail := imgui.ContentRegionAvail()
		scale := min(avail.X/width, avail.Y/height)
		if scale <= 0 {
			scale = 1
		}
		app.frame.Draw(width*scale, height*scale)
	}
	imgui.End()
}

func (app *App) setUnifyNormals(on bool) {
	backend.Check("set unify normals", app.session.Tracer().SetUnifyNormals(on))
	app.unifyNormals = on
}

func (app *App) screenshot() {
	width, height := app.session.Tracer().Size()
	path, err := app.shots.CaptureFromPixels(app.session.LastFrame(), width, height, debug.TopLeft)
	if err != nil {
		app.status = fmt.Sprintf("Screenshot failed: %v", err)
		return
	}
	app.status = "Saved " + path
	app.log.Info("screenshot saved", zap.String("path", path))
}

func (app *App) reload() {
	if err := app.session.Reload(); err != nil {
		app.status = fmt.Sprintf("Reload failed: %v", err)
		return
	}
	app.status = "Scene reloaded"
}

func (app *App) openScene(path string) {
	if err := app.session.Load(path); err != nil {
		app.status = fmt.Sprintf("Open failed: %v", err)
		app.log.Error("failed to open scene", zap.String("path", path), zap.Error(err))
		return
	}
	app.status = "Loaded " + path
	app.backend.SetWindowTitle(fmt.Sprintf("%s - %s", title, path))
}

// openFileDialog shows a native file dialog to select a scene.
func (app *App) openFileDialog() {
	// SDL window operations must happen on the main thread, so the
	// selection is handed to processPending.
	go func() {
		filename, err := dialog.File().
			Filter("Wavefront OBJ", "obj").
			Filter("All Files", "*").
			Title("Open Scene").
			Load()
		if err != nil {
			if err != dialog.ErrCancelled {
				app.log.Error("file dialog", zap.Error(err))
			}
			return
		}

		app.pendingMu.Lock()
		app.pendingPath = filename
		app.pendingMu.Unlock()
	}()
}

func (app *App) processPending() {
	app.pendingMu.Lock()
	path := app.pendingPath
	app.pendingPath = ""
	app.pendingMu.Unlock()

	if path != "" {
		app.openScene(path)
	}
}
