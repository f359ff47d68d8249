package engine

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/spaghettifunk/umbra/engine/assets"
	"github.com/spaghettifunk/umbra/engine/config"
	"github.com/spaghettifunk/umbra/engine/containers"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/platform"
	"github.com/spaghettifunk/umbra/engine/renderer"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
	"github.com/spaghettifunk/umbra/engine/scene"
)

// statsInterval is the number of frames between two frame time reports.
const statsInterval = 600

// maxPendingChanges bounds the asset writes queued between two frames.
const maxPendingChanges = 16

type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *config.Config

	bus      *core.EventBus
	input    *core.InputState
	platform *platform.Platform
	assets   *assets.AssetManager
	renderer *renderer.Renderer
	level    *scene.Level
	clock    *core.Clock
	lastTime float64

	isRunning atomic.Bool
	// Asset writes reported by the watcher goroutine, handled on the main thread.
	changesMu sync.Mutex
	changes   *containers.RingQueue[assets.AssetInfo]
}

func New(g *Game) (*Engine, error) {
	if g == nil {
		return nil, errors.New("engine: nil game")
	}
	cfg := g.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	core.SetLogLevel(cfg.LogLevel)

	bus := core.NewEventBus()
	input := core.NewInputState(bus)
	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       cfg,
		bus:          bus,
		input:        input,
		platform:     platform.New(bus, input),
		assets:       assets.NewAssetManager(cfg.Assets.Root),
		clock:        core.NewClock(),
		changes:      containers.NewRingQueue[assets.AssetInfo](maxPendingChanges),
	}, nil
}

func (e *Engine) Stage() Stage { return e.currentStage }
func (e *Engine) Config() *config.Config { return e.config }
func (e *Engine) Bus() *core.EventBus { return e.bus }
func (e *Engine) Input() *core.InputState { return e.input }
func (e *Engine) Assets() *assets.AssetManager { return e.assets }
func (e *Engine) Renderer() *renderer.Renderer { return e.renderer }
func (e *Engine) Level() *scene.Level { return e.level }
func (e *Engine) Platform() *platform.Platform { return e.platform }

func (e *Engine) setStage(s Stage) error {
	if !canTransition(e.currentStage, s) {
		return fmt.Errorf("engine: cannot go from %s to %s", e.currentStage, s)
	}
	core.LogDebug("Engine stage %s -> %s", e.currentStage, s)
	e.currentStage = s
	return nil
}

// SetLevel attaches the level rendered every frame. Call from the game Initialize.
func (e *Engine) SetLevel(level *scene.Level) error {
	if e.renderer == nil {
		return errors.New("engine: renderer not created")
	}
	if err := e.renderer.SetLevel(level); err != nil {
		return err
	}
	e.level = level
	return nil
}

func (e *Engine) Initialize() error {
	if err := e.setStage(EngineStageInitializing); err != nil {
		return err
	}

	e.bus.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.bus.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.bus.Register(core.EVENT_CODE_RESIZED, e, e.onResized)

	win := e.config.Window
	if err := e.platform.Startup(win.Name, win.StartPosX, win.StartPosY, win.Width, win.Height); err != nil {
		return err
	}
	if err := platform.InitVulkan(); err != nil {
		return err
	}

	if err := e.assets.Initialize(); err != nil {
		return fmt.Errorf("indexing assets: %w", err)
	}
	if err := e.assets.Preload(runtime.NumCPU(), e.assets.Paths(metadata.ResourceTypeShader)...); err != nil {
		core.LogWarn("preloading shaders: %s", err)
	}

	r, err := renderer.New(win.Name, e.config.Renderer, e.platform, e.platform.CreateSurface, e.assets.Shader)
	if err != nil {
		return err
	}
	e.renderer = r
	e.loadSettings()

	if err := e.gameInstance.FnInitialize(e); err != nil {
		return err
	}
	if e.level == nil {
		return errors.New("engine: game initialized without a level")
	}
	if err := e.renderer.Start(); err != nil {
		return err
	}

	if e.config.Assets.Watch {
		e.assets.OnChange(e.queueChange)
		if err := e.assets.Watch(); err != nil {
			core.LogWarn("asset hot reload disabled: %s", err)
		}
	}

	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.platform.FramebufferSize()); err != nil {
			return err
		}
	}
	return e.setStage(EngineStageInitialized)
}

func (e *Engine) Run() error {
	if err := e.setStage(EngineStageRunning); err != nil {
		return err
	}
	e.isRunning.Store(true)
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning.Load() {
		if !e.platform.PumpMessages() {
			e.isRunning.Store(false)
			break
		}
		if e.platform.ConsumeResize() {
			e.renderer.RequestRebuild()
		}
		e.drainChanges()

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(e, delta); err != nil {
				return fmt.Errorf("game update: %w", err)
			}
		}
		if err := e.renderer.DrawFrame(); err != nil {
			return fmt.Errorf("draw frame: %w", err)
		}

		if frames := e.renderer.Frames(); frames%statsInterval == 0 {
			m := e.renderer.Metrics()
			core.LogDebug("frame %d: %.2f ms avg, %.0f fps", frames, m.FrameTime(), m.FPS())
		}

		// Input is the last thing updated in a frame.
		e.input.Update()
		e.lastTime = currentTime
	}
	return nil
}

// Quit stops the main loop after the current frame. Safe from any goroutine.
func (e *Engine) Quit() {
	e.isRunning.Store(false)
}

func (e *Engine) Shutdown() error {
	if err := e.setStage(EngineStageShuttingDown); err != nil {
		return err
	}
	var errs []error
	if e.gameInstance.FnShutdown != nil {
		errs = append(errs, e.gameInstance.FnShutdown())
	}
	errs = append(errs, e.assets.Close())
	if e.renderer != nil {
		e.renderer.Shutdown()
	}
	errs = append(errs, e.platform.Shutdown())
	e.bus.Shutdown()
	errs = append(errs, e.setStage(EngineStageStopped))
	return errors.Join(errs...)
}

func (e *Engine) loadSettings() {
	path := e.config.Assets.DebugSettings
	if path == "" {
		return
	}
	settings, err := e.assets.Settings(path)
	if err != nil {
		core.LogWarn("debug settings: %s", err)
		return
	}
	e.renderer.SetDebugSettings(*settings)
}

// queueChange runs on the watcher goroutine.
func (e *Engine) queueChange(info assets.AssetInfo) {
	e.changesMu.Lock()
	defer e.changesMu.Unlock()
	if err := e.changes.Enqueue(info); err != nil {
		core.LogWarn("dropping change of %s: %s", info.Path, err)
	}
}

func (e *Engine) drainChanges() {
	for {
		e.changesMu.Lock()
		info, err := e.changes.Dequeue()
		e.changesMu.Unlock()
		if err != nil {
			return
		}
		e.handleChange(info)
	}
}

func (e *Engine) handleChange(info assets.AssetInfo) {
	switch info.Type {
	case metadata.ResourceTypeSettings:
		if info.Path != filepath.Clean(e.config.Assets.DebugSettings) {
			return
		}
		settings, err := e.assets.Settings(info.Path)
		if err != nil {
			core.LogError("reloading %s: %s", info.Path, err)
			return
		}
		e.renderer.SetDebugSettings(*settings)
		e.bus.Fire(core.EVENT_CODE_SETTINGS_RELOADED, e, core.EventContext{})
		core.LogInfo("Reloaded debug settings from %s", info.Path)
	case metadata.ResourceTypeShader:
		core.LogInfo("Shader %s changed, rebuilding pipelines", info.Path)
		e.renderer.RequestRebuild()
	}
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.Quit()
		return true
	}
	return false
}

func (e *Engine) onKey(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	switch core.KeyCode(context.Data.U32[0]) {
	case core.KEY_ESCAPE:
		// Technically firing an event to itself, but there may be other listeners.
		e.bus.Fire(core.EVENT_CODE_APPLICATION_QUIT, e, core.EventContext{})
		return true
	case core.KEY_F5:
		core.LogInfo("Swapchain rebuild requested.")
		e.renderer.RequestRebuild()
		e.bus.Fire(core.EVENT_CODE_RELOAD_SWAPCHAIN, e, core.EventContext{})
		return true
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	width, height := context.Data.U32[0], context.Data.U32[1]
	core.LogDebug("Window resize: %d, %d", width, height)
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized.")
		return false
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError(err.Error())
		}
	}
	return false
}
