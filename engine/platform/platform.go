package platform

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/umbra/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

var keyMap = map[glfw.Key]core.KeyCode{
	glfw.KeyEscape: core.KEY_ESCAPE,
	glfw.KeySpace:  core.KEY_SPACE,
	glfw.KeyLeft:   core.KEY_LEFT,
	glfw.KeyUp:     core.KEY_UP,
	glfw.KeyRight:  core.KEY_RIGHT,
	glfw.KeyDown:   core.KEY_DOWN,
	glfw.Key1:      core.KEY_1,
	glfw.Key2:      core.KEY_2,
	glfw.Key3:      core.KEY_3,
	glfw.Key4:      core.KEY_4,
	glfw.KeyA:      core.KEY_A,
	glfw.KeyD:      core.KEY_D,
	glfw.KeyE:      core.KEY_E,
	glfw.KeyL:      core.KEY_L,
	glfw.KeyQ:      core.KEY_Q,
	glfw.KeyS:      core.KEY_S,
	glfw.KeyW:      core.KEY_W,
	glfw.KeyF5:     core.KEY_F5,
}

type Platform struct {
	Window *glfw.Window

	bus   *core.EventBus
	input *core.InputState
	// Set by the framebuffer callback, consumed by the engine loop.
	resized atomic.Bool
}

func New(bus *core.EventBus, input *core.InputState) *Platform {
	return &Platform{bus: bus, input: input}
}

func (p *Platform) Startup(applicationName string, x, y int, width, height uint32) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize glfw: %w", err)
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return fmt.Errorf("glfw reports no Vulkan loader")
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("failed to create window: %w", err)
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetPos(x, y)
	p.Window.Show()

	core.LogInfo("Window %q created (%dx%d).", applicationName, width, height)
	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages processes pending window events. It returns false once the
// window was asked to close.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	return !p.Window.ShouldClose()
}

// WaitEvents blocks until at least one window event arrives.
func (p *Platform) WaitEvents() {
	glfw.WaitEvents()
}

func (p *Platform) FramebufferSize() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	return uint32(w), uint32(h)
}

// ConsumeResize reports whether the framebuffer changed since the last call.
func (p *Platform) ConsumeResize() bool {
	return p.resized.Swap(false)
}

func (p *Platform) RequiredInstanceExtensions() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

// CreateSurface matches vulkan.SurfaceFactory.
func (p *Platform) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	ptr, err := p.Window.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, fmt.Errorf("failed to create window surface: %w", err)
	}
	return vk.SurfaceFromPointer(ptr), nil
}

// InitVulkan loads the Vulkan entry points through the GLFW loader. Call after Startup.
func InitVulkan() error {
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		return fmt.Errorf("failed to initialize vulkan: %w", err)
	}
	return nil
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	code, ok := keyMap[key]
	if !ok || action == glfw.Repeat {
		return
	}
	p.input.ProcessKey(code, action == glfw.Press)
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	p.resized.Store(true)
	ctx := core.EventContext{}
	ctx.Data.U32[0] = uint32(width)
	ctx.Data.U32[1] = uint32(height)
	p.bus.Fire(core.EVENT_CODE_RESIZED, p, ctx)
}
