package testbed

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/umbra/engine"
	"github.com/spaghettifunk/umbra/engine/config"
	"github.com/spaghettifunk/umbra/engine/core"
	"github.com/spaghettifunk/umbra/engine/renderer/metadata"
	"github.com/spaghettifunk/umbra/engine/renderer/vulkan"
	"github.com/spaghettifunk/umbra/engine/scene"
)

// cameraSpeed is in world units per second.
const cameraSpeed = 3.0

type TestGame struct {
	*engine.Game
}

type gameState struct {
	engine *engine.Engine
	level  *scene.Level
}

var lightPositions = [metadata.MaxLights]mgl32.Vec3{
	{0, 4, 0},
	{0, 10, 5},
	{-5, 5, 0},
	{0, 5, -5},
}

// instanceOffsets places the instanced copies of the model in a row.
var instanceOffsets = []float32{
	-4, 0, 3,
	-2, 0, 3,
	0, 0, 3,
	2, 0, 3,
	4, 0, 3,
}

func NewTestGame(cfg *config.Config) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			Config: cfg,
			State:  &gameState{},
		},
	}
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown
	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize(e *engine.Engine) error {
	core.LogDebug("TestGame Initialize fn....")
	state := g.state()
	state.engine = e

	if err := g.registerModels(e); err != nil {
		return err
	}

	level, err := BuildLevel()
	if err != nil {
		return err
	}
	state.level = level
	if err := e.SetLevel(level); err != nil {
		return err
	}

	e.Bus().Register(core.EVENT_CODE_KEY_PRESSED, g, g.onKey)
	return nil
}

func (g *TestGame) registerModels(e *engine.Engine) error {
	path := e.Config().Assets.Model
	model, err := e.Assets().Model(path, nil)
	if err != nil {
		core.LogWarn("model %s unavailable (%s), drawing cubes instead", path, err)
		model = &metadata.Model{Name: "cube", Meshes: []metadata.Mesh{vulkan.CubeMesh()}}
	}
	if err := e.Renderer().RegisterModel(metadata.DrawTargetModel, model); err != nil {
		return err
	}
	instanced := &metadata.Model{Name: model.Name, Meshes: model.Meshes, Instances: instanceOffsets}
	return e.Renderer().RegisterModel(metadata.DrawTargetModelInstance, instanced)
}

// BuildLevel creates the lit room: floor, two walls, the model, a row of
// model instances and a light per slot.
func BuildLevel() (*scene.Level, error) {
	level := scene.NewLevel(scene.NewCamera(mgl32.Vec3{0, 3, -5}, mgl32.Vec3{0, 1, 0}))

	floor := scene.NewStaticMesh("floor", metadata.DrawTargetCube, 0,
		mgl32.Scale3D(10, 0.1, 10))
	backWall := scene.NewStaticMesh("back wall", metadata.DrawTargetCube, 1,
		mgl32.Translate3D(0, 5, 10).Mul4(mgl32.Scale3D(10, 5, 0.1)))
	sideWall := scene.NewStaticMesh("side wall", metadata.DrawTargetCube, 2,
		mgl32.Translate3D(10, 5, 0).Mul4(mgl32.Scale3D(0.1, 5, 10)))
	model := scene.NewStaticMesh("model", metadata.DrawTargetModel, 3,
		mgl32.Translate3D(0, 1, 0))
	model.Metallic = 0.7
	model.Roughness = 0.3
	instances := scene.NewStaticMesh("instances", metadata.DrawTargetModelInstance, 4,
		mgl32.Translate3D(0, 0.5, 0).Mul4(mgl32.Scale3D(0.5, 0.5, 0.5)))
	instances.Color = mgl32.Vec3{0.9, 0.6, 0.3}

	for _, m := range []*scene.StaticMesh{floor, backWall, sideWall, model, instances} {
		if err := level.Add(m); err != nil {
			return nil, err
		}
	}

	colors := [metadata.MaxLights]mgl32.Vec3{{1, 1, 1}, {1, 0.8, 0.6}, {0.6, 0.8, 1}, {1, 1, 1}}
	for slot, pos := range lightPositions {
		light := scene.NewPointLight(uint32(slot), pos)
		light.Color = colors[slot]
		if err := level.Add(light); err != nil {
			return nil, fmt.Errorf("light %d: %w", slot, err)
		}
	}
	return level, nil
}

func (g *TestGame) Update(e *engine.Engine, deltaTime float64) error {
	cam := g.state().level.Camera
	in := e.Input()
	step := float32(cameraSpeed * deltaTime)

	var move mgl32.Vec3
	if in.IsKeyDown(core.KEY_W) {
		move = move.Add(cam.Forward())
	}
	if in.IsKeyDown(core.KEY_S) {
		move = move.Sub(cam.Forward())
	}
	if in.IsKeyDown(core.KEY_D) {
		move = move.Add(cam.Right())
	}
	if in.IsKeyDown(core.KEY_A) {
		move = move.Sub(cam.Right())
	}
	if in.IsKeyDown(core.KEY_E) {
		move = move.Add(cam.Up)
	}
	if in.IsKeyDown(core.KEY_Q) {
		move = move.Sub(cam.Up)
	}
	if move.Len() > 0 {
		cam.Move(move.Normalize().Mul(step))
	}
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	core.LogDebug("TestGame resized to %dx%d", width, height)
	return nil
}

func (g *TestGame) Shutdown() error {
	g.state().engine.Bus().Unregister(core.EVENT_CODE_KEY_PRESSED, g)
	return nil
}

// deferredChannels maps the number keys to the lighting pass output.
var deferredChannels = map[core.KeyCode]metadata.DeferredType{
	core.KEY_1: metadata.DeferredPosition,
	core.KEY_2: metadata.DeferredNormal,
	core.KEY_3: metadata.DeferredAlbedo,
	core.KEY_4: metadata.DeferredLight,
}

func (g *TestGame) onKey(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	r := g.state().engine.Renderer()
	key := core.KeyCode(context.Data.U32[0])
	settings := r.DebugSettings()

	if channel, ok := deferredChannels[key]; ok {
		settings.DeferredType = channel
		r.SetDebugSettings(settings)
		core.LogInfo("Deferred output: %d", channel)
		return true
	}
	if key == core.KEY_L {
		settings = settings.NextLightCompute()
		r.SetDebugSettings(settings)
		core.LogInfo("Light computation: %d", settings.LightComputeType)
		return true
	}
	return false
}
