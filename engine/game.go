package engine

import "github.com/spaghettifunk/umbra/engine/config"

type Game struct {
	Config *config.Config
	State  interface{}

	FnInitialize Initialize
	FnUpdate     Update
	FnOnResize   OnResize
	FnShutdown   Shutdown
}

// Initialize builds the level and registers the game draw targets.
type Initialize func(e *Engine) error
type Update func(e *Engine, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
