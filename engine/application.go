package engine

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released every subsystem
	EngineStageStopped
)

func (s Stage) String() string {
	switch s {
	case EngineStageUninitialized:
		return "uninitialized"
	case EngineStageInitializing:
		return "initializing"
	case EngineStageInitialized:
		return "initialized"
	case EngineStageRunning:
		return "running"
	case EngineStageShuttingDown:
		return "shutting down"
	case EngineStageStopped:
		return "stopped"
	}
	return "unknown"
}

// next is the only stage reachable from s, apart from shutting down.
var next = map[Stage]Stage{
	EngineStageUninitialized: EngineStageInitializing,
	EngineStageInitializing:  EngineStageInitialized,
	EngineStageInitialized:   EngineStageRunning,
	EngineStageShuttingDown:  EngineStageStopped,
}

// canTransition reports whether the engine may move from one stage to another.
func canTransition(from, to Stage) bool {
	if to == EngineStageShuttingDown {
		return from != EngineStageStopped && from != EngineStageShuttingDown
	}
	n, ok := next[from]
	return ok && n == to
}
