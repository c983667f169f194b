package sim

// EngineCore is the world surface driven by the Loop.
type EngineCore interface {
	Deps() Deps
	Apply([]Command) error
	Step(LoopTickContext)
	Snapshot() Snapshot
}

// Engine defines the minimal surface area exposed to non-simulation callers.
type Engine interface {
	Enqueue(Command) (bool, string)
	Snapshot() Snapshot
}
