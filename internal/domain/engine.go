package domain

// EngineHandle identifies a configured engine executable. Immutable once resolved.
type EngineHandle struct {
	ID         string
	Name       string
	Author     string
	Path       string
	Args       []string
	WorkingDir string
}
