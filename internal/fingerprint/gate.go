package fingerprint

// Gate is the pure decision layer spec.md's BatchDriver step 2 describes:
// given a depfile, decide whether the batch compile can be skipped.
type Gate struct {
	store Store
}

// NewGate constructs a Gate over the default on-disk Store.
func NewGate() *Gate {
	return &Gate{}
}

// ShouldSkip reports whether key's fingerprint matches what's on disk. When
// true, the caller may return outputPath with zero errors without spawning
// the compiler.
func (g *Gate) ShouldSkip(key Key) (bool, error) {
	if key.DepFilePath == "" {
		return false, nil
	}
	return g.store.Matches(key)
}

// Commit persists key's fingerprint after a successful compile.
func (g *Gate) Commit(key Key) error {
	if key.DepFilePath == "" {
		return nil
	}
	return g.store.Persist(key)
}
