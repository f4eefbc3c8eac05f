package runtime

import "sync"

// A process-wide convenience facade for small driver programs that only
// ever run one simulation per process, mirroring how this codebase lets
// a single instance stand in for the common case while every internal
// package still takes explicit arguments. Library and core code must
// never call Default; only cmd/ entry points should.
var (
	defaultMu  sync.Mutex
	defaultRun *Runtime
)

// SetDefault installs rt as the process-wide default Runtime.
func SetDefault(rt *Runtime) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultRun = rt
}

// Default returns the process-wide Runtime installed by SetDefault, or
// nil if none has been installed.
func Default() *Runtime {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultRun
}
