package native

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Loader produces the runtime. It is invoked at most once per Bootstrap.
type Loader func() (Runtime, error)

// Bootstrap performs the one-time load of the native runtime. The zero value
// is ready to use. It is safe for concurrent use: concurrent callers of Load
// block until the first load finishes and all observe its result.
type Bootstrap struct {
	once  sync.Once
	rt    Runtime
	err   error
	loads atomic.Int32
}

// Load runs load the first time it is called and returns the cached result
// on every later call, whatever loader they pass.
func (b *Bootstrap) Load(load Loader) (Runtime, error) {
	b.once.Do(func() {
		b.loads.Add(1)
		b.rt, b.err = load()
		if b.err != nil {
			logrus.Errorf("native runtime load failed: %v", b.err)
			return
		}
		logrus.Debug("native runtime loaded")
	})
	return b.rt, b.err
}

// Runtime returns the loaded runtime, or nil before a successful Load.
func (b *Bootstrap) Runtime() Runtime {
	if b.loads.Load() == 0 {
		return nil
	}
	// once.Do establishes happens-before for b.rt.
	b.once.Do(func() {})
	return b.rt
}

// Loaded reports whether a load succeeded.
func (b *Bootstrap) Loaded() bool {
	return b.Runtime() != nil
}

// Loads reports how many times a loader ran. It is 0 or 1.
func (b *Bootstrap) Loads() int {
	return int(b.loads.Load())
}

var process Bootstrap

// Init loads the process-wide runtime. Only the first call runs load.
func Init(load Loader) (Runtime, error) {
	return process.Load(load)
}

// Process returns the process-wide bootstrap.
func Process() *Bootstrap {
	return &process
}
