package platform

import (
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// Constructor builds a native provider. Returning an error makes the
// resolver fall back instead of failing.
type Constructor func(opts Options) (Provider, error)

var (
	nativeMu sync.RWMutex
	natives  = map[string]Constructor{}
)

// registerNative is called from build-tagged init() functions.
func registerNative(goos string, ctor Constructor) {
	nativeMu.Lock()
	defer nativeMu.Unlock()
	natives[goos] = ctor
}

func unregisterNative(goos string) {
	nativeMu.Lock()
	defer nativeMu.Unlock()
	delete(natives, goos)
}

func lookupNative(goos string) (Constructor, bool) {
	nativeMu.RLock()
	defer nativeMu.RUnlock()
	ctor, ok := natives[goos]
	return ctor, ok
}

// Resolve selects the provider for goos. It never fails: unknown platforms,
// platforms built without their native provider, and native providers that
// cannot initialize all degrade to the Fallback provider.
func Resolve(goos string, opts Options) Provider {
	opts = opts.withDefaults()
	log := opts.Logger.With(zap.String("goos", goos))

	ctor, ok := lookupNative(goos)
	if !ok {
		log.Debug("no native audio provider, using fallback")
		return NewFallback()
	}

	p, err := ctor(opts)
	if err != nil || p == nil {
		log.Debug("native audio provider unavailable, using fallback", zap.Error(err))
		return NewFallback()
	}

	log.Debug("native audio provider resolved", zap.String("provider", p.Name()))
	return p
}

var (
	defaultOnce     sync.Once
	defaultProvider Provider
)

// Init resolves the process-wide provider for runtime.GOOS. Only the first
// call resolves; later calls return the same handle and ignore opts.
func Init(opts Options) Provider {
	defaultOnce.Do(func() {
		defaultProvider = Resolve(runtime.GOOS, opts)
	})
	return defaultProvider
}

// Default returns the process-wide provider, resolving it with
// DefaultOptions on first use.
func Default() Provider {
	return Init(DefaultOptions())
}
