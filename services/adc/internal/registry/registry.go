package registry

import (
	"fmt"
	"sort"
	"sync"

	"ads7924-go/services/adc/config"
	"ads7924-go/services/adc/internal/halcore"

	"go.uber.org/zap"
)

// OpenInput is passed to a platform backend.
type OpenInput struct {
	Config config.Config
	Logger *zap.SugaredLogger
}

// Backend provides buses and alarm lines for one platform.
type Backend interface {
	Open(in OpenInput) (halcore.Resources, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(in OpenInput) (halcore.Resources, error)

func (f BackendFunc) Open(in OpenInput) (halcore.Resources, error) { return f(in) }

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}
)

func RegisterBackend(name string, b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := backends[name]; exists {
		panic(fmt.Sprintf("platform backend already registered for %q", name))
	}
	backends[name] = b
}

func Lookup(name string) (Backend, bool) {
	mu.RLock()
	defer mu.RUnlock()
	b, ok := backends[name]
	return b, ok
}

// Names lists registered backends in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(backends))
	for n := range backends {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
