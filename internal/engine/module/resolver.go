package module

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"spek/internal/engine"
)

// Resolver caches Resolve results by module key and collapses
// concurrent requests for the same key into a single resolution (spec
// §6 "The core invokes resolve() and caches the resulting program by
// module key"). Callers that share one Resolver get each module
// compiled once, however many call sites import it.
type Resolver struct {
	group singleflight.Group

	mu    sync.Mutex
	cache map[string]*engine.ProgramLocation
}

func NewResolver() *Resolver {
	return &Resolver{cache: make(map[string]*engine.ProgramLocation)}
}

// Resolve returns the cached entry point for spec.Key(), calling
// spec.Resolve at most once per key even under concurrent callers.
func (r *Resolver) Resolve(u *engine.Universe, spec Spec) (*engine.ProgramLocation, error) {
	key := spec.Key()

	r.mu.Lock()
	if cached, ok := r.cache[key]; ok {
		r.mu.Unlock()
		return cached, nil
	}
	r.mu.Unlock()

	result, err, _ := r.group.Do(key, func() (any, error) {
		r.mu.Lock()
		cached, ok := r.cache[key]
		r.mu.Unlock()
		if ok {
			return cached, nil
		}
		loc, err := spec.Resolve(u)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cache[key] = loc
		r.mu.Unlock()
		return loc, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*engine.ProgramLocation), nil
}

// Forget drops a cached entry so the next Resolve call recompiles it —
// used by hosts that support live module reloading.
func (r *Resolver) Forget(key string) {
	r.mu.Lock()
	delete(r.cache, key)
	r.mu.Unlock()
}
