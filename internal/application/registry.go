package application

import (
	"strconv"

	"github.com/minhvn/lacefarm/internal/domain"
	"github.com/minhvn/lacefarm/internal/ports"
	cmap "github.com/orcaman/concurrent-map/v2"
)

// HandleRegistry tracks the live execution environments. Handles are
// in-memory only; the registry is rebuilt empty on every startup and
// never serialized.
type HandleRegistry struct {
	envs cmap.ConcurrentMap[string, ports.Env]
}

func NewHandleRegistry() *HandleRegistry {
	return &HandleRegistry{envs: cmap.New[ports.Env]()}
}

func (r *HandleRegistry) Put(id domain.SessionID, env ports.Env) {
	r.envs.Set(registryKey(id), env)
}

func (r *HandleRegistry) Has(id domain.SessionID) bool {
	return r.envs.Has(registryKey(id))
}

// Close releases the environment for id if one is live. Close errors
// are swallowed: stop is best-effort abrupt, in-flight operations on
// the environment are expected to fail.
func (r *HandleRegistry) Close(id domain.SessionID) bool {
	env, ok := r.envs.Pop(registryKey(id))
	if !ok {
		return false
	}
	_ = env.Close()
	return true
}

func (r *HandleRegistry) CloseAll() int {
	closed := 0
	for _, key := range r.envs.Keys() {
		env, ok := r.envs.Pop(key)
		if !ok {
			continue
		}
		_ = env.Close()
		closed++
	}
	return closed
}

func (r *HandleRegistry) Len() int {
	return r.envs.Count()
}

func registryKey(id domain.SessionID) string {
	return strconv.Itoa(int(id))
}
