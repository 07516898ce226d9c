package loader

import (
	"fmt"
	"sync"

	"github.com/najoast/actorhost/actor"
	"github.com/najoast/actorhost/handle"
)

// StaticLoader resolves actors from a pre-registered table, populated by
// code that imports known actor packages and calls Register at process
// startup. This is the "scanning for pre-registered modules" strategy
// from the design notes, used for bundled actors and in tests that
// cannot build real plugin .so files.
type StaticLoader struct {
	mu    sync.RWMutex
	table map[string]map[string]actor.Constructor // realm -> name -> ctor
}

// NewStaticLoader creates an empty static loader.
func NewStaticLoader() *StaticLoader {
	return &StaticLoader{table: make(map[string]map[string]actor.Constructor)}
}

// Register adds a constructor for realm/actorName. Intended to be called
// from init() in actor packages that want to be resolvable without a
// plugin file on disk.
func (l *StaticLoader) Register(realm, actorName string, ctor actor.Constructor) {
	realm = normalizeRealm(realm)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.table[realm] == nil {
		l.table[realm] = make(map[string]actor.Constructor)
	}
	l.table[realm][actorName] = ctor
}

// Load implements Loader.
func (l *StaticLoader) Load(host actor.Host, realm, actorName string, port int, uid string) (*handle.Handle, error) {
	realm = normalizeRealm(realm)

	l.mu.RLock()
	byName, ok := l.table[realm]
	var ctor actor.Constructor
	if ok {
		ctor, ok = byName[actorName]
	}
	l.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no statically registered actor %s/%s", realm, actorName)
	}
	return instantiate(ctor, host, realm, actorName, port, uid)
}
