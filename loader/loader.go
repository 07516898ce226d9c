// Package loader resolves actor code under a host's code_directory and
// instantiates it into a handle.Handle, per the two strategies named in
// the design notes: a statically pre-registered table (for bundled and
// test actors) and Go's plugin package for genuine dynamic loading.
package loader

import (
	"fmt"
	"runtime/debug"

	"github.com/najoast/actorhost/actor"
	"github.com/najoast/actorhost/handle"
)

// Loader resolves (realm, actorName) and constructs a not-yet-started
// handle. On any failure it returns a diagnostic trace and performs no
// side effects: no handle is built, nothing is left half-constructed.
type Loader interface {
	Load(host actor.Host, realm, actorName string, port int, uid string) (*handle.Handle, error)
}

// instantiate is the shared tail end of every Loader implementation: it
// turns a resolved Constructor into a Handle, recovering constructor
// panics into an error the way the Python original's bare except did.
func instantiate(ctor actor.Constructor, host actor.Host, realm, actorName string, port int, uid string) (h *handle.Handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic constructing actor %s/%s: %v\n%s", realm, actorName, r, debug.Stack())
			h = nil
		}
	}()

	a, ctorErr := ctor(host, realm, port, uid)
	if ctorErr != nil {
		return nil, fmt.Errorf("constructing actor %s/%s: %w", realm, actorName, ctorErr)
	}
	if a == nil {
		return nil, fmt.Errorf("constructor for actor %s/%s returned a nil actor", realm, actorName)
	}
	return handle.New(uid, realm, actorName, port, a), nil
}

// normalizeRealm treats a blank realm as "global".
func normalizeRealm(realm string) string {
	if realm == "" {
		return "global"
	}
	return realm
}
