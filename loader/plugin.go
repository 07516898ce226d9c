//go:build !noplugin

package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"

	"github.com/najoast/actorhost/actor"
	"github.com/najoast/actorhost/handle"
)

// PluginLoader resolves actors at
// <codeDirectory>/<realm>/<actor_name>.so, using Go's plugin package as
// the dynamic-load facility the design notes call for. The loaded
// plugin must export a symbol named exactly actor_name, of type
// actor.Constructor.
type PluginLoader struct {
	codeDirectory string
}

// NewPluginLoader creates a loader rooted at codeDirectory.
func NewPluginLoader(codeDirectory string) *PluginLoader {
	return &PluginLoader{codeDirectory: codeDirectory}
}

// Load implements Loader.
func (l *PluginLoader) Load(host actor.Host, realm, actorName string, port int, uid string) (*handle.Handle, error) {
	realm = normalizeRealm(realm)

	path := filepath.Join(l.codeDirectory, realm, actorName+".so")
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("resolving actor %s/%s at %s: %w", realm, actorName, path, err)
	}

	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading plugin %s: %w", path, err)
	}

	sym, err := p.Lookup(actorName)
	if err != nil {
		return nil, fmt.Errorf("plugin %s has no symbol %s: %w", path, actorName, err)
	}

	ctor, ok := sym.(func(actor.Host, string, int, string) (actor.Actor, error))
	if !ok {
		if ctorPtr, okPtr := sym.(*actor.Constructor); okPtr {
			ctor = *ctorPtr
		} else {
			return nil, fmt.Errorf("symbol %s in %s is not an actor constructor", actorName, path)
		}
	}

	return instantiate(actor.Constructor(ctor), host, realm, actorName, port, uid)
}
