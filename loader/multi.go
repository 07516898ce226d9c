package loader

import (
	"errors"
	"strings"

	"github.com/najoast/actorhost/actor"
	"github.com/najoast/actorhost/handle"
)

// MultiLoader tries each Loader in order, returning the first success.
// If every loader fails, the returned error concatenates each attempt's
// diagnostic so the caller's data.st trace shows why both paths failed.
type MultiLoader struct {
	loaders []Loader
}

// NewMultiLoader chains loaders, tried in the given order.
func NewMultiLoader(loaders ...Loader) *MultiLoader {
	return &MultiLoader{loaders: loaders}
}

// Load implements Loader.
func (m *MultiLoader) Load(host actor.Host, realm, actorName string, port int, uid string) (*handle.Handle, error) {
	var errs []string
	for _, l := range m.loaders {
		h, err := l.Load(host, realm, actorName, port, uid)
		if err == nil {
			return h, nil
		}
		errs = append(errs, err.Error())
	}
	return nil, errors.New(strings.Join(errs, "; "))
}
