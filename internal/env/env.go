// Package env implements the scope chain shared by the resolver and the
// interpreter. It is generic over the bound value: binding states for
// static checking, runtime values for evaluation.
package env

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrUndefined is returned when a name is not bound anywhere in the chain.
var ErrUndefined = errors.New("undefined name")

// Environment is one scope: a name-keyed table with an optional parent.
type Environment[V any] struct {
	parent *Environment[V]
	elems  map[string]V
}

// New returns a scope whose parent is parent. A nil parent makes a root.
func New[V any](parent *Environment[V]) *Environment[V] {
	return &Environment[V]{parent: parent, elems: make(map[string]V)}
}

// Parent returns the enclosing scope, or nil for a root.
func (e *Environment[V]) Parent() *Environment[V] {
	return e.parent
}

// Define binds name in this scope, overwriting any existing binding here.
func (e *Environment[V]) Define(name string, v V) {
	e.elems[name] = v
}

// Delete removes name from this scope.
func (e *Environment[V]) Delete(name string) {
	delete(e.elems, name)
}

// Lookup returns the value bound to name by searching from this scope
// up through the parents, and the scope in which it was found.
func (e *Environment[V]) Lookup(name string) (V, *Environment[V]) {
	for s := e; s != nil; s = s.parent {
		if v, ok := s.elems[name]; ok {
			return v, s
		}
	}
	var zero V
	return zero, nil
}

// LookupLocal returns the value bound to name in this scope only.
func (e *Environment[V]) LookupLocal(name string) (V, bool) {
	v, ok := e.elems[name]
	return v, ok
}

// Contains reports whether name is bound anywhere in the chain.
func (e *Environment[V]) Contains(name string) bool {
	_, s := e.Lookup(name)
	return s != nil
}

// Get returns the nearest binding of name.
func (e *Environment[V]) Get(name string) (V, error) {
	v, s := e.Lookup(name)
	if s == nil {
		return v, errors.Wrapf(ErrUndefined, "%q", name)
	}
	return v, nil
}

// Assign updates the nearest binding of name.
func (e *Environment[V]) Assign(name string, v V) error {
	_, s := e.Lookup(name)
	if s == nil {
		return errors.Wrapf(ErrUndefined, "%q", name)
	}
	s.elems[name] = v
	return nil
}

// Names returns the names bound in this scope, sorted.
func (e *Environment[V]) Names() []string {
	names := make([]string, 0, len(e.elems))
	for name := range e.elems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Depth returns the number of scopes in the chain, counting e.
func (e *Environment[V]) Depth() int {
	n := 0
	for s := e; s != nil; s = s.parent {
		n++
	}
	return n
}

// String returns a debugging dump of the chain, innermost scope first.
func (e *Environment[V]) String() string {
	var buf strings.Builder
	for s, i := e, 0; s != nil; s, i = s.parent, i+1 {
		fmt.Fprintf(&buf, "%sscope {\n", strings.Repeat("  ", i))
		for _, name := range s.Names() {
			fmt.Fprintf(&buf, "%s  %s: %v\n", strings.Repeat("  ", i), name, s.elems[name])
		}
		fmt.Fprintf(&buf, "%s}\n", strings.Repeat("  ", i))
	}
	return buf.String()
}
