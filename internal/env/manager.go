package env

import "sort"

// Manager owns the current scope pointer of one run. Scope changes go
// through WithNewScope and WithIsolatedScope, which restore the previous
// pointer on every exit path including panics.
type Manager[V any] struct {
	global  *Environment[V]
	current *Environment[V]
}

// NewManager returns a manager positioned at a fresh global scope.
func NewManager[V any]() *Manager[V] {
	g := New[V](nil)
	return &Manager[V]{global: g, current: g}
}

// Global returns the outermost scope.
func (m *Manager[V]) Global() *Environment[V] {
	return m.global
}

// Current returns the innermost scope.
func (m *Manager[V]) Current() *Environment[V] {
	return m.current
}

// Depth returns the length of the current chain.
func (m *Manager[V]) Depth() int {
	return m.current.Depth()
}

// WithNewScope runs fn inside a child of the current scope.
func (m *Manager[V]) WithNewScope(fn func()) {
	saved := m.current
	m.current = New(saved)
	defer func() { m.current = saved }()
	fn()
}

// WithIsolatedScope runs fn inside a fresh root scope. Nothing from the
// caller's chain is visible to fn.
func (m *Manager[V]) WithIsolatedScope(fn func()) {
	saved := m.current
	m.current = New[V](nil)
	defer func() { m.current = saved }()
	fn()
}

// Define binds name in the current scope.
func (m *Manager[V]) Define(name string, v V) {
	m.current.Define(name, v)
}

// DefineOrAssign assigns name where it is already bound in the chain,
// otherwise defines it in the current scope. It reports whether a new
// binding was created.
func (m *Manager[V]) DefineOrAssign(name string, v V) bool {
	if _, s := m.current.Lookup(name); s != nil {
		s.elems[name] = v
		return false
	}
	m.current.Define(name, v)
	return true
}

// Get returns the nearest binding of name.
func (m *Manager[V]) Get(name string) (V, error) {
	return m.current.Get(name)
}

// Assign updates the nearest binding of name.
func (m *Manager[V]) Assign(name string, v V) error {
	return m.current.Assign(name, v)
}

// Lookup searches the current chain.
func (m *Manager[V]) Lookup(name string) (V, bool) {
	v, s := m.current.Lookup(name)
	return v, s != nil
}

// Reset drops every scope and starts again from an empty global scope.
func (m *Manager[V]) Reset() {
	m.global = New[V](nil)
	m.current = m.global
}

// FuncTable is the flat name-keyed function table. It is not scoped:
// functions do not close over their surroundings, so a name registered
// anywhere is visible everywhere.
type FuncTable[V any] struct {
	elems map[string]V
}

// NewFuncTable returns an empty table.
func NewFuncTable[V any]() *FuncTable[V] {
	return &FuncTable[V]{elems: make(map[string]V)}
}

// Set registers v under name, replacing any previous entry.
func (t *FuncTable[V]) Set(name string, v V) {
	t.elems[name] = v
}

func (t *FuncTable[V]) Get(name string) (V, bool) {
	v, ok := t.elems[name]
	return v, ok
}

func (t *FuncTable[V]) Contains(name string) bool {
	_, ok := t.elems[name]
	return ok
}

// Delete removes name.
func (t *FuncTable[V]) Delete(name string) {
	delete(t.elems, name)
}

// Names returns the registered names, sorted.
func (t *FuncTable[V]) Names() []string {
	names := make([]string, 0, len(t.elems))
	for name := range t.elems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t *FuncTable[V]) Len() int { return len(t.elems) }
