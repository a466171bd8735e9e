// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package world

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync/atomic"
)

// ErrNoEntity is returned when a component is attached to an entity that
// does not exist.
var ErrNoEntity = errors.New("world: no such entity")

// Entity identifies an entity within one world. Ids are never reused by
// the world that issued them.
type Entity uint32

// String formats the entity for logs.
func (e Entity) String() string {
	return fmt.Sprintf("e%d", uint32(e))
}

// Owner identifies which side currently holds a world's storage.
type Owner uint8

const (
	OwnerApp Owner = iota
	OwnerRender
)

// String returns the owner name.
func (o Owner) String() string {
	switch o {
	case OwnerApp:
		return "app"
	case OwnerRender:
		return "render"
	default:
		return "unknown"
	}
}

var nextWorldID atomic.Uint64

type resource struct {
	value     any
	transient bool
}

// World stores entities, components and resources. It is not safe for
// concurrent use; the pipeline hands it from side to side instead.
type World struct {
	id    uint64
	owner Owner

	next     Entity
	entities []Entity
	alive    map[Entity]struct{}

	components map[reflect.Type]map[Entity]any
	resources  map[reflect.Type]resource
}

// New creates an empty world held by owner.
func New(owner Owner) *World {
	return &World{
		id:         nextWorldID.Add(1),
		owner:      owner,
		alive:      make(map[Entity]struct{}),
		components: make(map[reflect.Type]map[Entity]any),
		resources:  make(map[reflect.Type]resource),
	}
}

// ID returns a process-unique id for the storage.
func (w *World) ID() uint64 { return w.id }

// Owner reports which side holds the storage.
func (w *World) Owner() Owner { return w.owner }

// Spawn creates an entity with no components.
func (w *World) Spawn() Entity {
	e := w.next
	w.next++
	w.entities = append(w.entities, e)
	w.alive[e] = struct{}{}
	return e
}

// Despawn removes e and its components. It reports whether e existed.
func (w *World) Despawn(e Entity) bool {
	if _, ok := w.alive[e]; !ok {
		return false
	}
	delete(w.alive, e)
	w.entities = slices.DeleteFunc(w.entities, func(x Entity) bool { return x == e })
	for _, col := range w.components {
		delete(col, e)
	}
	return true
}

// Alive reports whether e exists.
func (w *World) Alive(e Entity) bool {
	_, ok := w.alive[e]
	return ok
}

// Len returns the number of entities.
func (w *World) Len() int { return len(w.entities) }

// Entities returns the live entities in spawn order.
func (w *World) Entities() []Entity {
	return slices.Clone(w.entities)
}

// ClearEntities removes every entity and component. Resources are kept.
func (w *World) ClearEntities() {
	w.entities = w.entities[:0]
	clear(w.alive)
	clear(w.components)
}

// ClearTransient removes resources inserted with SetTransient.
func (w *World) ClearTransient() {
	for k, r := range w.resources {
		if r.transient {
			delete(w.resources, k)
		}
	}
}

// ResourceCount returns the number of resources held.
func (w *World) ResourceCount() int { return len(w.resources) }

func typeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// Insert attaches component c to e, replacing a component of the same type.
func Insert[T any](w *World, e Entity, c T) error {
	if !w.Alive(e) {
		return fmt.Errorf("%w: %v", ErrNoEntity, e)
	}
	t := typeOf[T]()
	col := w.components[t]
	if col == nil {
		col = make(map[Entity]any)
		w.components[t] = col
	}
	col[e] = c
	return nil
}

// Get returns e's component of type T.
func Get[T any](w *World, e Entity) (T, bool) {
	v, ok := w.components[typeOf[T]()][e]
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// Has reports whether e has a component of type T.
func Has[T any](w *World, e Entity) bool {
	_, ok := w.components[typeOf[T]()][e]
	return ok
}

// Remove detaches e's component of type T and reports whether it existed.
func Remove[T any](w *World, e Entity) bool {
	col := w.components[typeOf[T]()]
	if _, ok := col[e]; !ok {
		return false
	}
	delete(col, e)
	return true
}

// Each calls fn for every entity with a T component, in spawn order.
func Each[T any](w *World, fn func(Entity, T)) {
	col := w.components[typeOf[T]()]
	if len(col) == 0 {
		return
	}
	for _, e := range w.entities {
		if v, ok := col[e]; ok {
			fn(e, v.(T))
		}
	}
}

// Each2 calls fn for every entity with both an A and a B component, in
// spawn order.
func Each2[A, B any](w *World, fn func(Entity, A, B)) {
	ca, cb := w.components[typeOf[A]()], w.components[typeOf[B]()]
	if len(ca) == 0 || len(cb) == 0 {
		return
	}
	for _, e := range w.entities {
		a, ok := ca[e]
		if !ok {
			continue
		}
		if b, ok := cb[e]; ok {
			fn(e, a.(A), b.(B))
		}
	}
}

// Count returns the number of entities with a T component.
func Count[T any](w *World) int {
	return len(w.components[typeOf[T]()])
}

// SetResource stores v as the world's T resource. It persists until
// removed.
func SetResource[T any](w *World, v T) {
	w.resources[typeOf[T]()] = resource{value: v}
}

// SetTransient stores v as the world's T resource until the next
// ClearTransient.
func SetTransient[T any](w *World, v T) {
	w.resources[typeOf[T]()] = resource{value: v, transient: true}
}

// Resource returns the world's T resource.
func Resource[T any](w *World) (T, bool) {
	r, ok := w.resources[typeOf[T]()]
	if !ok {
		var zero T
		return zero, false
	}
	return r.value.(T), true
}

// HasResource reports whether the world holds a T resource.
func HasResource[T any](w *World) bool {
	_, ok := w.resources[typeOf[T]()]
	return ok
}

// RemoveResource removes and returns the world's T resource.
func RemoveResource[T any](w *World) (T, bool) {
	t := typeOf[T]()
	r, ok := w.resources[t]
	if !ok {
		var zero T
		return zero, false
	}
	delete(w.resources, t)
	return r.value.(T), true
}

// ResourceOrInit returns the world's T resource, storing init() as a
// persistent resource first if none is present.
func ResourceOrInit[T any](w *World, init func() T) T {
	if v, ok := Resource[T](w); ok {
		return v
	}
	v := init()
	SetResource(w, v)
	return v
}
