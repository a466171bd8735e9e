package world

import (
	"errors"
	"fmt"

	"github.com/gogpu/ggframe/render"
)

// ErrTransformCycle is returned when Parent links form a cycle.
var ErrTransformCycle = errors.New("world: parent cycle")

// Parent links an entity's Transform to another entity's GlobalTransform.
type Parent struct {
	Entity Entity
}

// GlobalTransform is an entity's transform resolved through its parents.
// The local transform is the entity's render.Transform component.
type GlobalTransform struct {
	render.Transform
}

// PropagateTransforms computes GlobalTransform for every entity with a
// render.Transform. A Parent that is missing or has no Transform is
// ignored and the entity is treated as a root. Entities on a parent cycle
// get no GlobalTransform and are reported in the returned error.
func PropagateTransforms(w *World) error {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[Entity]uint8)
	global := make(map[Entity]render.Transform)
	var cycles []Entity

	var resolve func(e Entity) (render.Transform, bool)
	resolve = func(e Entity) (render.Transform, bool) {
		switch state[e] {
		case done:
			g, ok := global[e]
			return g, ok
		case visiting:
			return render.Transform{}, false
		}
		state[e] = visiting
		local, _ := Get[render.Transform](w, e)

		g, ok := local, true
		if p, has := Get[Parent](w, e); has && Has[render.Transform](w, p.Entity) {
			var pg render.Transform
			if pg, ok = resolve(p.Entity); ok {
				g = pg.Mul(local)
			}
		}
		state[e] = done
		if ok {
			global[e] = g
		}
		return g, ok
	}

	Each(w, func(e Entity, _ render.Transform) {
		g, ok := resolve(e)
		if !ok {
			cycles = append(cycles, e)
			Remove[GlobalTransform](w, e)
			return
		}
		_ = Insert(w, e, GlobalTransform{Transform: g})
	})
	if len(cycles) > 0 {
		return fmt.Errorf("%w through %v", ErrTransformCycle, cycles)
	}
	return nil
}
