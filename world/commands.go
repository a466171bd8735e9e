package world

import "errors"

// Commands buffers world mutations issued during extraction. They are
// applied to the render world once extraction returns, before the world
// goes back to the pipeline and before Prepare runs.
type Commands struct {
	queue []func(*World) error
}

// Push defers fn.
func (c *Commands) Push(fn func(*World) error) {
	c.queue = append(c.queue, fn)
}

// Spawn defers the creation of an entity; build attaches its components.
func (c *Commands) Spawn(build func(w *World, e Entity) error) {
	c.Push(func(w *World) error {
		return build(w, w.Spawn())
	})
}

// Despawn defers the removal of e.
func (c *Commands) Despawn(e Entity) {
	c.Push(func(w *World) error {
		w.Despawn(e)
		return nil
	})
}

// Len returns the number of buffered commands.
func (c *Commands) Len() int { return len(c.queue) }

// Apply runs the buffered commands against w in order and empties the
// buffer. Every command runs; the errors are joined.
func (c *Commands) Apply(w *World) error {
	var errs []error
	for _, fn := range c.queue {
		if err := fn(w); err != nil {
			errs = append(errs, err)
		}
	}
	c.reset()
	return errors.Join(errs...)
}

// reset drops the buffered commands without running them.
func (c *Commands) reset() {
	clear(c.queue)
	c.queue = c.queue[:0]
}

// QueueResource defers storing v as w's persistent T resource.
func QueueResource[T any](c *Commands, v T) {
	c.Push(func(w *World) error {
		SetResource(w, v)
		return nil
	})
}

// QueueTransient defers storing v as w's transient T resource.
func QueueTransient[T any](c *Commands, v T) {
	c.Push(func(w *World) error {
		SetTransient(w, v)
		return nil
	})
}
