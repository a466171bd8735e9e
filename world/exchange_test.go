package world

import (
	"errors"
	"testing"
)

type marker struct{}

func TestExchangeSwapsStorage(t *testing.T) {
	app := New(OwnerApp)
	render := New(OwnerRender)
	x := NewExchanger(app, render)
	if err := x.Check(app); err != nil {
		t.Fatalf("Check before exchange: %v", err)
	}
	scratch, _ := Resource[ScratchWorld](app)

	err := x.Exchange(app, 7, func(ctx *ExtractContext) error {
		if ctx.Render != render {
			t.Error("extract did not receive the render world")
		}
		if ctx.Frame != 7 {
			t.Errorf("Frame = %d, want 7", ctx.Frame)
		}
		// While lent, the pipeline holds the scratch storage and the app
		// world holds the render storage, each exactly once.
		if x.Render() != scratch.World {
			t.Error("pipeline does not hold the scratch storage")
		}
		if rw, ok := Resource[RenderWorld](app); !ok || rw.World != render {
			t.Error("app world does not hold the render storage")
		}
		if HasResource[ScratchWorld](app) {
			t.Error("scratch storage held by both sides")
		}
		if render.Owner() != OwnerApp || scratch.World.Owner() != OwnerRender {
			t.Errorf("owners during extract = %v/%v", render.Owner(), scratch.World.Owner())
		}
		if err := x.Check(app); !errors.Is(err, ErrOwnership) {
			t.Errorf("Check during exchange = %v, want ErrOwnership", err)
		}
		SetTransient(ctx.Render, "direct")
		ctx.Commands.Spawn(func(w *World, e Entity) error { return Insert(w, e, marker{}) })
		return nil
	})
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}

	if x.Render() != render {
		t.Fatal("render world not returned to the pipeline")
	}
	if err := x.Check(app); err != nil {
		t.Errorf("Check after exchange: %v", err)
	}
	if got, _ := Resource[ScratchWorld](app); got.World != scratch.World {
		t.Error("scratch storage replaced instead of returned")
	}
	if !HasResource[string](render) || Count[marker](render) != 1 {
		t.Error("extracted data or applied commands missing from render world")
	}
}

func TestExchangeRestoresOnPanic(t *testing.T) {
	app := New(OwnerApp)
	render := New(OwnerRender)
	x := NewExchanger(app, render)

	func() {
		defer func() { _ = recover() }()
		_ = x.Exchange(app, 0, func(ctx *ExtractContext) error {
			ctx.Commands.Despawn(0)
			panic("producer bug")
		})
	}()

	if x.Render() != render {
		t.Error("render world not restored after panic")
	}
	if err := x.Check(app); err != nil {
		t.Errorf("Check after panic: %v", err)
	}
	if x.commands.Len() != 0 {
		t.Errorf("%d stale commands kept", x.commands.Len())
	}
}

func TestExchangeWithoutScratch(t *testing.T) {
	app := New(OwnerApp)
	x := NewExchanger(app, New(OwnerRender))
	RemoveResource[ScratchWorld](app)

	err := x.Exchange(app, 0, func(*ExtractContext) error {
		t.Error("extract ran without a scratch world")
		return nil
	})
	if !errors.Is(err, ErrNoScratch) {
		t.Errorf("err = %v, want ErrNoScratch", err)
	}
}

func TestExchangeJoinsCommandErrors(t *testing.T) {
	app := New(OwnerApp)
	x := NewExchanger(app, New(OwnerRender))
	boom := errors.New("boom")

	err := x.Exchange(app, 0, func(ctx *ExtractContext) error {
		ctx.Commands.Push(func(*World) error { return boom })
		return nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestExchangeAppliesCommandsBeforeReturningWorld(t *testing.T) {
	app := New(OwnerApp)
	render := New(OwnerRender)
	x := NewExchanger(app, render)

	var extracted bool
	err := x.Exchange(app, 0, func(ctx *ExtractContext) error {
		ctx.Commands.Push(func(w *World) error {
			if !extracted {
				t.Error("command ran before extract returned")
			}
			if w != render || w.Owner() != OwnerApp {
				t.Errorf("command saw owner %v, want the lent render world", w.Owner())
			}
			if x.Render() == render {
				t.Error("render world returned before commands were applied")
			}
			return nil
		})
		extracted = true
		return nil
	})
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if render.Owner() != OwnerRender {
		t.Errorf("owner after exchange = %v", render.Owner())
	}
}
