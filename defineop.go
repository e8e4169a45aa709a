package worldline

import (
	"context"
	"fmt"

	"github.com/worldline-dev/worldline/genarg"
)

// ApplyFunc runs a defined operation's generated arguments against the
// system under test.
type ApplyFunc[S, A any] func(ctx context.Context, sys S, args A) Result

// CheckFunc validates a defined operation's observed result against the
// model, using rec to record assertions rather than returning a bool
// directly — the wrapped Check derives its bool from rec.Failed().
type CheckFunc[M, A any] func(args A, model M, result Result, rec *Recorder)

// UpdateModelFunc computes the model transition for a defined operation.
type UpdateModelFunc[M, A any] func(args A, model M) M

// definedOp is the concrete Operation built by DefineOp: generated
// arguments plus the three user-supplied method bodies.
type definedOp[S, M, A any] struct {
	name        string
	args        A
	applyTo     ApplyFunc[S, A]
	check       CheckFunc[M, A]
	updateModel UpdateModelFunc[M, A]
}

func (d *definedOp[S, M, A]) String() string {
	return fmt.Sprintf("%s(%+v)", d.name, d.args)
}

func (d *definedOp[S, M, A]) ApplyTo(ctx context.Context, sys S) Result {
	if d.applyTo == nil {
		return Result{}
	}
	return d.applyTo(ctx, sys, d.args)
}

func (d *definedOp[S, M, A]) Check(model M, result Result, rec *Recorder) bool {
	if d.check == nil {
		return true
	}
	d.check(d.args, model, result, rec)
	return !rec.Failed()
}

func (d *definedOp[S, M, A]) UpdateModel(model M) M {
	if d.updateModel == nil {
		return model
	}
	return d.updateModel(d.args, model)
}

// DefineOp builds a contextualized operation generator: given a name, an
// argument generator parameterized by the trial context, and the three
// operation methods (any of which may be nil for the default no-op
// behavior), it returns a function from context to an Operation generator
// — exactly the "constructor-equivalent" an Operation contract requires.
func DefineOp[S, M, C, A any](
	name string,
	genArgs func(ctx C) genarg.Generator[A],
	applyTo ApplyFunc[S, A],
	check CheckFunc[M, A],
	updateModel UpdateModelFunc[M, A],
) OpGen[S, M, C] {
	return func(ctx C) genarg.Generator[Operation[S, M]] {
		argGen := genArgs(ctx)
		return genarg.Map(argGen, func(args A) Operation[S, M] {
			return &definedOp[S, M, A]{
				name:        name,
				args:        args,
				applyTo:     applyTo,
				check:       check,
				updateModel: updateModel,
			}
		})
	}
}
